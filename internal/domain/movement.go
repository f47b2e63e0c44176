package domain

import (
	"database/sql"
	"time"
)

// MovementType 移动类型标签
type MovementType string

const (
	MovementIssue          MovementType = "ISSUE"
	MovementReturn         MovementType = "RETURN"
	MovementTransfer       MovementType = "TRANSFER"
	MovementUpwardTransfer MovementType = "UPWARD_TRANSFER"
	MovementRepair         MovementType = "REPAIR"
	MovementRepairReturn   MovementType = "REPAIR_RETURN"
	MovementDamage         MovementType = "DAMAGE"
	MovementDisposal       MovementType = "DISPOSAL"
	MovementCorrection     MovementType = "CORRECTION"
	MovementReceipt        MovementType = "RECEIPT"
	MovementStatusChange   MovementType = "STATUS_CHANGE"
)

// InstanceMovement 单件移动台账（对应 instance_movements 表）
// append-only：每次状态/位置变更恰好一行，落库后永不更新
type InstanceMovement struct {
	MovementID   string         `db:"movement_id" json:"movement_id"`
	InstanceID   string         `db:"instance_id" json:"instance_id"`
	StockEntryID sql.NullString `db:"stock_entry_id" json:"stock_entry_id"` // nullable，纯状态变更无关联单

	FromLocationID sql.NullString `db:"from_location_id" json:"from_location_id"`
	ToLocationID   sql.NullString `db:"to_location_id" json:"to_location_id"`
	PreviousStatus InstanceStatus `db:"previous_status" json:"previous_status"`
	NewStatus      InstanceStatus `db:"new_status" json:"new_status"`
	MovementType   MovementType   `db:"movement_type" json:"movement_type"`

	MovedBy string         `db:"moved_by" json:"moved_by"`
	MovedAt time.Time      `db:"moved_at" json:"moved_at"`
	Remarks sql.NullString `db:"remarks" json:"remarks"`

	RequiresAcknowledgment bool           `db:"requires_acknowledgment" json:"requires_acknowledgment"`
	Acknowledged           bool           `db:"acknowledged" json:"acknowledged"`
	AcknowledgedBy         sql.NullString `db:"acknowledged_by" json:"acknowledged_by"`
	AcknowledgedAt         sql.NullTime   `db:"acknowledged_at" json:"acknowledged_at"`

	IsCrossHierarchy bool `db:"is_cross_hierarchy" json:"is_cross_hierarchy"`
	IsUpwardTransfer bool `db:"is_upward_transfer" json:"is_upward_transfer"`
}
