package domain

import (
	"database/sql"
	"time"
)

// EntryType 库存单类型
type EntryType string

const (
	EntryReceipt    EntryType = "RECEIPT"
	EntryIssue      EntryType = "ISSUE"
	EntryCorrection EntryType = "CORRECTION"
	EntryReturn     EntryType = "RETURN"
)

// EntryStatus 库存单状态
// PENDING_ACK 是持久化的中间态：确认方稍后回调，可能在另一个进程里
type EntryStatus string

const (
	EntryDraft      EntryStatus = "DRAFT"
	EntryPendingAck EntryStatus = "PENDING_ACK"
	EntryCompleted  EntryStatus = "COMPLETED"
	EntryCancelled  EntryStatus = "CANCELLED"
)

// IsFinal COMPLETED / CANCELLED 之后库存单不可再变更
func (s EntryStatus) IsFinal() bool {
	return s == EntryCompleted || s == EntryCancelled
}

// StockEntry 库存单（对应 stock_entries 表）
// ReferenceEntryID 把握手链起来：ISSUE ← RETURN ← RECEIPT
type StockEntry struct {
	EntryID     string      `db:"entry_id" json:"entry_id"`
	EntryNumber string      `db:"entry_number" json:"entry_number"` // TYPE-YYYYMMDD-NNNN，UNIQUE
	EntryType   EntryType   `db:"entry_type" json:"entry_type"`
	Status      EntryStatus `db:"status" json:"status"`
	EntryDate   time.Time   `db:"entry_date" json:"entry_date"`

	FromLocationID sql.NullString `db:"from_location_id" json:"from_location_id"` // RECEIPT（验收入库）为 NULL
	ToLocationID   string         `db:"to_location_id" json:"to_location_id"`
	ItemID         string         `db:"item_id" json:"item_id"`
	Quantity       int            `db:"quantity" json:"quantity"`

	InstanceIDs []string `db:"-" json:"instance_ids"` // 关联单件，stock_entry_instances 关联表

	ReferenceEntryID sql.NullString `db:"reference_entry_id" json:"reference_entry_id"` // RETURN→ISSUE, RECEIPT→RETURN/ISSUE
	CertificateID    sql.NullString `db:"certificate_id" json:"certificate_id"`         // 验收入库单回链验收单

	// 临时领用
	IsTemporary        bool           `db:"is_temporary" json:"is_temporary"`
	ExpectedReturnDate sql.NullTime   `db:"expected_return_date" json:"expected_return_date"`
	ActualReturnDate   sql.NullTime   `db:"actual_return_date" json:"actual_return_date"`
	TemporaryRecipient sql.NullString `db:"temporary_recipient" json:"temporary_recipient"`

	// 派生标记，创建时计算
	RequiresAcknowledgment bool `db:"requires_acknowledgment" json:"requires_acknowledgment"`
	IsCrossHierarchy       bool `db:"is_cross_hierarchy" json:"is_cross_hierarchy"`
	IsUpwardTransfer       bool `db:"is_upward_transfer" json:"is_upward_transfer"`

	Purpose        sql.NullString `db:"purpose" json:"purpose"`
	Remarks        sql.NullString `db:"remarks" json:"remarks"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	AcknowledgedBy sql.NullString `db:"acknowledged_by" json:"acknowledged_by"`
	AcknowledgedAt sql.NullTime   `db:"acknowledged_at" json:"acknowledged_at"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at" json:"updated_at"`
}
