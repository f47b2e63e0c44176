package domain

import (
	"database/sql"
	"time"
)

// InstanceStatus 实物单件的 9 态状态机
type InstanceStatus string

const (
	StatusInStore         InstanceStatus = "IN_STORE"
	StatusInTransit       InstanceStatus = "IN_TRANSIT"
	StatusInUse           InstanceStatus = "IN_USE"
	StatusTemporaryIssued InstanceStatus = "TEMPORARY_ISSUED"
	StatusUnderRepair     InstanceStatus = "UNDER_REPAIR"
	StatusDamaged         InstanceStatus = "DAMAGED"
	StatusLost            InstanceStatus = "LOST"
	StatusCondemned       InstanceStatus = "CONDEMNED"
	StatusDisposed        InstanceStatus = "DISPOSED"
)

var validInstanceStatuses = map[InstanceStatus]bool{
	StatusInStore: true, StatusInTransit: true, StatusInUse: true,
	StatusTemporaryIssued: true, StatusUnderRepair: true, StatusDamaged: true,
	StatusLost: true, StatusCondemned: true, StatusDisposed: true,
}

func (s InstanceStatus) Valid() bool { return validInstanceStatuses[s] }

// Condition 单件品相
type Condition string

const (
	ConditionNew          Condition = "NEW"
	ConditionExcellent    Condition = "EXCELLENT"
	ConditionGood         Condition = "GOOD"
	ConditionFair         Condition = "FAIR"
	ConditionPoor         Condition = "POOR"
	ConditionDamaged      Condition = "DAMAGED"
	ConditionBeyondRepair Condition = "BEYOND_REPAIR"
)

// ItemInstance 实物单件（对应 item_instances 表）
// 所有权 vs 物理位置：SourceLocationID 是责任保管方（只在转移确认时变更），
// CurrentLocationID 是当前实际所在（随状态变更移动）
type ItemInstance struct {
	InstanceID    string         `db:"instance_id" json:"instance_id"`
	InstanceCode  string         `db:"instance_code" json:"instance_code"` // ITEMCODE-YYYY-NNNN，UNIQUE
	ItemID        string         `db:"item_id" json:"item_id"`
	CertificateID sql.NullString `db:"certificate_id" json:"certificate_id"` // 溯源到验收单（转入件为 NULL）

	CurrentStatus   InstanceStatus `db:"current_status" json:"current_status"`
	PreviousStatus  sql.NullString `db:"previous_status" json:"previous_status"`
	StatusChangedBy sql.NullString `db:"status_changed_by" json:"status_changed_by"`
	StatusChangedAt sql.NullTime   `db:"status_changed_at" json:"status_changed_at"`

	SourceLocationID  string `db:"source_location_id" json:"source_location_id"`   // 保管方（store only）
	CurrentLocationID string `db:"current_location_id" json:"current_location_id"` // 当前物理位置

	// 领用跟踪
	AssignedTo         sql.NullString `db:"assigned_to" json:"assigned_to"`
	AssignedDate       sql.NullTime   `db:"assigned_date" json:"assigned_date"`
	ExpectedReturnDate sql.NullTime   `db:"expected_return_date" json:"expected_return_date"`
	ActualReturnDate   sql.NullTime   `db:"actual_return_date" json:"actual_return_date"`

	Condition      Condition      `db:"condition" json:"condition"`
	ConditionNotes sql.NullString `db:"condition_notes" json:"condition_notes"`

	// 损坏/维修/处置日期只在首次进入对应状态时盖戳，后续不覆盖
	DamageReportedDate  sql.NullTime    `db:"damage_reported_date" json:"damage_reported_date"`
	RepairStartedDate   sql.NullTime    `db:"repair_started_date" json:"repair_started_date"`
	RepairCompletedDate sql.NullTime    `db:"repair_completed_date" json:"repair_completed_date"`
	RepairCost          sql.NullFloat64 `db:"repair_cost" json:"repair_cost"`
	DisposalDate        sql.NullTime    `db:"disposal_date" json:"disposal_date"`
	DisposalReason      sql.NullString  `db:"disposal_reason" json:"disposal_reason"`

	PurchaseDate   sql.NullTime    `db:"purchase_date" json:"purchase_date"`
	PurchaseValue  sql.NullFloat64 `db:"purchase_value" json:"purchase_value"`
	WarrantyExpiry sql.NullTime    `db:"warranty_expiry" json:"warranty_expiry"`

	Notes     sql.NullString `db:"notes" json:"notes"`
	CreatedBy string         `db:"created_by" json:"created_by"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt sql.NullTime   `db:"updated_at" json:"updated_at"`
}

func (i *ItemInstance) IsAvailable() bool { return i.CurrentStatus == StatusInStore }
func (i *ItemInstance) IsInTransit() bool { return i.CurrentStatus == StatusInTransit }

func (i *ItemInstance) IsIssued() bool {
	return i.CurrentStatus == StatusInUse || i.CurrentStatus == StatusTemporaryIssued
}

// IsOverdue 临时领用超期标记（仅信息性，不触发状态变更）
func (i *ItemInstance) IsOverdue(now time.Time) bool {
	if i.CurrentStatus != StatusTemporaryIssued {
		return false
	}
	if !i.ExpectedReturnDate.Valid || i.ActualReturnDate.Valid {
		return false
	}
	return now.After(i.ExpectedReturnDate.Time)
}

// AgeYears 购入至今的年数（折旧计算用）
func (i *ItemInstance) AgeYears(now time.Time) float64 {
	if !i.PurchaseDate.Valid {
		return 0
	}
	return now.Sub(i.PurchaseDate.Time).Hours() / 24 / 365.25
}

// BookValue 按类别 WDV 法计算当前账面价值（只读派生）
func (i *ItemInstance) BookValue(cat *Category, now time.Time) float64 {
	if !i.PurchaseValue.Valid {
		return 0
	}
	years := int(i.AgeYears(now))
	if cat == nil || years == 0 {
		return i.PurchaseValue.Float64
	}
	return cat.WrittenDownValue(i.PurchaseValue.Float64, years)
}
