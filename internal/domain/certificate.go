package domain

import (
	"database/sql"
	"time"
)

// InspectionStage 验收单工作流阶段
type InspectionStage string

const (
	StageInitiated       InspectionStage = "INITIATED"
	StageStockDetails    InspectionStage = "STOCK_DETAILS"
	StageCentralRegister InspectionStage = "CENTRAL_REGISTER"
	StageAuditReview     InspectionStage = "AUDIT_REVIEW"
	StageCompleted       InspectionStage = "COMPLETED"
	StageRejected        InspectionStage = "REJECTED"
)

// IsTerminal COMPLETED / REJECTED 之后验收单不可再变更
func (s InspectionStage) IsTerminal() bool {
	return s == StageCompleted || s == StageRejected
}

// StageHistoryEntry stage_history 的一条记录（append-only）
type StageHistoryEntry struct {
	FromStage InspectionStage `json:"from_stage"`
	ToStage   InspectionStage `json:"to_stage"`
	ActorID   string          `json:"actor_id"`
	ActorName string          `json:"actor_name"`
	Timestamp time.Time       `json:"timestamp"`
	Reason    string          `json:"reason,omitempty"` // 仅 REJECTED 填写
}

// InspectionCertificate 验收单（对应 inspection_certificates 表）
// 阶段路径在创建时按 department 的树位置一次性定死：
// 根节点 3 段（跳过 STOCK_DETAILS），非根 4 段，之后不再重新推导
type InspectionCertificate struct {
	CertificateID string `db:"certificate_id" json:"certificate_id"`
	CertificateNo string `db:"certificate_no" json:"certificate_no"` // IC-YYYYMM-NNNNN，按月滚动
	DepartmentID  string `db:"department_id" json:"department_id"`   // standalone only
	IsRootFlow    bool   `db:"is_root_flow" json:"is_root_flow"`     // 创建时计算，不再变

	// Stage 1 基本信息（Location Head 填写）
	Date              time.Time      `db:"date" json:"date"`
	ContractNo        string         `db:"contract_no" json:"contract_no"`
	ContractDate      sql.NullTime   `db:"contract_date" json:"contract_date"`
	ContractorName    string         `db:"contractor_name" json:"contractor_name"`
	ContractorAddress sql.NullString `db:"contractor_address" json:"contractor_address"`
	Indenter          string         `db:"indenter" json:"indenter"`
	IndentNo          string         `db:"indent_no" json:"indent_no"`
	DateOfDelivery    sql.NullTime   `db:"date_of_delivery" json:"date_of_delivery"`
	DeliveryType      string         `db:"delivery_type" json:"delivery_type"` // PART / FULL
	Remarks           sql.NullString `db:"remarks" json:"remarks"`

	// Stage 2/3 库房信息
	InspectedBy          sql.NullString `db:"inspected_by" json:"inspected_by"`
	DateOfInspection     sql.NullTime   `db:"date_of_inspection" json:"date_of_inspection"`
	ConsigneeName        sql.NullString `db:"consignee_name" json:"consignee_name"`
	ConsigneeDesignation sql.NullString `db:"consignee_designation" json:"consignee_designation"`

	// Stage 4 审计信息
	DeadStockRegisterNo   sql.NullString `db:"dead_stock_register_no" json:"dead_stock_register_no"`
	DeadStockPageNo       sql.NullString `db:"dead_stock_page_no" json:"dead_stock_page_no"`
	CentralStoreEntryDate sql.NullTime   `db:"central_store_entry_date" json:"central_store_entry_date"`
	FinanceCheckDate      sql.NullTime   `db:"finance_check_date" json:"finance_check_date"`

	Stage  InspectionStage `db:"stage" json:"stage"`
	Status string          `db:"status" json:"status"` // 由 stage 派生，见 DerivedStatus

	// 各阶段的经手人/时间戳
	InitiatedBy       string         `db:"initiated_by" json:"initiated_by"`
	InitiatedAt       time.Time      `db:"initiated_at" json:"initiated_at"`
	StockFilledBy     sql.NullString `db:"stock_filled_by" json:"stock_filled_by"`
	StockFilledAt     sql.NullTime   `db:"stock_filled_at" json:"stock_filled_at"`
	AuditorReviewedBy sql.NullString `db:"auditor_reviewed_by" json:"auditor_reviewed_by"`
	AuditorReviewedAt sql.NullTime   `db:"auditor_reviewed_at" json:"auditor_reviewed_at"`
	RejectedBy        sql.NullString `db:"rejected_by" json:"rejected_by"`
	RejectedAt        sql.NullTime   `db:"rejected_at" json:"rejected_at"`
	RejectionReason   sql.NullString `db:"rejection_reason" json:"rejection_reason"`
	RejectionStage    sql.NullString `db:"rejection_stage" json:"rejection_stage"` // 被拒绝时所处的阶段

	StageHistory []StageHistoryEntry `db:"stage_history" json:"stage_history"` // JSONB，append-only

	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at" json:"updated_at"`
}

// DerivedStatus 按当前 stage 派生展示状态
func (c *InspectionCertificate) DerivedStatus() string {
	switch c.Stage {
	case StageRejected:
		return "CANCELLED"
	case StageCompleted:
		return "COMPLETED"
	default:
		return "IN_PROGRESS"
	}
}

// StageSequence 本单固定的阶段路径（不含 REJECTED）
func (c *InspectionCertificate) StageSequence() []InspectionStage {
	if c.IsRootFlow {
		return []InspectionStage{StageInitiated, StageCentralRegister, StageAuditReview, StageCompleted}
	}
	return []InspectionStage{StageInitiated, StageStockDetails, StageCentralRegister, StageAuditReview, StageCompleted}
}

// NextStage 当前阶段在固定路径上的下一站；终态返回空串
func (c *InspectionCertificate) NextStage() InspectionStage {
	seq := c.StageSequence()
	for i, s := range seq {
		if s == c.Stage && i+1 < len(seq) {
			return seq[i+1]
		}
	}
	return ""
}

// InspectionItem 验收单行项（对应 inspection_items 表）
// 不变量：AcceptedQty + RejectedQty ≤ TenderedQty，落库前强校验
type InspectionItem struct {
	InspectionItemID string          `db:"inspection_item_id" json:"inspection_item_id"`
	CertificateID    string          `db:"certificate_id" json:"certificate_id"`
	ItemID           string          `db:"item_id" json:"item_id"`
	TenderedQty      int             `db:"tendered_qty" json:"tendered_qty"`
	AcceptedQty      int             `db:"accepted_qty" json:"accepted_qty"`
	RejectedQty      int             `db:"rejected_qty" json:"rejected_qty"`
	UnitPrice        sql.NullFloat64 `db:"unit_price" json:"unit_price"`
	Remarks          sql.NullString  `db:"remarks" json:"remarks"`

	// 院系库房登记信息（STOCK_DETAILS 阶段填写）
	StockRegisterNo     sql.NullString `db:"stock_register_no" json:"stock_register_no"`
	StockRegisterPageNo sql.NullString `db:"stock_register_page_no" json:"stock_register_page_no"`
	StockEntryDate      sql.NullTime   `db:"stock_entry_date" json:"stock_entry_date"`

	// 中央库房登记信息（CENTRAL_REGISTER 阶段填写）
	CentralRegisterNo     sql.NullString `db:"central_register_no" json:"central_register_no"`
	CentralRegisterPageNo sql.NullString `db:"central_register_page_no" json:"central_register_page_no"`
}

// ValidateQuantities 数量不变量检查
func (it *InspectionItem) ValidateQuantities() error {
	if it.TenderedQty < 0 || it.AcceptedQty < 0 || it.RejectedQty < 0 {
		return Validationf("quantity", "quantities must be non-negative")
	}
	if it.AcceptedQty+it.RejectedQty > it.TenderedQty {
		return Validationf("quantity", "accepted + rejected (%d) cannot exceed tendered (%d)",
			it.AcceptedQty+it.RejectedQty, it.TenderedQty)
	}
	return nil
}
