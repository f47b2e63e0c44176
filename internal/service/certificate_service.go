package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetledger/internal/audit"
	"assetledger/internal/domain"
	"assetledger/internal/repository"
)

// CertificateService 验收单工作流服务接口。
// 阶段推进只认创建时定死的路径；每次成功流转与 stage 变更同写一条历史
type CertificateService interface {
	CreateCertificate(ctx context.Context, req CreateCertificateRequest) (*CreateCertificateResponse, error)
	UpdateHeader(ctx context.Context, req UpdateHeaderRequest) error

	AddItem(ctx context.Context, req AddInspectionItemRequest) (string, error)
	UpdateItemQuantities(ctx context.Context, req UpdateItemQuantitiesRequest) error
	DeleteItem(ctx context.Context, req DeleteInspectionItemRequest) error

	RecordStockRegister(ctx context.Context, req RecordStockRegisterRequest) error
	RecordCentralRegister(ctx context.Context, req RecordCentralRegisterRequest) error

	// Submit 把验收单推进到固定路径上的下一站；AUDIT_REVIEW → COMPLETED 时
	// 物化单件 + 入库单 + 汇总刷新，与流转同事务
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	Reject(ctx context.Context, req RejectRequest) error

	GetCertificate(ctx context.Context, certificateID string) (*CertificateDetail, error)
	ListCertificates(ctx context.Context, req ListCertificatesRequest) ([]*domain.InspectionCertificate, error)
}

type certificateService struct {
	txm    repository.TxManager
	policy domain.AccessPolicy
	audit  *audit.Recorder
	logger *zap.Logger
}

func NewCertificateService(txm repository.TxManager, policy domain.AccessPolicy, rec *audit.Recorder, logger *zap.Logger) CertificateService {
	return &certificateService{txm: txm, policy: policy, audit: rec, logger: logger}
}

type CreateCertificateRequest struct {
	DepartmentID      string
	Date              time.Time
	ContractNo        string
	ContractDate      *time.Time
	ContractorName    string
	ContractorAddress string
	Indenter          string
	IndentNo          string
	DateOfDelivery    *time.Time
	DeliveryType      string // PART / FULL
	Remarks           string
	Actor             domain.Actor
}

type CreateCertificateResponse struct {
	CertificateID string `json:"certificate_id"`
	CertificateNo string `json:"certificate_no"`
	IsRootFlow    bool   `json:"is_root_flow"`
}

func (s *certificateService) CreateCertificate(ctx context.Context, req CreateCertificateRequest) (*CreateCertificateResponse, error) {
	if req.DeliveryType == "" {
		req.DeliveryType = "FULL"
	}
	if req.DeliveryType != "PART" && req.DeliveryType != "FULL" {
		return nil, domain.Validationf("delivery_type", "delivery_type must be PART or FULL")
	}
	if req.Actor.IsAuditor() {
		return nil, domain.Preconditionf("auditor role cannot initiate certificates")
	}

	resp := &CreateCertificateResponse{}
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		dept, err := r.Locations.Get(ctx, req.DepartmentID)
		if err != nil {
			return err
		}
		if !dept.IsStandalone || dept.IsStore {
			return domain.Validationf("department_id", "certificates are opened against standalone locations only")
		}
		if !dept.IsActive {
			return domain.Preconditionf("department %s is deactivated", dept.Code)
		}
		if !req.Actor.IsAdmin() && req.Actor.Role != domain.RoleLocationHead {
			return domain.Preconditionf("only a location head can initiate a certificate")
		}
		if err := requireAccess(ctx, s.policy, req.Actor, dept); err != nil {
			return err
		}

		now := time.Now().UTC()
		date := req.Date
		if date.IsZero() {
			date = now
		}
		prefix := fmt.Sprintf("IC-%s", date.Format("200601"))
		seq, err := r.Certificates.NextSeq(ctx, prefix)
		if err != nil {
			return err
		}
		cert := &domain.InspectionCertificate{
			CertificateID:     uuid.NewString(),
			CertificateNo:     fmt.Sprintf("%s-%05d", prefix, seq),
			DepartmentID:      dept.LocationID,
			IsRootFlow:        dept.IsRoot(), // 路径一次性定死，之后不再看树
			Date:              date,
			ContractNo:        req.ContractNo,
			ContractDate:      nullTime(req.ContractDate),
			ContractorName:    req.ContractorName,
			ContractorAddress: nullStr(req.ContractorAddress),
			Indenter:          req.Indenter,
			IndentNo:          req.IndentNo,
			DateOfDelivery:    nullTime(req.DateOfDelivery),
			DeliveryType:      req.DeliveryType,
			Remarks:           nullStr(req.Remarks),
			Stage:             domain.StageInitiated,
			InitiatedBy:       req.Actor.ID,
			InitiatedAt:       now,
			StageHistory:      []domain.StageHistoryEntry{},
			CreatedAt:         now,
		}
		cert.Status = cert.DerivedStatus()
		if err := r.Certificates.Create(ctx, cert); err != nil {
			return err
		}
		resp.CertificateID = cert.CertificateID
		resp.CertificateNo = cert.CertificateNo
		resp.IsRootFlow = cert.IsRootFlow
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, "certificate.initiated", req.Actor.ID, map[string]any{
		"certificate_id": resp.CertificateID,
		"certificate_no": resp.CertificateNo,
		"department_id":  req.DepartmentID,
	})
	return resp, nil
}

type UpdateHeaderRequest struct {
	CertificateID     string
	ContractNo        string
	ContractDate      *time.Time
	ContractorName    string
	ContractorAddress string
	Indenter          string
	IndentNo          string
	DateOfDelivery    *time.Time
	DeliveryType      string
	Remarks           string
	Actor             domain.Actor
}

// UpdateHeader 基本信息修订，仅 INITIATED 阶段、发起人或管理员
func (s *certificateService) UpdateHeader(ctx context.Context, req UpdateHeaderRequest) error {
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage != domain.StageInitiated {
			return domain.Preconditionf("certificate %s is past INITIATED", cert.CertificateNo)
		}
		if !req.Actor.IsAdmin() && req.Actor.ID != cert.InitiatedBy {
			return domain.Preconditionf("only the initiator can edit certificate %s", cert.CertificateNo)
		}
		if req.ContractNo != "" {
			cert.ContractNo = req.ContractNo
		}
		if req.ContractDate != nil {
			cert.ContractDate = nullTime(req.ContractDate)
		}
		if req.ContractorName != "" {
			cert.ContractorName = req.ContractorName
		}
		if req.ContractorAddress != "" {
			cert.ContractorAddress = nullStr(req.ContractorAddress)
		}
		if req.Indenter != "" {
			cert.Indenter = req.Indenter
		}
		if req.IndentNo != "" {
			cert.IndentNo = req.IndentNo
		}
		if req.DateOfDelivery != nil {
			cert.DateOfDelivery = nullTime(req.DateOfDelivery)
		}
		if req.DeliveryType != "" {
			if req.DeliveryType != "PART" && req.DeliveryType != "FULL" {
				return domain.Validationf("delivery_type", "delivery_type must be PART or FULL")
			}
			cert.DeliveryType = req.DeliveryType
		}
		if req.Remarks != "" {
			cert.Remarks = nullStr(req.Remarks)
		}
		return r.Certificates.Update(ctx, cert)
	})
}

// ============================================
// 行项操作
// ============================================

type AddInspectionItemRequest struct {
	CertificateID string
	ItemID        string
	TenderedQty   int
	AcceptedQty   int
	RejectedQty   int
	UnitPrice     *float64
	Remarks       string
	Actor         domain.Actor
}

func (s *certificateService) AddItem(ctx context.Context, req AddInspectionItemRequest) (string, error) {
	var id string
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage != domain.StageInitiated {
			return domain.Preconditionf("items can only be added while certificate %s is INITIATED", cert.CertificateNo)
		}
		if !req.Actor.IsAdmin() && req.Actor.ID != cert.InitiatedBy {
			return domain.Preconditionf("only the initiator can edit certificate %s", cert.CertificateNo)
		}
		if _, err := r.Items.GetItem(ctx, req.ItemID); err != nil {
			return err
		}
		row := &domain.InspectionItem{
			InspectionItemID: uuid.NewString(),
			CertificateID:    cert.CertificateID,
			ItemID:           req.ItemID,
			TenderedQty:      req.TenderedQty,
			AcceptedQty:      req.AcceptedQty,
			RejectedQty:      req.RejectedQty,
			UnitPrice:        nullFloat(req.UnitPrice),
			Remarks:          nullStr(req.Remarks),
		}
		if err := row.ValidateQuantities(); err != nil {
			return err
		}
		if err := r.Certificates.AddItem(ctx, row); err != nil {
			return err
		}
		id = row.InspectionItemID
		return nil
	})
	return id, err
}

type UpdateItemQuantitiesRequest struct {
	CertificateID    string
	InspectionItemID string
	TenderedQty      int
	AcceptedQty      int
	RejectedQty      int
	UnitPrice        *float64
	Remarks          string
	Actor            domain.Actor
}

func (s *certificateService) UpdateItemQuantities(ctx context.Context, req UpdateItemQuantitiesRequest) error {
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage != domain.StageInitiated {
			return domain.Preconditionf("quantities are frozen once certificate %s leaves INITIATED", cert.CertificateNo)
		}
		if !req.Actor.IsAdmin() && req.Actor.ID != cert.InitiatedBy {
			return domain.Preconditionf("only the initiator can edit certificate %s", cert.CertificateNo)
		}
		row, err := r.Certificates.GetItem(ctx, req.InspectionItemID)
		if err != nil {
			return err
		}
		if row.CertificateID != cert.CertificateID {
			return domain.Validationf("inspection_item_id", "item does not belong to certificate %s", cert.CertificateNo)
		}
		row.TenderedQty = req.TenderedQty
		row.AcceptedQty = req.AcceptedQty
		row.RejectedQty = req.RejectedQty
		if req.UnitPrice != nil {
			row.UnitPrice = nullFloat(req.UnitPrice)
		}
		if req.Remarks != "" {
			row.Remarks = nullStr(req.Remarks)
		}
		if err := row.ValidateQuantities(); err != nil {
			return err
		}
		return r.Certificates.UpdateItem(ctx, row)
	})
}

type DeleteInspectionItemRequest struct {
	CertificateID    string
	InspectionItemID string
	Actor            domain.Actor
}

func (s *certificateService) DeleteItem(ctx context.Context, req DeleteInspectionItemRequest) error {
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage != domain.StageInitiated {
			return domain.Preconditionf("items can only be removed while certificate %s is INITIATED", cert.CertificateNo)
		}
		if !req.Actor.IsAdmin() && req.Actor.ID != cert.InitiatedBy {
			return domain.Preconditionf("only the initiator can edit certificate %s", cert.CertificateNo)
		}
		return r.Certificates.DeleteItem(ctx, cert.CertificateID, req.InspectionItemID)
	})
}

// ============================================
// 阶段数据登记
// ============================================

type StockRegisterLine struct {
	InspectionItemID    string
	StockRegisterNo     string
	StockRegisterPageNo string
	StockEntryDate      *time.Time
}

type RecordStockRegisterRequest struct {
	CertificateID        string
	Lines                []StockRegisterLine
	InspectedBy          string
	DateOfInspection     *time.Time
	ConsigneeName        string
	ConsigneeDesignation string
	Actor                domain.Actor
}

// RecordStockRegister 院系库房登记（STOCK_DETAILS 阶段，院系库保管人）
func (s *certificateService) RecordStockRegister(ctx context.Context, req RecordStockRegisterRequest) error {
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage != domain.StageStockDetails {
			return domain.Preconditionf("certificate %s is not in STOCK_DETAILS", cert.CertificateNo)
		}
		if err := s.requireDeptStoreCustodian(ctx, r, cert, req.Actor); err != nil {
			return err
		}
		for _, line := range req.Lines {
			row, err := r.Certificates.GetItem(ctx, line.InspectionItemID)
			if err != nil {
				return err
			}
			if row.CertificateID != cert.CertificateID {
				return domain.Validationf("inspection_item_id", "item does not belong to certificate %s", cert.CertificateNo)
			}
			row.StockRegisterNo = nullStr(line.StockRegisterNo)
			row.StockRegisterPageNo = nullStr(line.StockRegisterPageNo)
			row.StockEntryDate = nullTime(line.StockEntryDate)
			if err := r.Certificates.UpdateItem(ctx, row); err != nil {
				return err
			}
		}
		if req.InspectedBy != "" {
			cert.InspectedBy = nullStr(req.InspectedBy)
		}
		if req.DateOfInspection != nil {
			cert.DateOfInspection = nullTime(req.DateOfInspection)
		}
		if req.ConsigneeName != "" {
			cert.ConsigneeName = nullStr(req.ConsigneeName)
		}
		if req.ConsigneeDesignation != "" {
			cert.ConsigneeDesignation = nullStr(req.ConsigneeDesignation)
		}
		return r.Certificates.Update(ctx, cert)
	})
}

type CentralRegisterLine struct {
	InspectionItemID      string
	CentralRegisterNo     string
	CentralRegisterPageNo string
}

type RecordCentralRegisterRequest struct {
	CertificateID string
	Lines         []CentralRegisterLine
	// 根部门流程在此补齐收货人信息（没有更早的阶段可填）
	ConsigneeName        string
	ConsigneeDesignation string
	Actor                domain.Actor
}

// RecordCentralRegister 中央库登记（CENTRAL_REGISTER 阶段，中央库保管人）
func (s *certificateService) RecordCentralRegister(ctx context.Context, req RecordCentralRegisterRequest) error {
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage != domain.StageCentralRegister {
			return domain.Preconditionf("certificate %s is not in CENTRAL_REGISTER", cert.CertificateNo)
		}
		if err := s.requireCentralCustodian(ctx, r, cert, req.Actor); err != nil {
			return err
		}
		for _, line := range req.Lines {
			row, err := r.Certificates.GetItem(ctx, line.InspectionItemID)
			if err != nil {
				return err
			}
			if row.CertificateID != cert.CertificateID {
				return domain.Validationf("inspection_item_id", "item does not belong to certificate %s", cert.CertificateNo)
			}
			row.CentralRegisterNo = nullStr(line.CentralRegisterNo)
			row.CentralRegisterPageNo = nullStr(line.CentralRegisterPageNo)
			if err := r.Certificates.UpdateItem(ctx, row); err != nil {
				return err
			}
		}
		if req.ConsigneeName != "" {
			cert.ConsigneeName = nullStr(req.ConsigneeName)
		}
		if req.ConsigneeDesignation != "" {
			cert.ConsigneeDesignation = nullStr(req.ConsigneeDesignation)
		}
		return r.Certificates.Update(ctx, cert)
	})
}

// ============================================
// 阶段流转
// ============================================

type SubmitRequest struct {
	CertificateID string
	// AUDIT_REVIEW → COMPLETED 时的审计登记信息
	DeadStockRegisterNo   string
	DeadStockPageNo       string
	CentralStoreEntryDate *time.Time
	FinanceCheckDate      *time.Time
	Actor                 domain.Actor
}

type SubmitResponse struct {
	Stage domain.InspectionStage `json:"stage"`
	// CreatedInstanceIDs 完成时物化的单件（其余流转为空）
	CreatedInstanceIDs []string `json:"created_instance_ids,omitempty"`
}

func (s *certificateService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	resp := &SubmitResponse{}
	var certNo string
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		certNo = cert.CertificateNo
		if cert.Stage.IsTerminal() {
			return domain.Preconditionf("certificate %s is already %s", cert.CertificateNo, cert.Stage)
		}
		next := cert.NextStage()
		if next == "" {
			return domain.Preconditionf("certificate %s has no further stage", cert.CertificateNo)
		}

		now := time.Now().UTC()
		switch cert.Stage {
		case domain.StageInitiated:
			if err := s.checkInitiatedSubmit(ctx, r, cert, req.Actor); err != nil {
				return err
			}
		case domain.StageStockDetails:
			if err := s.checkStockDetailsSubmit(ctx, r, cert, req.Actor); err != nil {
				return err
			}
			cert.StockFilledBy = nullStr(req.Actor.ID)
			cert.StockFilledAt = sql.NullTime{Time: now, Valid: true}
		case domain.StageCentralRegister:
			if err := s.checkCentralRegisterSubmit(ctx, r, cert, req.Actor); err != nil {
				return err
			}
		case domain.StageAuditReview:
			if err := s.checkAuditReviewSubmit(ctx, r, cert, req.Actor); err != nil {
				return err
			}
			if req.DeadStockRegisterNo != "" {
				cert.DeadStockRegisterNo = nullStr(req.DeadStockRegisterNo)
			}
			if req.DeadStockPageNo != "" {
				cert.DeadStockPageNo = nullStr(req.DeadStockPageNo)
			}
			if req.CentralStoreEntryDate != nil {
				cert.CentralStoreEntryDate = nullTime(req.CentralStoreEntryDate)
			}
			if req.FinanceCheckDate != nil {
				cert.FinanceCheckDate = nullTime(req.FinanceCheckDate)
			}
			cert.AuditorReviewedBy = nullStr(req.Actor.ID)
			cert.AuditorReviewedAt = sql.NullTime{Time: now, Valid: true}
			created, err := s.materialize(ctx, r, cert, req.Actor, now)
			if err != nil {
				return err
			}
			resp.CreatedInstanceIDs = created
		}

		cert.StageHistory = append(cert.StageHistory, domain.StageHistoryEntry{
			FromStage: cert.Stage,
			ToStage:   next,
			ActorID:   req.Actor.ID,
			ActorName: req.Actor.Name,
			Timestamp: now,
		})
		cert.Stage = next
		cert.Status = cert.DerivedStatus()
		resp.Stage = next
		return r.Certificates.Update(ctx, cert)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, "certificate.stage_advanced", req.Actor.ID, map[string]any{
		"certificate_id": req.CertificateID,
		"certificate_no": certNo,
		"stage":          string(resp.Stage),
		"instances":      len(resp.CreatedInstanceIDs),
	})
	return resp, nil
}

// checkInitiatedSubmit 发起人提交：部门负责人 + 表头必填项
func (s *certificateService) checkInitiatedSubmit(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor) error {
	dept, err := r.Locations.Get(ctx, cert.DepartmentID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if actor.Role != domain.RoleLocationHead {
			return domain.Preconditionf("only the location head can submit certificate %s", cert.CertificateNo)
		}
		if err := requireAccess(ctx, s.policy, actor, dept); err != nil {
			return err
		}
	}
	if cert.ContractorName == "" || cert.ContractNo == "" || cert.Indenter == "" || cert.Date.IsZero() {
		return domain.Preconditionf("contractor, contract number, indenter and date are required before submission")
	}
	items, err := r.Certificates.ListItems(ctx, cert.CertificateID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return domain.Preconditionf("certificate %s has no items", cert.CertificateNo)
	}
	return nil
}

// checkStockDetailsSubmit 院系库保管人提交；中央库保管人被按身份排除，
// 即便同一人兼任两库也不放行
func (s *certificateService) checkStockDetailsSubmit(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor) error {
	if err := s.requireDeptStoreCustodian(ctx, r, cert, actor); err != nil {
		return err
	}
	items, err := r.Certificates.ListItems(ctx, cert.CertificateID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.StockRegisterNo.Valid && it.StockRegisterNo.String != "" {
			return nil
		}
	}
	return domain.Preconditionf("at least one item needs a stock register reference before submission")
}

func (s *certificateService) checkCentralRegisterSubmit(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor) error {
	if err := s.requireCentralCustodian(ctx, r, cert, actor); err != nil {
		return err
	}
	items, err := r.Certificates.ListItems(ctx, cert.CertificateID)
	if err != nil {
		return err
	}
	hasRef := false
	for _, it := range items {
		if it.CentralRegisterNo.Valid && it.CentralRegisterNo.String != "" {
			hasRef = true
			break
		}
	}
	if !hasRef {
		return domain.Preconditionf("at least one item needs a central register reference before submission")
	}
	if cert.IsRootFlow {
		if !cert.ConsigneeName.Valid || !cert.ConsigneeDesignation.Valid {
			return domain.Preconditionf("consignee name and designation are required for a root-department certificate")
		}
	}
	return nil
}

func (s *certificateService) checkAuditReviewSubmit(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor) error {
	if !actor.IsAuditor() {
		return domain.Preconditionf("only an auditor can complete certificate %s", cert.CertificateNo)
	}
	if !cert.ConsigneeName.Valid || !cert.ConsigneeDesignation.Valid {
		return domain.Preconditionf("consignee details must be recorded before completion")
	}
	items, err := r.Certificates.ListItems(ctx, cert.CertificateID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.CentralRegisterNo.Valid && it.CentralRegisterNo.String != "" {
			return nil
		}
	}
	return domain.Preconditionf("central register reference must be recorded before completion")
}

// materialize 完成时物化：每个 accepted>0 的行项生成对应数量的单件、
// 一张 COMPLETED 入库单，并刷新保管库汇总
func (s *certificateService) materialize(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor, now time.Time) ([]string, error) {
	dept, err := r.Locations.Get(ctx, cert.DepartmentID)
	if err != nil {
		return nil, err
	}
	custodian, err := resolveMainCustodian(ctx, r.Locations, dept)
	if err != nil {
		return nil, err
	}
	if !custodian.IsActive {
		return nil, domain.Preconditionf("main store %s is deactivated", custodian.Code)
	}

	items, err := r.Certificates.ListItems(ctx, cert.CertificateID)
	if err != nil {
		return nil, err
	}
	created := []string{}
	day := now.Format("20060102")
	for _, row := range items {
		if row.AcceptedQty <= 0 {
			continue
		}
		item, err := r.Items.GetItem(ctx, row.ItemID)
		if err != nil {
			return nil, err
		}

		instanceIDs := make([]string, 0, row.AcceptedQty)
		for i := 0; i < row.AcceptedQty; i++ {
			seq, err := r.Instances.NextSeq(ctx, item.Code, now.Year())
			if err != nil {
				return nil, err
			}
			inst := &domain.ItemInstance{
				InstanceID:        uuid.NewString(),
				InstanceCode:      fmt.Sprintf("%s-%d-%04d", item.Code, now.Year(), seq),
				ItemID:            item.ItemID,
				CertificateID:     sql.NullString{String: cert.CertificateID, Valid: true},
				CurrentStatus:     domain.StatusInStore,
				SourceLocationID:  custodian.LocationID,
				CurrentLocationID: custodian.LocationID,
				Condition:         domain.ConditionNew,
				PurchaseDate:      sql.NullTime{Time: cert.Date, Valid: true},
				PurchaseValue:     row.UnitPrice,
				CreatedBy:         actor.ID,
				CreatedAt:         now,
			}
			if err := r.Instances.Create(ctx, inst); err != nil {
				return nil, err
			}
			instanceIDs = append(instanceIDs, inst.InstanceID)
		}

		entrySeq, err := r.Entries.NextSeq(ctx, domain.EntryReceipt, day)
		if err != nil {
			return nil, err
		}
		entry := &domain.StockEntry{
			EntryID:       uuid.NewString(),
			EntryNumber:   fmt.Sprintf("%s-%s-%04d", domain.EntryReceipt, day, entrySeq),
			EntryType:     domain.EntryReceipt,
			Status:        domain.EntryCompleted,
			EntryDate:     now,
			ToLocationID:  custodian.LocationID,
			ItemID:        item.ItemID,
			Quantity:      row.AcceptedQty,
			InstanceIDs:   instanceIDs,
			CertificateID: sql.NullString{String: cert.CertificateID, Valid: true},
			CreatedBy:     actor.ID,
			CreatedAt:     now,
		}
		if err := r.Entries.Create(ctx, entry); err != nil {
			return nil, err
		}
		for _, instanceID := range instanceIDs {
			movement := &domain.InstanceMovement{
				MovementID:   uuid.NewString(),
				InstanceID:   instanceID,
				StockEntryID: sql.NullString{String: entry.EntryID, Valid: true},
				ToLocationID: sql.NullString{String: custodian.LocationID, Valid: true},
				NewStatus:    domain.StatusInStore,
				MovementType: domain.MovementReceipt,
				MovedBy:      actor.ID,
				MovedAt:      now,
			}
			if err := r.Movements.Append(ctx, movement); err != nil {
				return nil, err
			}
		}

		item.TotalQuantity += row.AcceptedQty
		if err := r.Items.UpdateItem(ctx, item); err != nil {
			return nil, err
		}
		if err := recomputeInventory(ctx, r, custodian.LocationID, item.ItemID, now); err != nil {
			return nil, err
		}
		created = append(created, instanceIDs...)
	}
	return created, nil
}

type RejectRequest struct {
	CertificateID string
	Reason        string
	Actor         domain.Actor
}

// Reject 任意非终态可拒绝；记录被拒时所处阶段
func (s *certificateService) Reject(ctx context.Context, req RejectRequest) error {
	if req.Reason == "" {
		return domain.Validationf("reason", "a rejection reason is required")
	}
	if !req.Actor.IsAuditor() && !req.Actor.IsAdmin() {
		return domain.Preconditionf("only an auditor or administrator can reject a certificate")
	}
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cert, err := r.Certificates.Get(ctx, req.CertificateID)
		if err != nil {
			return err
		}
		if cert.Stage.IsTerminal() {
			return domain.Preconditionf("certificate %s is already %s", cert.CertificateNo, cert.Stage)
		}
		now := time.Now().UTC()
		cert.StageHistory = append(cert.StageHistory, domain.StageHistoryEntry{
			FromStage: cert.Stage,
			ToStage:   domain.StageRejected,
			ActorID:   req.Actor.ID,
			ActorName: req.Actor.Name,
			Timestamp: now,
			Reason:    req.Reason,
		})
		cert.RejectionStage = sql.NullString{String: string(cert.Stage), Valid: true}
		cert.Stage = domain.StageRejected
		cert.Status = cert.DerivedStatus()
		cert.RejectedBy = nullStr(req.Actor.ID)
		cert.RejectedAt = sql.NullTime{Time: now, Valid: true}
		cert.RejectionReason = nullStr(req.Reason)
		return r.Certificates.Update(ctx, cert)
	})
	if err != nil {
		return err
	}

	s.audit.Event(ctx, "certificate.rejected", req.Actor.ID, map[string]any{
		"certificate_id": req.CertificateID,
		"reason":         req.Reason,
	})
	return nil
}

type CertificateDetail struct {
	Certificate *domain.InspectionCertificate `json:"certificate"`
	Items       []*domain.InspectionItem      `json:"items"`
}

func (s *certificateService) GetCertificate(ctx context.Context, certificateID string) (*CertificateDetail, error) {
	r := s.txm.Repos()
	cert, err := r.Certificates.Get(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	items, err := r.Certificates.ListItems(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	return &CertificateDetail{Certificate: cert, Items: items}, nil
}

type ListCertificatesRequest struct {
	DepartmentID string
	Stage        domain.InspectionStage
	PendingOnly  bool
}

func (s *certificateService) ListCertificates(ctx context.Context, req ListCertificatesRequest) ([]*domain.InspectionCertificate, error) {
	return s.txm.Repos().Certificates.List(ctx, repository.CertificateFilter{
		DepartmentID: req.DepartmentID,
		Stage:        req.Stage,
		PendingOnly:  req.PendingOnly,
	})
}

// requireDeptStoreCustodian 院系库保管人校验（含中央库保管人的身份排除）
func (s *certificateService) requireDeptStoreCustodian(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor) error {
	dept, err := r.Locations.Get(ctx, cert.DepartmentID)
	if err != nil {
		return err
	}
	deptStore, err := resolveMainCustodian(ctx, r.Locations, dept)
	if err != nil {
		return err
	}
	root, err := rootAnchor(ctx, r.Locations, dept)
	if err != nil {
		return err
	}
	if central, err := resolveMainCustodian(ctx, r.Locations, root); err == nil {
		if central.LocationID != deptStore.LocationID &&
			central.InCharge.Valid && central.InCharge.String == actor.ID {
			return domain.Preconditionf("the central store custodian cannot submit department stock details")
		}
	}
	if actor.IsAdmin() || isCustodianOf(ctx, s.policy, actor, deptStore) {
		return nil
	}
	return domain.Preconditionf("only the custodian of %s can perform this step", deptStore.Code)
}

func (s *certificateService) requireCentralCustodian(ctx context.Context, r *repository.Repos, cert *domain.InspectionCertificate, actor domain.Actor) error {
	dept, err := r.Locations.Get(ctx, cert.DepartmentID)
	if err != nil {
		return err
	}
	root, err := rootAnchor(ctx, r.Locations, dept)
	if err != nil {
		return err
	}
	central, err := resolveMainCustodian(ctx, r.Locations, root)
	if err != nil {
		return err
	}
	if actor.IsAdmin() || isCustodianOf(ctx, s.policy, actor, central) {
		return nil
	}
	return domain.Preconditionf("only the custodian of %s can perform this step", central.Code)
}
