package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetledger/internal/audit"
	"assetledger/internal/domain"
	"assetledger/internal/repository"
)

// InstanceService 实物单件台账服务接口。
// ChangeStatus 永不改 SourceLocation：所有权转移只走转移协议
type InstanceService interface {
	ChangeStatus(ctx context.Context, req ChangeStatusRequest) error
	GetInstance(ctx context.Context, instanceID string) (*domain.ItemInstance, error)
	GetInstanceByCode(ctx context.Context, code string) (*domain.ItemInstance, error)
	ListInstances(ctx context.Context, req ListInstancesRequest) ([]*domain.ItemInstance, error)
	// ListMovements 单件的完整移动台账（按时间序）
	ListMovements(ctx context.Context, instanceID string) ([]*domain.InstanceMovement, error)
	UpdateCondition(ctx context.Context, req UpdateConditionRequest) error
}

type instanceService struct {
	txm    repository.TxManager
	policy domain.AccessPolicy
	audit  *audit.Recorder
	logger *zap.Logger
}

func NewInstanceService(txm repository.TxManager, policy domain.AccessPolicy, rec *audit.Recorder, logger *zap.Logger) InstanceService {
	return &instanceService{txm: txm, policy: policy, audit: rec, logger: logger}
}

type ChangeStatusRequest struct {
	InstanceID string
	NewStatus  domain.InstanceStatus
	// LocationID 可选：状态变更伴随的物理位置移动
	LocationID string
	Note       string
	// 领用信息（进入 IN_USE / TEMPORARY_ISSUED 时）
	AssignedTo         string
	ExpectedReturnDate *time.Time
	// 维修/处置信息
	RepairCost     *float64
	DisposalReason string
	Actor          domain.Actor
}

// ChangeStatus 单件状态转换。
// 日期戳只在首次进入对应状态时落，后续重入不覆盖；
// 每次调用恰好追加一条移动台账
func (s *instanceService) ChangeStatus(ctx context.Context, req ChangeStatusRequest) error {
	if !req.NewStatus.Valid() {
		return domain.Validationf("new_status", "unknown status %s", req.NewStatus)
	}
	// IN_TRANSIT 由转移协议独占，不接受手工设置
	if req.NewStatus == domain.StatusInTransit {
		return domain.Preconditionf("IN_TRANSIT is set by the transfer protocol only")
	}
	if req.Actor.IsAuditor() {
		return domain.Preconditionf("auditor role is read-only")
	}

	var instCode string
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		inst, err := r.Instances.Get(ctx, req.InstanceID)
		if err != nil {
			return err
		}
		instCode = inst.InstanceCode
		if inst.CurrentStatus == domain.StatusDisposed {
			return domain.Preconditionf("instance %s is disposed", inst.InstanceCode)
		}
		if inst.CurrentStatus == domain.StatusInTransit {
			return domain.Preconditionf("instance %s is in transit, awaiting acknowledgment", inst.InstanceCode)
		}
		if inst.CurrentStatus == req.NewStatus && req.LocationID == "" {
			return domain.Preconditionf("instance %s is already %s", inst.InstanceCode, req.NewStatus)
		}
		owner, err := r.Locations.Get(ctx, inst.SourceLocationID)
		if err != nil {
			return err
		}
		if err := requireAccess(ctx, s.policy, req.Actor, owner); err != nil {
			return err
		}

		now := time.Now().UTC()
		prev := inst.CurrentStatus
		prevLocation := inst.CurrentLocationID

		inst.PreviousStatus = sql.NullString{String: string(prev), Valid: true}
		inst.CurrentStatus = req.NewStatus
		inst.StatusChangedBy = nullStr(req.Actor.ID)
		inst.StatusChangedAt = sql.NullTime{Time: now, Valid: true}
		if req.LocationID != "" {
			if _, err := r.Locations.Get(ctx, req.LocationID); err != nil {
				return err
			}
			inst.CurrentLocationID = req.LocationID
		}
		if req.Note != "" {
			inst.Notes = nullStr(req.Note)
		}

		// 状态特定副作用（首次进入才盖戳）
		switch req.NewStatus {
		case domain.StatusTemporaryIssued, domain.StatusInUse:
			if req.AssignedTo != "" {
				inst.AssignedTo = nullStr(req.AssignedTo)
			}
			if !inst.AssignedDate.Valid {
				inst.AssignedDate = sql.NullTime{Time: now, Valid: true}
			}
			if req.ExpectedReturnDate != nil {
				inst.ExpectedReturnDate = nullTime(req.ExpectedReturnDate)
			}
		case domain.StatusInStore:
			if prev == domain.StatusTemporaryIssued && !inst.ActualReturnDate.Valid {
				inst.ActualReturnDate = sql.NullTime{Time: now, Valid: true}
			}
			if prev == domain.StatusUnderRepair && !inst.RepairCompletedDate.Valid {
				inst.RepairCompletedDate = sql.NullTime{Time: now, Valid: true}
			}
		case domain.StatusUnderRepair:
			if !inst.RepairStartedDate.Valid {
				inst.RepairStartedDate = sql.NullTime{Time: now, Valid: true}
			}
			if req.RepairCost != nil {
				inst.RepairCost = nullFloat(req.RepairCost)
			}
		case domain.StatusDamaged:
			if !inst.DamageReportedDate.Valid {
				inst.DamageReportedDate = sql.NullTime{Time: now, Valid: true}
			}
			inst.Condition = domain.ConditionDamaged
		case domain.StatusDisposed, domain.StatusCondemned:
			if !inst.DisposalDate.Valid {
				inst.DisposalDate = sql.NullTime{Time: now, Valid: true}
			}
			if req.DisposalReason != "" {
				inst.DisposalReason = nullStr(req.DisposalReason)
			}
		}
		if err := r.Instances.Update(ctx, inst); err != nil {
			return err
		}

		movement := &domain.InstanceMovement{
			MovementID:     uuid.NewString(),
			InstanceID:     inst.InstanceID,
			FromLocationID: nullStr(prevLocation),
			ToLocationID:   nullStr(inst.CurrentLocationID),
			PreviousStatus: prev,
			NewStatus:      req.NewStatus,
			MovementType:   movementTypeFor(prev, req.NewStatus),
			MovedBy:        req.Actor.ID,
			MovedAt:        now,
			Remarks:        nullStr(req.Note),
		}
		if err := r.Movements.Append(ctx, movement); err != nil {
			return err
		}

		if err := recomputeInventory(ctx, r, inst.SourceLocationID, inst.ItemID, now); err != nil {
			return err
		}
		if inst.CurrentLocationID != inst.SourceLocationID && prevLocation != inst.CurrentLocationID {
			loc, err := r.Locations.Get(ctx, inst.CurrentLocationID)
			if err != nil {
				return err
			}
			if loc.IsStore {
				if err := recomputeInventory(ctx, r, loc.LocationID, inst.ItemID, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Event(ctx, "instance.status_changed", req.Actor.ID, map[string]any{
		"instance_id":   req.InstanceID,
		"instance_code": instCode,
		"new_status":    string(req.NewStatus),
	})
	return nil
}

// movementTypeFor 状态对映射到台账类型标签
func movementTypeFor(prev, next domain.InstanceStatus) domain.MovementType {
	switch next {
	case domain.StatusInUse, domain.StatusTemporaryIssued:
		return domain.MovementIssue
	case domain.StatusUnderRepair:
		return domain.MovementRepair
	case domain.StatusDamaged:
		return domain.MovementDamage
	case domain.StatusDisposed, domain.StatusCondemned:
		return domain.MovementDisposal
	case domain.StatusInStore:
		switch prev {
		case domain.StatusUnderRepair:
			return domain.MovementRepairReturn
		case domain.StatusInUse, domain.StatusTemporaryIssued:
			return domain.MovementReturn
		}
	}
	return domain.MovementStatusChange
}

func (s *instanceService) GetInstance(ctx context.Context, instanceID string) (*domain.ItemInstance, error) {
	return s.txm.Repos().Instances.Get(ctx, instanceID)
}

func (s *instanceService) GetInstanceByCode(ctx context.Context, code string) (*domain.ItemInstance, error) {
	return s.txm.Repos().Instances.GetByCode(ctx, code)
}

type ListInstancesRequest struct {
	ItemID            string
	SourceLocationID  string
	CurrentLocationID string
	Status            domain.InstanceStatus
	CertificateID     string
	AssignedTo        string
}

func (s *instanceService) ListInstances(ctx context.Context, req ListInstancesRequest) ([]*domain.ItemInstance, error) {
	return s.txm.Repos().Instances.List(ctx, repository.InstanceFilter{
		ItemID:            req.ItemID,
		SourceLocationID:  req.SourceLocationID,
		CurrentLocationID: req.CurrentLocationID,
		Status:            req.Status,
		CertificateID:     req.CertificateID,
		AssignedTo:        req.AssignedTo,
	})
}

func (s *instanceService) ListMovements(ctx context.Context, instanceID string) ([]*domain.InstanceMovement, error) {
	return s.txm.Repos().Movements.ListByInstance(ctx, instanceID)
}

type UpdateConditionRequest struct {
	InstanceID string
	Condition  domain.Condition
	Notes      string
	Actor      domain.Actor
}

// UpdateCondition 品相登记（不触发状态机，不记台账）
func (s *instanceService) UpdateCondition(ctx context.Context, req UpdateConditionRequest) error {
	if req.Actor.IsAuditor() {
		return domain.Preconditionf("auditor role is read-only")
	}
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		inst, err := r.Instances.Get(ctx, req.InstanceID)
		if err != nil {
			return err
		}
		owner, err := r.Locations.Get(ctx, inst.SourceLocationID)
		if err != nil {
			return err
		}
		if err := requireAccess(ctx, s.policy, req.Actor, owner); err != nil {
			return err
		}
		if req.Condition != "" {
			inst.Condition = req.Condition
		}
		if req.Notes != "" {
			inst.ConditionNotes = nullStr(req.Notes)
		}
		return r.Instances.Update(ctx, inst)
	})
}
