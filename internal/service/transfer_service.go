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
	"assetledger/internal/notify"
	"assetledger/internal/repository"
)

// TransferService 两段式转移协议服务接口。
// PENDING_ACK 是持久中间态：确认方稍后回调，发起进程可能早已退出
type TransferService interface {
	CreateIssue(ctx context.Context, req CreateIssueRequest) (*CreateIssueResponse, error)
	AcknowledgeReceipt(ctx context.Context, req AcknowledgeReceiptRequest) (*AcknowledgeReceiptResponse, error)
	AcknowledgeReturn(ctx context.Context, req AcknowledgeReturnRequest) (*AcknowledgeReturnResponse, error)
	CreateCorrection(ctx context.Context, req CreateCorrectionRequest) (string, error)

	GetEntry(ctx context.Context, entryID string) (*domain.StockEntry, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) ([]*domain.StockEntry, error)
	// ListPendingAcknowledgments 某库的待确认队列
	ListPendingAcknowledgments(ctx context.Context, locationID string) ([]*domain.StockEntry, error)
}

type transferService struct {
	txm      repository.TxManager
	policy   domain.AccessPolicy
	audit    *audit.Recorder
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewTransferService(txm repository.TxManager, policy domain.AccessPolicy, rec *audit.Recorder, notifier notify.Notifier, logger *zap.Logger) TransferService {
	return &transferService{txm: txm, policy: policy, audit: rec, notifier: notifier, logger: logger}
}

type CreateIssueRequest struct {
	FromLocationID string
	ToLocationID   string
	ItemID         string
	InstanceIDs    []string
	// 临时领用
	IsTemporary        bool
	ExpectedReturnDate *time.Time
	TemporaryRecipient string
	Purpose            string
	Remarks            string
	Actor              domain.Actor
}

type CreateIssueResponse struct {
	EntryID     string `json:"entry_id"`
	EntryNumber string `json:"entry_number"`
	// Pending true 表示两段式（目的地是库房，等待确认）
	Pending bool `json:"pending"`
	// ResolvedToLocationID 实际目的地（standalone 会被解析为其主库）
	ResolvedToLocationID string `json:"resolved_to_location_id"`
}

// CreateIssue 发起转移/领用。
// 目的地是库房走两段式（IN_TRANSIT + PENDING_ACK）；
// 非库房目的地（房间/实验室）单段完成
func (s *transferService) CreateIssue(ctx context.Context, req CreateIssueRequest) (*CreateIssueResponse, error) {
	if len(req.InstanceIDs) == 0 {
		return nil, domain.Validationf("instance_ids", "at least one instance is required")
	}
	if req.Actor.IsAuditor() {
		return nil, domain.Preconditionf("auditor role is read-only")
	}
	if req.IsTemporary && req.ExpectedReturnDate == nil {
		return nil, domain.Validationf("expected_return_date", "temporary issues need an expected return date")
	}

	resp := &CreateIssueResponse{}
	var ev notify.TransferEvent
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		from, err := r.Locations.Get(ctx, req.FromLocationID)
		if err != nil {
			return err
		}
		if !from.IsStore || !from.IsActive {
			return domain.Preconditionf("issues originate from an active store, %s is not one", from.Code)
		}
		if !req.Actor.IsAdmin() && !isCustodianOf(ctx, s.policy, req.Actor, from) {
			return domain.Preconditionf("only the custodian of %s can issue from it", from.Code)
		}

		to, err := r.Locations.Get(ctx, req.ToLocationID)
		if err != nil {
			return err
		}
		// standalone 目的地解析为其主库，不直接使用
		if to.IsStandalone && !to.IsStore {
			to, err = resolveMainCustodian(ctx, r.Locations, to)
			if err != nil {
				return err
			}
		}
		if !to.IsActive {
			return domain.Preconditionf("destination %s is deactivated", to.Code)
		}
		if to.LocationID == from.LocationID {
			return domain.Validationf("to_location_id", "destination equals source")
		}

		eligible, upward, err := canTransfer(ctx, r.Locations, from, to)
		if err != nil {
			return err
		}
		if !eligible {
			return domain.Preconditionf("transfer from %s to %s is not allowed by the hierarchy", from.Code, to.Code)
		}

		instances, err := r.Instances.ListByIDs(ctx, req.InstanceIDs)
		if err != nil {
			return err
		}
		if len(instances) != len(req.InstanceIDs) {
			return domain.Validationf("instance_ids", "one or more instances do not exist")
		}
		for _, inst := range instances {
			if inst.ItemID != req.ItemID {
				return domain.Validationf("instance_ids", "instance %s is a different item", inst.InstanceCode)
			}
			if inst.CurrentStatus != domain.StatusInStore {
				return domain.Preconditionf("instance %s is %s, not IN_STORE", inst.InstanceCode, inst.CurrentStatus)
			}
			if inst.SourceLocationID != from.LocationID {
				return domain.Preconditionf("instance %s is not owned by %s", inst.InstanceCode, from.Code)
			}
			if inst.CurrentLocationID != from.LocationID {
				return domain.Preconditionf("instance %s is not physically at %s", inst.InstanceCode, from.Code)
			}
		}

		now := time.Now().UTC()
		day := now.Format("20060102")
		seq, err := r.Entries.NextSeq(ctx, domain.EntryIssue, day)
		if err != nil {
			return err
		}
		twoPhase := to.IsStore
		entry := &domain.StockEntry{
			EntryID:                uuid.NewString(),
			EntryNumber:            fmt.Sprintf("%s-%s-%04d", domain.EntryIssue, day, seq),
			EntryType:              domain.EntryIssue,
			Status:                 domain.EntryCompleted,
			EntryDate:              now,
			FromLocationID:         sql.NullString{String: from.LocationID, Valid: true},
			ToLocationID:           to.LocationID,
			ItemID:                 req.ItemID,
			Quantity:               len(instances),
			InstanceIDs:            req.InstanceIDs,
			IsTemporary:            req.IsTemporary,
			ExpectedReturnDate:     nullTime(req.ExpectedReturnDate),
			TemporaryRecipient:     nullStr(req.TemporaryRecipient),
			RequiresAcknowledgment: twoPhase,
			IsCrossHierarchy:       upward,
			IsUpwardTransfer:       upward,
			Purpose:                nullStr(req.Purpose),
			Remarks:                nullStr(req.Remarks),
			CreatedBy:              req.Actor.ID,
			CreatedAt:              now,
		}
		if twoPhase {
			entry.Status = domain.EntryPendingAck
		}
		if err := r.Entries.Create(ctx, entry); err != nil {
			return err
		}

		movementType := domain.MovementTransfer
		if upward {
			movementType = domain.MovementUpwardTransfer
		}
		for _, inst := range instances {
			prev := inst.CurrentStatus
			inst.PreviousStatus = sql.NullString{String: string(prev), Valid: true}
			inst.StatusChangedBy = nullStr(req.Actor.ID)
			inst.StatusChangedAt = sql.NullTime{Time: now, Valid: true}
			if twoPhase {
				// 所有权不动；在途期间物理位置仍记在发出方
				inst.CurrentStatus = domain.StatusInTransit
			} else {
				if req.IsTemporary {
					inst.CurrentStatus = domain.StatusTemporaryIssued
				} else {
					inst.CurrentStatus = domain.StatusInUse
				}
				inst.CurrentLocationID = to.LocationID
				inst.AssignedTo = nullStr(req.TemporaryRecipient)
				if !inst.AssignedDate.Valid {
					inst.AssignedDate = sql.NullTime{Time: now, Valid: true}
				}
				inst.ExpectedReturnDate = nullTime(req.ExpectedReturnDate)
			}
			if err := r.Instances.Update(ctx, inst); err != nil {
				return err
			}
			mType := movementType
			if !twoPhase {
				mType = domain.MovementIssue
			}
			movement := &domain.InstanceMovement{
				MovementID:             uuid.NewString(),
				InstanceID:             inst.InstanceID,
				StockEntryID:           sql.NullString{String: entry.EntryID, Valid: true},
				FromLocationID:         sql.NullString{String: from.LocationID, Valid: true},
				ToLocationID:           sql.NullString{String: to.LocationID, Valid: true},
				PreviousStatus:         prev,
				NewStatus:              inst.CurrentStatus,
				MovementType:           mType,
				MovedBy:                req.Actor.ID,
				MovedAt:                now,
				RequiresAcknowledgment: twoPhase,
				IsCrossHierarchy:       upward,
				IsUpwardTransfer:       upward,
			}
			if err := r.Movements.Append(ctx, movement); err != nil {
				return err
			}
		}

		if err := recomputeInventory(ctx, r, from.LocationID, req.ItemID, now); err != nil {
			return err
		}
		if twoPhase {
			if err := recomputeInventory(ctx, r, to.LocationID, req.ItemID, now); err != nil {
				return err
			}
		}

		resp.EntryID = entry.EntryID
		resp.EntryNumber = entry.EntryNumber
		resp.Pending = twoPhase
		resp.ResolvedToLocationID = to.LocationID
		ev = notify.TransferEvent{
			EntryID:        entry.EntryID,
			EntryNumber:    entry.EntryNumber,
			EntryType:      string(entry.EntryType),
			FromLocationID: from.LocationID,
			ToLocationID:   to.LocationID,
			ItemID:         req.ItemID,
			Quantity:       entry.Quantity,
			CreatedBy:      req.Actor.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, "transfer.issued", req.Actor.ID, map[string]any{
		"entry_id":     resp.EntryID,
		"entry_number": resp.EntryNumber,
		"pending":      resp.Pending,
	})
	if resp.Pending {
		s.notifier.TransferPending(ctx, ev)
	}
	return resp, nil
}

type AcknowledgeReceiptRequest struct {
	EntryID     string
	AcceptedIDs []string
	RejectedIDs []string
	Remarks     string
	Actor       domain.Actor
}

type AcknowledgeReceiptResponse struct {
	ReceiptEntryID string `json:"receipt_entry_id,omitempty"`
	ReturnEntryID  string `json:"return_entry_id,omitempty"`
}

// AcknowledgeReceipt 第一段确认：接受方拆分接受/拒收。
// 接受的单件在此刻完成所有权转移；拒收的保持在途并开出待确认的退回单。
// 乐观检查钉住 PENDING_ACK：并发确认只有一个成功，失败方收到前置条件错误
func (s *transferService) AcknowledgeReceipt(ctx context.Context, req AcknowledgeReceiptRequest) (*AcknowledgeReceiptResponse, error) {
	if req.Actor.IsAuditor() {
		return nil, domain.Preconditionf("auditor role is read-only")
	}
	resp := &AcknowledgeReceiptResponse{}
	var ev notify.TransferEvent
	var accepted bool
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		entry, err := r.Entries.Get(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if entry.EntryType != domain.EntryIssue {
			return domain.Preconditionf("entry %s is not an issue", entry.EntryNumber)
		}
		if entry.Status != domain.EntryPendingAck {
			return domain.Preconditionf("entry %s is %s, not awaiting acknowledgment", entry.EntryNumber, entry.Status)
		}
		to, err := r.Locations.Get(ctx, entry.ToLocationID)
		if err != nil {
			return err
		}
		if !req.Actor.IsAdmin() && !isCustodianOf(ctx, s.policy, req.Actor, to) {
			return domain.Preconditionf("only the custodian of %s can acknowledge entry %s", to.Code, entry.EntryNumber)
		}
		if err := validateSplit(entry.InstanceIDs, req.AcceptedIDs, req.RejectedIDs); err != nil {
			return err
		}
		// 先校验后写入：全部单件必须仍在途，部分确认不是可接受的结果
		all, err := r.Instances.ListByIDs(ctx, entry.InstanceIDs)
		if err != nil {
			return err
		}
		for _, inst := range all {
			if inst.CurrentStatus != domain.StatusInTransit {
				return domain.Preconditionf("instance %s is not in transit", inst.InstanceCode)
			}
		}

		now := time.Now().UTC()
		// 乐观 CAS：另一个确认已落库则在此失败，绝不静默重试
		ok, err := r.Entries.CompleteIfPending(ctx, entry.EntryID, req.Actor.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Preconditionf("entry %s was already acknowledged", entry.EntryNumber)
		}

		day := now.Format("20060102")

		if len(req.AcceptedIDs) > 0 {
			for _, instanceID := range req.AcceptedIDs {
				inst, err := r.Instances.Get(ctx, instanceID)
				if err != nil {
					return err
				}
				if inst.CurrentStatus != domain.StatusInTransit {
					return domain.Preconditionf("instance %s is not in transit", inst.InstanceCode)
				}
				prev := inst.CurrentStatus
				inst.PreviousStatus = sql.NullString{String: string(prev), Valid: true}
				inst.CurrentStatus = domain.StatusInStore
				// 所有权转移发生且仅发生在这里
				inst.SourceLocationID = to.LocationID
				inst.CurrentLocationID = to.LocationID
				inst.StatusChangedBy = nullStr(req.Actor.ID)
				inst.StatusChangedAt = sql.NullTime{Time: now, Valid: true}
				if err := r.Instances.Update(ctx, inst); err != nil {
					return err
				}
			}
			seq, err := r.Entries.NextSeq(ctx, domain.EntryReceipt, day)
			if err != nil {
				return err
			}
			receipt := &domain.StockEntry{
				EntryID:          uuid.NewString(),
				EntryNumber:      fmt.Sprintf("%s-%s-%04d", domain.EntryReceipt, day, seq),
				EntryType:        domain.EntryReceipt,
				Status:           domain.EntryCompleted,
				EntryDate:        now,
				FromLocationID:   entry.FromLocationID,
				ToLocationID:     to.LocationID,
				ItemID:           entry.ItemID,
				Quantity:         len(req.AcceptedIDs),
				InstanceIDs:      req.AcceptedIDs,
				ReferenceEntryID: sql.NullString{String: entry.EntryID, Valid: true},
				Remarks:          nullStr(req.Remarks),
				CreatedBy:        req.Actor.ID,
				AcknowledgedBy:   nullStr(req.Actor.ID),
				AcknowledgedAt:   sql.NullTime{Time: now, Valid: true},
				CreatedAt:        now,
			}
			if err := r.Entries.Create(ctx, receipt); err != nil {
				return err
			}
			for _, instanceID := range req.AcceptedIDs {
				movement := &domain.InstanceMovement{
					MovementID:     uuid.NewString(),
					InstanceID:     instanceID,
					StockEntryID:   sql.NullString{String: receipt.EntryID, Valid: true},
					FromLocationID: entry.FromLocationID,
					ToLocationID:   sql.NullString{String: to.LocationID, Valid: true},
					PreviousStatus: domain.StatusInTransit,
					NewStatus:      domain.StatusInStore,
					MovementType:   domain.MovementReceipt,
					MovedBy:        req.Actor.ID,
					MovedAt:        now,
					Acknowledged:   true,
					AcknowledgedBy: nullStr(req.Actor.ID),
					AcknowledgedAt: sql.NullTime{Time: now, Valid: true},
				}
				if err := r.Movements.Append(ctx, movement); err != nil {
					return err
				}
			}
			resp.ReceiptEntryID = receipt.EntryID
		}

		if len(req.RejectedIDs) > 0 {
			if !entry.FromLocationID.Valid {
				return domain.Invariantf("issue entry %s has no source location", entry.EntryNumber)
			}
			seq, err := r.Entries.NextSeq(ctx, domain.EntryReturn, day)
			if err != nil {
				return err
			}
			ret := &domain.StockEntry{
				EntryID:                uuid.NewString(),
				EntryNumber:            fmt.Sprintf("%s-%s-%04d", domain.EntryReturn, day, seq),
				EntryType:              domain.EntryReturn,
				Status:                 domain.EntryPendingAck,
				EntryDate:              now,
				FromLocationID:         sql.NullString{String: to.LocationID, Valid: true},
				ToLocationID:           entry.FromLocationID.String,
				ItemID:                 entry.ItemID,
				Quantity:               len(req.RejectedIDs),
				InstanceIDs:            req.RejectedIDs,
				ReferenceEntryID:       sql.NullString{String: entry.EntryID, Valid: true},
				RequiresAcknowledgment: true,
				Remarks:                nullStr(req.Remarks),
				CreatedBy:              req.Actor.ID,
				CreatedAt:              now,
			}
			if err := r.Entries.Create(ctx, ret); err != nil {
				return err
			}
			for _, instanceID := range req.RejectedIDs {
				inst, err := r.Instances.Get(ctx, instanceID)
				if err != nil {
					return err
				}
				if inst.CurrentStatus != domain.StatusInTransit {
					return domain.Preconditionf("instance %s is not in transit", inst.InstanceCode)
				}
				// 所有权未转移：sourceLocation 原样，物理位置折返发出方
				inst.CurrentLocationID = entry.FromLocationID.String
				inst.StatusChangedBy = nullStr(req.Actor.ID)
				inst.StatusChangedAt = sql.NullTime{Time: now, Valid: true}
				if err := r.Instances.Update(ctx, inst); err != nil {
					return err
				}
				movement := &domain.InstanceMovement{
					MovementID:             uuid.NewString(),
					InstanceID:             instanceID,
					StockEntryID:           sql.NullString{String: ret.EntryID, Valid: true},
					FromLocationID:         sql.NullString{String: to.LocationID, Valid: true},
					ToLocationID:           entry.FromLocationID,
					PreviousStatus:         domain.StatusInTransit,
					NewStatus:              domain.StatusInTransit,
					MovementType:           domain.MovementReturn,
					MovedBy:                req.Actor.ID,
					MovedAt:                now,
					RequiresAcknowledgment: true,
				}
				if err := r.Movements.Append(ctx, movement); err != nil {
					return err
				}
			}
			resp.ReturnEntryID = ret.EntryID
		}

		if entry.FromLocationID.Valid {
			if err := recomputeInventory(ctx, r, entry.FromLocationID.String, entry.ItemID, now); err != nil {
				return err
			}
		}
		if err := recomputeInventory(ctx, r, to.LocationID, entry.ItemID, now); err != nil {
			return err
		}

		accepted = len(req.AcceptedIDs) > 0
		ev = notify.TransferEvent{
			EntryID:        entry.EntryID,
			EntryNumber:    entry.EntryNumber,
			EntryType:      string(entry.EntryType),
			FromLocationID: entry.FromLocationID.String,
			ToLocationID:   to.LocationID,
			ItemID:         entry.ItemID,
			Quantity:       entry.Quantity,
			CreatedBy:      entry.CreatedBy,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, "transfer.acknowledged", req.Actor.ID, map[string]any{
		"entry_id": req.EntryID,
		"accepted": len(req.AcceptedIDs),
		"rejected": len(req.RejectedIDs),
	})
	s.notifier.TransferSettled(ctx, ev, accepted)
	return resp, nil
}

type AcknowledgeReturnRequest struct {
	EntryID string
	Remarks string
	Actor   domain.Actor
}

type AcknowledgeReturnResponse struct {
	ReceiptEntryID string `json:"receipt_entry_id"`
}

// AcknowledgeReturn 第二段确认：发出方收回被拒收的单件。
// 被拒的转移总是恰好经过两次确认才重新可用
func (s *transferService) AcknowledgeReturn(ctx context.Context, req AcknowledgeReturnRequest) (*AcknowledgeReturnResponse, error) {
	if req.Actor.IsAuditor() {
		return nil, domain.Preconditionf("auditor role is read-only")
	}
	resp := &AcknowledgeReturnResponse{}
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		entry, err := r.Entries.Get(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if entry.EntryType != domain.EntryReturn {
			return domain.Preconditionf("entry %s is not a return", entry.EntryNumber)
		}
		if entry.Status != domain.EntryPendingAck {
			return domain.Preconditionf("entry %s is %s, not awaiting acknowledgment", entry.EntryNumber, entry.Status)
		}
		to, err := r.Locations.Get(ctx, entry.ToLocationID)
		if err != nil {
			return err
		}
		if !req.Actor.IsAdmin() && !isCustodianOf(ctx, s.policy, req.Actor, to) {
			return domain.Preconditionf("only the custodian of %s can acknowledge entry %s", to.Code, entry.EntryNumber)
		}
		all, err := r.Instances.ListByIDs(ctx, entry.InstanceIDs)
		if err != nil {
			return err
		}
		for _, inst := range all {
			if inst.CurrentStatus != domain.StatusInTransit {
				return domain.Preconditionf("instance %s is not in transit", inst.InstanceCode)
			}
		}

		now := time.Now().UTC()
		ok, err := r.Entries.CompleteIfPending(ctx, entry.EntryID, req.Actor.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Preconditionf("entry %s was already acknowledged", entry.EntryNumber)
		}

		day := now.Format("20060102")
		seq, err := r.Entries.NextSeq(ctx, domain.EntryReceipt, day)
		if err != nil {
			return err
		}
		receipt := &domain.StockEntry{
			EntryID:          uuid.NewString(),
			EntryNumber:      fmt.Sprintf("%s-%s-%04d", domain.EntryReceipt, day, seq),
			EntryType:        domain.EntryReceipt,
			Status:           domain.EntryCompleted,
			EntryDate:        now,
			FromLocationID:   entry.FromLocationID,
			ToLocationID:     to.LocationID,
			ItemID:           entry.ItemID,
			Quantity:         entry.Quantity,
			InstanceIDs:      entry.InstanceIDs,
			ReferenceEntryID: sql.NullString{String: entry.EntryID, Valid: true},
			Remarks:          nullStr(req.Remarks),
			CreatedBy:        req.Actor.ID,
			AcknowledgedBy:   nullStr(req.Actor.ID),
			AcknowledgedAt:   sql.NullTime{Time: now, Valid: true},
			CreatedAt:        now,
		}
		if err := r.Entries.Create(ctx, receipt); err != nil {
			return err
		}

		for _, instanceID := range entry.InstanceIDs {
			inst, err := r.Instances.Get(ctx, instanceID)
			if err != nil {
				return err
			}
			if inst.CurrentStatus != domain.StatusInTransit {
				return domain.Preconditionf("instance %s is not in transit", inst.InstanceCode)
			}
			inst.PreviousStatus = sql.NullString{String: string(inst.CurrentStatus), Valid: true}
			inst.CurrentStatus = domain.StatusInStore
			inst.CurrentLocationID = to.LocationID
			inst.StatusChangedBy = nullStr(req.Actor.ID)
			inst.StatusChangedAt = sql.NullTime{Time: now, Valid: true}
			if err := r.Instances.Update(ctx, inst); err != nil {
				return err
			}
			movement := &domain.InstanceMovement{
				MovementID:     uuid.NewString(),
				InstanceID:     instanceID,
				StockEntryID:   sql.NullString{String: receipt.EntryID, Valid: true},
				FromLocationID: entry.FromLocationID,
				ToLocationID:   sql.NullString{String: to.LocationID, Valid: true},
				PreviousStatus: domain.StatusInTransit,
				NewStatus:      domain.StatusInStore,
				MovementType:   domain.MovementReceipt,
				MovedBy:        req.Actor.ID,
				MovedAt:        now,
				Acknowledged:   true,
				AcknowledgedBy: nullStr(req.Actor.ID),
				AcknowledgedAt: sql.NullTime{Time: now, Valid: true},
			}
			if err := r.Movements.Append(ctx, movement); err != nil {
				return err
			}
		}

		if err := recomputeInventory(ctx, r, to.LocationID, entry.ItemID, now); err != nil {
			return err
		}
		if entry.FromLocationID.Valid {
			if err := recomputeInventory(ctx, r, entry.FromLocationID.String, entry.ItemID, now); err != nil {
				return err
			}
		}
		resp.ReceiptEntryID = receipt.EntryID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, "transfer.return_acknowledged", req.Actor.ID, map[string]any{
		"entry_id":         req.EntryID,
		"receipt_entry_id": resp.ReceiptEntryID,
	})
	return resp, nil
}

type CreateCorrectionRequest struct {
	LocationID string
	ItemID     string
	Quantity   int
	Remarks    string
	Actor      domain.Actor
}

// CreateCorrection 盘点修正：记一张 CORRECTION 单并整行重算汇总
func (s *transferService) CreateCorrection(ctx context.Context, req CreateCorrectionRequest) (string, error) {
	if req.Remarks == "" {
		return "", domain.Validationf("remarks", "a correction needs an explanation")
	}
	if req.Actor.IsAuditor() {
		return "", domain.Preconditionf("auditor role is read-only")
	}
	var entryID string
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		loc, err := r.Locations.Get(ctx, req.LocationID)
		if err != nil {
			return err
		}
		if !loc.IsStore {
			return domain.Preconditionf("corrections apply to stores, %s is not one", loc.Code)
		}
		if !req.Actor.IsAdmin() && !isCustodianOf(ctx, s.policy, req.Actor, loc) {
			return domain.Preconditionf("only the custodian of %s can record a correction", loc.Code)
		}
		if _, err := r.Items.GetItem(ctx, req.ItemID); err != nil {
			return err
		}
		now := time.Now().UTC()
		day := now.Format("20060102")
		seq, err := r.Entries.NextSeq(ctx, domain.EntryCorrection, day)
		if err != nil {
			return err
		}
		entry := &domain.StockEntry{
			EntryID:      uuid.NewString(),
			EntryNumber:  fmt.Sprintf("%s-%s-%04d", domain.EntryCorrection, day, seq),
			EntryType:    domain.EntryCorrection,
			Status:       domain.EntryCompleted,
			EntryDate:    now,
			ToLocationID: loc.LocationID,
			ItemID:       req.ItemID,
			Quantity:     req.Quantity,
			Remarks:      nullStr(req.Remarks),
			CreatedBy:    req.Actor.ID,
			CreatedAt:    now,
		}
		if err := r.Entries.Create(ctx, entry); err != nil {
			return err
		}
		entryID = entry.EntryID
		return recomputeInventory(ctx, r, loc.LocationID, req.ItemID, now)
	})
	if err != nil {
		return "", err
	}
	s.audit.Event(ctx, "inventory.corrected", req.Actor.ID, map[string]any{
		"entry_id":    entryID,
		"location_id": req.LocationID,
		"item_id":     req.ItemID,
	})
	return entryID, nil
}

func (s *transferService) GetEntry(ctx context.Context, entryID string) (*domain.StockEntry, error) {
	return s.txm.Repos().Entries.Get(ctx, entryID)
}

type ListEntriesRequest struct {
	EntryType      domain.EntryType
	Status         domain.EntryStatus
	ToLocationID   string
	FromLocationID string
	ItemID         string
}

func (s *transferService) ListEntries(ctx context.Context, req ListEntriesRequest) ([]*domain.StockEntry, error) {
	return s.txm.Repos().Entries.List(ctx, repository.EntryFilter{
		EntryType:      req.EntryType,
		Status:         req.Status,
		ToLocationID:   req.ToLocationID,
		FromLocationID: req.FromLocationID,
		ItemID:         req.ItemID,
	})
}

func (s *transferService) ListPendingAcknowledgments(ctx context.Context, locationID string) ([]*domain.StockEntry, error) {
	return s.txm.Repos().Entries.List(ctx, repository.EntryFilter{
		ToLocationID:   locationID,
		PendingAckOnly: true,
	})
}

// validateSplit 接受/拒收必须恰好划分签发单的单件集合
func validateSplit(issued, accepted, rejected []string) error {
	issuedSet := map[string]bool{}
	for _, id := range issued {
		issuedSet[id] = true
	}
	seen := map[string]bool{}
	for _, id := range append(append([]string{}, accepted...), rejected...) {
		if !issuedSet[id] {
			return domain.Validationf("instance_ids", "instance %s is not part of the entry", id)
		}
		if seen[id] {
			return domain.Validationf("instance_ids", "instance %s appears twice in the split", id)
		}
		seen[id] = true
	}
	if len(seen) != len(issuedSet) {
		return domain.Validationf("instance_ids", "the split must cover every issued instance")
	}
	return nil
}
