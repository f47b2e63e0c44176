package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/repository"
)

// LocationService 位置树管理服务接口
type LocationService interface {
	CreateLocation(ctx context.Context, req CreateLocationRequest) (*CreateLocationResponse, error)
	UpdateLocation(ctx context.Context, req UpdateLocationRequest) error
	DeactivateLocation(ctx context.Context, req DeactivateLocationRequest) error
	GetLocation(ctx context.Context, locationID string) (*domain.Location, error)
	ListLocations(ctx context.Context, req ListLocationsRequest) ([]*domain.Location, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Location, error)
	// ResolveCustodian 给任意位置解析其默认保管库（只读）
	ResolveCustodian(ctx context.Context, locationID string) (*domain.Location, error)
}

type locationService struct {
	txm    repository.TxManager
	policy domain.AccessPolicy
	logger *zap.Logger
}

func NewLocationService(txm repository.TxManager, policy domain.AccessPolicy, logger *zap.Logger) LocationService {
	return &locationService{txm: txm, policy: policy, logger: logger}
}

type CreateLocationRequest struct {
	Code         string
	Name         string
	LocationType domain.LocationType
	ParentID     string // 空 = 根节点
	IsStore      bool
	IsStandalone bool
	InCharge     string
	Address      string
	Description  string
	Actor        domain.Actor
}

type CreateLocationResponse struct {
	LocationID string `json:"location_id"`
	// PairedStoreID standalone 节点自动配套的主库（其余为空）
	PairedStoreID string `json:"paired_store_id,omitempty"`
}

// CreateLocation 创建位置节点。
// standalone 节点与其主库在同一事务内落库：不存在"创建成功但主库缺失"的可观察中间态
func (s *locationService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*CreateLocationResponse, error) {
	if req.Code == "" {
		return nil, domain.Validationf("code", "code is required")
	}
	if req.Name == "" {
		return nil, domain.Validationf("name", "name is required")
	}
	if req.LocationType == "" {
		return nil, domain.Validationf("location_type", "location_type is required")
	}
	if req.IsStore && req.IsStandalone {
		return nil, domain.Invariantf("a store cannot be standalone")
	}
	if req.Actor.IsAuditor() {
		return nil, domain.Preconditionf("auditor role is read-only")
	}

	resp := &CreateLocationResponse{}
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		inUse, err := r.Locations.CodeInUse(ctx, req.Code)
		if err != nil {
			return err
		}
		if inUse {
			return domain.Validationf("code", "location code %s already in use", req.Code)
		}

		now := time.Now().UTC()
		loc := &domain.Location{
			LocationID:   uuid.NewString(),
			Code:         req.Code,
			Name:         req.Name,
			LocationType: req.LocationType,
			IsStore:      req.IsStore,
			IsStandalone: req.IsStandalone,
			InCharge:     nullStr(req.InCharge),
			Address:      nullStr(req.Address),
			Description:  nullStr(req.Description),
			IsActive:     true,
			CreatedBy:    req.Actor.ID,
			CreatedAt:    now,
		}

		if req.ParentID == "" {
			// 根节点：全局唯一，必须 standalone，仅管理员可建
			if !req.Actor.IsAdmin() {
				return domain.Preconditionf("only an administrator can create the root location")
			}
			if !req.IsStandalone || req.IsStore {
				return domain.Invariantf("the root location must be standalone and not a store")
			}
			exists, err := r.Locations.RootExists(ctx)
			if err != nil {
				return err
			}
			if exists {
				return domain.Invariantf("a root location already exists")
			}
			loc.HierarchyLevel = 0
			loc.HierarchyPath = req.Code
		} else {
			parent, err := r.Locations.Get(ctx, req.ParentID)
			if err != nil {
				return err
			}
			if !parent.IsActive {
				return domain.Preconditionf("parent location %s is deactivated", parent.Code)
			}
			if parent.IsStore {
				return domain.Invariantf("a store cannot have children")
			}
			if err := requireAccess(ctx, s.policy, req.Actor, parent); err != nil {
				return err
			}
			cycle, err := wouldCycle(ctx, r.Locations, loc.LocationID, parent.LocationID)
			if err != nil {
				return err
			}
			if cycle {
				return domain.Invariantf("hierarchy cycle detected under %s", parent.Code)
			}
			loc.ParentID = sql.NullString{String: parent.LocationID, Valid: true}
			loc.HierarchyLevel = parent.HierarchyLevel + 1
			loc.HierarchyPath = parent.HierarchyPath + "/" + req.Code
		}

		if err := r.Locations.Create(ctx, loc); err != nil {
			return err
		}
		resp.LocationID = loc.LocationID

		// standalone 节点：同事务内配套主库并回链
		if loc.IsStandalone && !loc.IsStore {
			if loc.PairedStoreID.Valid {
				return domain.Invariantf("location %s already has a paired store", loc.Code)
			}
			existing, err := r.Locations.CountActiveMainStores(ctx, loc.LocationID)
			if err != nil {
				return err
			}
			if existing > 0 {
				return domain.Invariantf("location %s already has an active main store", loc.Code)
			}
			store := &domain.Location{
				LocationID:     uuid.NewString(),
				Code:           domain.MainStoreCode(loc.Code),
				Name:           domain.MainStoreName(loc.Name),
				LocationType:   domain.LocationStore,
				ParentID:       sql.NullString{String: loc.LocationID, Valid: true},
				IsStore:        true,
				IsMainStore:    true,
				IsAutoCreated:  true,
				InCharge:       loc.InCharge,
				HierarchyLevel: loc.HierarchyLevel + 1,
				HierarchyPath:  loc.HierarchyPath + "/" + domain.MainStoreCode(loc.Code),
				IsActive:       true,
				CreatedBy:      req.Actor.ID,
				CreatedAt:      now,
			}
			if err := r.Locations.Create(ctx, store); err != nil {
				return err
			}
			loc.PairedStoreID = sql.NullString{String: store.LocationID, Valid: true}
			if err := r.Locations.Update(ctx, loc); err != nil {
				return err
			}
			resp.PairedStoreID = store.LocationID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("location created",
		zap.String("location_id", resp.LocationID),
		zap.String("code", req.Code),
		zap.Bool("standalone", req.IsStandalone))
	return resp, nil
}

type UpdateLocationRequest struct {
	LocationID  string
	Name        string
	InCharge    string
	Address     string
	Description string
	Actor       domain.Actor
}

// UpdateLocation 非结构性字段更新（不支持移树，结构一经落库不变）
func (s *locationService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.Actor.IsAuditor() {
		return domain.Preconditionf("auditor role is read-only")
	}
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		loc, err := r.Locations.Get(ctx, req.LocationID)
		if err != nil {
			return err
		}
		if err := requireAccess(ctx, s.policy, req.Actor, loc); err != nil {
			return err
		}
		if req.Name != "" {
			loc.Name = req.Name
		}
		if req.InCharge != "" {
			loc.InCharge = nullStr(req.InCharge)
		}
		if req.Address != "" {
			loc.Address = nullStr(req.Address)
		}
		if req.Description != "" {
			loc.Description = nullStr(req.Description)
		}
		return r.Locations.Update(ctx, loc)
	})
}

type DeactivateLocationRequest struct {
	LocationID string
	Actor      domain.Actor
}

// DeactivateLocation 软停用。持有在册单件或仍有启用子节点的位置不可停用；
// 自动配套的主库不可在其 standalone 节点启用期间单独停用
func (s *locationService) DeactivateLocation(ctx context.Context, req DeactivateLocationRequest) error {
	if req.Actor.IsAuditor() {
		return domain.Preconditionf("auditor role is read-only")
	}
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		loc, err := r.Locations.Get(ctx, req.LocationID)
		if err != nil {
			return err
		}
		if !loc.IsActive {
			return domain.Preconditionf("location %s is already deactivated", loc.Code)
		}
		if err := requireAccess(ctx, s.policy, req.Actor, loc); err != nil {
			return err
		}
		children, err := r.Locations.CountActiveChildren(ctx, loc.LocationID)
		if err != nil {
			return err
		}
		if children > 0 {
			return domain.Preconditionf("location %s still has %d active child locations", loc.Code, children)
		}
		held, err := r.Instances.CountBySourceLocation(ctx, loc.LocationID)
		if err != nil {
			return err
		}
		if held > 0 {
			return domain.Preconditionf("location %s still holds %d asset instances", loc.Code, held)
		}
		if loc.IsAutoCreated && loc.IsMainStore && loc.ParentID.Valid {
			parent, err := r.Locations.Get(ctx, loc.ParentID.String)
			if err != nil {
				return err
			}
			if parent.IsActive {
				return domain.Preconditionf("main store %s cannot be deactivated while %s is active", loc.Code, parent.Code)
			}
		}
		loc.IsActive = false
		return r.Locations.Update(ctx, loc)
	})
}

func (s *locationService) GetLocation(ctx context.Context, locationID string) (*domain.Location, error) {
	return s.txm.Repos().Locations.Get(ctx, locationID)
}

type ListLocationsRequest struct {
	LocationType domain.LocationType
	Standalone   *bool
	StoresOnly   bool
	ActiveOnly   bool
	Search       string
}

func (s *locationService) ListLocations(ctx context.Context, req ListLocationsRequest) ([]*domain.Location, error) {
	return s.txm.Repos().Locations.List(ctx, repository.LocationFilter{
		LocationType: req.LocationType,
		Standalone:   req.Standalone,
		StoresOnly:   req.StoresOnly,
		ActiveOnly:   req.ActiveOnly,
		Search:       req.Search,
	})
}

func (s *locationService) ListChildren(ctx context.Context, parentID string) ([]*domain.Location, error) {
	return s.txm.Repos().Locations.Children(ctx, parentID)
}

func (s *locationService) ResolveCustodian(ctx context.Context, locationID string) (*domain.Location, error) {
	locs := s.txm.Repos().Locations
	loc, err := locs.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return resolveMainCustodian(ctx, locs, loc)
}
