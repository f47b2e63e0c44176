package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/repository"
)

// CatalogService 类别与物品目录管理服务接口
type CatalogService interface {
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (string, error)
	UpdateCategory(ctx context.Context, req UpdateCategoryRequest) error
	GetCategory(ctx context.Context, categoryID string) (*domain.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error)

	CreateItem(ctx context.Context, req CreateItemRequest) (string, error)
	UpdateItem(ctx context.Context, req UpdateItemRequest) error
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
	ListItems(ctx context.Context, req ListItemsRequest) ([]*domain.Item, error)

	// DepreciationSchedule 某单件按类别 WDV 法的逐年折旧表（只读派生）
	DepreciationSchedule(ctx context.Context, instanceID string, years int) ([]domain.DepreciationYear, error)
}

type catalogService struct {
	txm    repository.TxManager
	logger *zap.Logger
}

func NewCatalogService(txm repository.TxManager, logger *zap.Logger) CatalogService {
	return &catalogService{txm: txm, logger: logger}
}

type CreateCategoryRequest struct {
	Code             string
	Name             string
	Description      string
	ParentCategoryID string
	DepreciationRate float64
	Actor            domain.Actor
}

func (s *catalogService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (string, error) {
	if req.Code == "" || req.Name == "" {
		return "", domain.Validationf("code", "code and name are required")
	}
	if req.DepreciationRate < 0 || req.DepreciationRate > 100 {
		return "", domain.Validationf("depreciation_rate", "depreciation rate must be between 0 and 100")
	}
	if req.Actor.IsAuditor() {
		return "", domain.Preconditionf("auditor role is read-only")
	}
	var id string
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		inUse, err := r.Items.CategoryCodeInUse(ctx, req.Code)
		if err != nil {
			return err
		}
		if inUse {
			return domain.Validationf("code", "category code %s already in use", req.Code)
		}
		cat := &domain.Category{
			CategoryID:       uuid.NewString(),
			Code:             req.Code,
			Name:             req.Name,
			Description:      nullStr(req.Description),
			ParentCategoryID: nullStr(req.ParentCategoryID),
			DepreciationRate: req.DepreciationRate,
			IsActive:         true,
			CreatedAt:        time.Now().UTC(),
		}
		if err := r.Items.CreateCategory(ctx, cat); err != nil {
			return err
		}
		id = cat.CategoryID
		return nil
	})
	return id, err
}

type UpdateCategoryRequest struct {
	CategoryID       string
	Name             string
	Description      string
	DepreciationRate *float64
	IsActive         *bool
	Actor            domain.Actor
}

func (s *catalogService) UpdateCategory(ctx context.Context, req UpdateCategoryRequest) error {
	if req.Actor.IsAuditor() {
		return domain.Preconditionf("auditor role is read-only")
	}
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		cat, err := r.Items.GetCategory(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if req.Name != "" {
			cat.Name = req.Name
		}
		if req.Description != "" {
			cat.Description = nullStr(req.Description)
		}
		if req.DepreciationRate != nil {
			if *req.DepreciationRate < 0 || *req.DepreciationRate > 100 {
				return domain.Validationf("depreciation_rate", "depreciation rate must be between 0 and 100")
			}
			cat.DepreciationRate = *req.DepreciationRate
		}
		if req.IsActive != nil {
			cat.IsActive = *req.IsActive
		}
		return r.Items.UpdateCategory(ctx, cat)
	})
}

func (s *catalogService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	return s.txm.Repos().Items.GetCategory(ctx, categoryID)
}

func (s *catalogService) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	return s.txm.Repos().Items.ListCategories(ctx, activeOnly)
}

type CreateItemRequest struct {
	Code              string
	Name              string
	CategoryID        string
	Description       string
	AcctUnit          string
	Specifications    string
	DefaultLocationID string
	ReorderLevel      int
	ReorderQuantity   int
	Actor             domain.Actor
}

func (s *catalogService) CreateItem(ctx context.Context, req CreateItemRequest) (string, error) {
	if req.Code == "" || req.Name == "" {
		return "", domain.Validationf("code", "code and name are required")
	}
	if req.CategoryID == "" {
		return "", domain.Validationf("category_id", "category_id is required")
	}
	if req.AcctUnit == "" {
		req.AcctUnit = "Nos"
	}
	if req.Actor.IsAuditor() {
		return "", domain.Preconditionf("auditor role is read-only")
	}
	var id string
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		if _, err := r.Items.GetCategory(ctx, req.CategoryID); err != nil {
			return err
		}
		inUse, err := r.Items.ItemCodeInUse(ctx, req.Code)
		if err != nil {
			return err
		}
		if inUse {
			return domain.Validationf("code", "item code %s already in use", req.Code)
		}
		loc, err := r.Locations.Get(ctx, req.DefaultLocationID)
		if err != nil {
			return err
		}
		if !loc.IsStandalone || loc.IsStore {
			return domain.Validationf("default_location_id", "default location must be a standalone location")
		}
		item := &domain.Item{
			ItemID:            uuid.NewString(),
			Code:              req.Code,
			Name:              req.Name,
			CategoryID:        req.CategoryID,
			Description:       nullStr(req.Description),
			AcctUnit:          req.AcctUnit,
			Specifications:    nullStr(req.Specifications),
			DefaultLocationID: loc.LocationID,
			ReorderLevel:      req.ReorderLevel,
			ReorderQuantity:   req.ReorderQuantity,
			IsActive:          true,
			CreatedBy:         req.Actor.ID,
			CreatedAt:         time.Now().UTC(),
		}
		if err := r.Items.CreateItem(ctx, item); err != nil {
			return err
		}
		id = item.ItemID
		return nil
	})
	return id, err
}

type UpdateItemRequest struct {
	ItemID          string
	Name            string
	Description     string
	Specifications  string
	ReorderLevel    *int
	ReorderQuantity *int
	IsActive        *bool
	Actor           domain.Actor
}

func (s *catalogService) UpdateItem(ctx context.Context, req UpdateItemRequest) error {
	if req.Actor.IsAuditor() {
		return domain.Preconditionf("auditor role is read-only")
	}
	return s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		item, err := r.Items.GetItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if req.Name != "" {
			item.Name = req.Name
		}
		if req.Description != "" {
			item.Description = nullStr(req.Description)
		}
		if req.Specifications != "" {
			item.Specifications = nullStr(req.Specifications)
		}
		if req.ReorderLevel != nil {
			item.ReorderLevel = *req.ReorderLevel
		}
		if req.ReorderQuantity != nil {
			item.ReorderQuantity = *req.ReorderQuantity
		}
		if req.IsActive != nil {
			item.IsActive = *req.IsActive
		}
		return r.Items.UpdateItem(ctx, item)
	})
}

func (s *catalogService) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.txm.Repos().Items.GetItem(ctx, itemID)
}

type ListItemsRequest struct {
	CategoryID string
	ActiveOnly bool
	Search     string
}

func (s *catalogService) ListItems(ctx context.Context, req ListItemsRequest) ([]*domain.Item, error) {
	return s.txm.Repos().Items.ListItems(ctx, repository.ItemFilter{
		CategoryID: req.CategoryID,
		ActiveOnly: req.ActiveOnly,
		Search:     req.Search,
	})
}

func (s *catalogService) DepreciationSchedule(ctx context.Context, instanceID string, years int) ([]domain.DepreciationYear, error) {
	if years <= 0 || years > 50 {
		return nil, domain.Validationf("years", "years must be between 1 and 50")
	}
	r := s.txm.Repos()
	inst, err := r.Instances.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if !inst.PurchaseValue.Valid {
		return nil, domain.Preconditionf("instance %s has no purchase value recorded", inst.InstanceCode)
	}
	item, err := r.Items.GetItem(ctx, inst.ItemID)
	if err != nil {
		return nil, err
	}
	cat, err := r.Items.GetCategory(ctx, item.CategoryID)
	if err != nil {
		return nil, err
	}
	return cat.DepreciationSchedule(inst.PurchaseValue.Float64, years), nil
}
