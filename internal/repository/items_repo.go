package repository

import (
	"context"

	"assetledger/internal/domain"
)

// ItemFilter 物品目录过滤条件
type ItemFilter struct {
	CategoryID string
	ActiveOnly bool
	Search     string
}

// ItemsRepository 类别与物品目录仓储接口
type ItemsRepository interface {
	CreateCategory(ctx context.Context, cat *domain.Category) error
	UpdateCategory(ctx context.Context, cat *domain.Category) error
	GetCategory(ctx context.Context, categoryID string) (*domain.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	CategoryCodeInUse(ctx context.Context, code string) (bool, error)

	CreateItem(ctx context.Context, item *domain.Item) error
	UpdateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
	GetItemByCode(ctx context.Context, code string) (*domain.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*domain.Item, error)
	ItemCodeInUse(ctx context.Context, code string) (bool, error)
}
