package repository

import (
	"context"

	"assetledger/internal/domain"
)

// LocationFilter 位置列表过滤条件
type LocationFilter struct {
	LocationType domain.LocationType // 为空则不过滤
	ParentID     string
	Standalone   *bool // nil 不过滤
	StoresOnly   bool
	ActiveOnly   bool
	Search       string // code / name 模糊匹配
}

// LocationsRepository 位置仓储接口
// Get/GetByCode 未命中返回 *domain.NotFoundError
type LocationsRepository interface {
	Create(ctx context.Context, loc *domain.Location) error
	Update(ctx context.Context, loc *domain.Location) error
	Get(ctx context.Context, locationID string) (*domain.Location, error)
	GetByCode(ctx context.Context, code string) (*domain.Location, error)
	List(ctx context.Context, filter LocationFilter) ([]*domain.Location, error)

	// Children 直接子节点（含已停用）
	Children(ctx context.Context, parentID string) ([]*domain.Location, error)
	// CountActiveChildren 停用前的空树校验用
	CountActiveChildren(ctx context.Context, parentID string) (int, error)
	// RootExists 是否已存在根部门（系统至多一个）
	RootExists(ctx context.Context) (bool, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	// CountActiveMainStores standalone 下启用中的主库数量（恒为 1 的校验点）
	CountActiveMainStores(ctx context.Context, standaloneID string) (int, error)
}
