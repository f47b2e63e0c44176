package repository

import (
	"context"

	"assetledger/internal/domain"
)

// InstanceFilter 单件列表过滤条件
type InstanceFilter struct {
	ItemID            string
	SourceLocationID  string
	CurrentLocationID string
	Status            domain.InstanceStatus
	CertificateID     string
	AssignedTo        string
}

// StatusBreakdown (location, item) 维度的单件计数，库存重算的输入。
// Total 按保管方（source_location）统计；其余按物理位置统计
type StatusBreakdown struct {
	Total     int
	Available int // 物理在库且 IN_STORE
	ByStatus  map[domain.InstanceStatus]int
}

// InstancesRepository 实物单件仓储接口
type InstancesRepository interface {
	Create(ctx context.Context, inst *domain.ItemInstance) error
	Update(ctx context.Context, inst *domain.ItemInstance) error
	Get(ctx context.Context, instanceID string) (*domain.ItemInstance, error)
	GetByCode(ctx context.Context, code string) (*domain.ItemInstance, error)
	List(ctx context.Context, filter InstanceFilter) ([]*domain.ItemInstance, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.ItemInstance, error)

	// NextSeq 单件编码年度序列：按 (itemCode, year) 独立计数，从 1 起
	NextSeq(ctx context.Context, itemCode string, year int) (int, error)
	// CountBySourceLocation 该库作为保管方持有的单件总数（停用校验用）
	CountBySourceLocation(ctx context.Context, locationID string) (int, error)
	// Breakdown 库存重算的唯一数据来源
	Breakdown(ctx context.Context, locationID, itemID string) (*StatusBreakdown, error)
}

// MovementsRepository 单件移动台账，append-only
type MovementsRepository interface {
	Append(ctx context.Context, m *domain.InstanceMovement) error
	ListByInstance(ctx context.Context, instanceID string) ([]*domain.InstanceMovement, error)
	ListByEntry(ctx context.Context, entryID string) ([]*domain.InstanceMovement, error)
}
