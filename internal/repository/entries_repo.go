package repository

import (
	"context"
	"time"

	"assetledger/internal/domain"
)

// EntryFilter 库存单列表过滤条件
type EntryFilter struct {
	EntryType      domain.EntryType
	Status         domain.EntryStatus
	ToLocationID   string
	FromLocationID string
	ItemID         string
	// PendingAckOnly 待确认队列视图（status=PENDING_ACK 的快捷方式）
	PendingAckOnly bool
}

// EntriesRepository 库存单仓储接口
// Create/Get 连同 stock_entry_instances 关联一起读写
type EntriesRepository interface {
	Create(ctx context.Context, entry *domain.StockEntry) error
	Update(ctx context.Context, entry *domain.StockEntry) error
	Get(ctx context.Context, entryID string) (*domain.StockEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]*domain.StockEntry, error)

	// NextSeq 单号日序列：按 (entryType, day) 独立计数，day 形如 "20260901"
	NextSeq(ctx context.Context, entryType domain.EntryType, day string) (int, error)

	// CompleteIfPending 乐观确认：仅当仍为 PENDING_ACK 时置 COMPLETED 并记录确认人。
	// 返回 false 表示已被并发确认/取消，调用方按冲突处理
	CompleteIfPending(ctx context.Context, entryID, actorID string, at time.Time) (bool, error)
	// CancelIfPending 同上，拒收路径置 CANCELLED
	CancelIfPending(ctx context.Context, entryID, actorID string, at time.Time) (bool, error)
}

// InventoryRepository 库存汇总仓储接口，按 (location, item) upsert 整行
type InventoryRepository interface {
	Upsert(ctx context.Context, inv *domain.LocationInventory) error
	Get(ctx context.Context, locationID, itemID string) (*domain.LocationInventory, error)
	ListByLocation(ctx context.Context, locationID string) ([]*domain.LocationInventory, error)
	ListAll(ctx context.Context) ([]*domain.LocationInventory, error)
}
