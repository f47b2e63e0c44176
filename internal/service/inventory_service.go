package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetledger/internal/domain"
	"assetledger/internal/repository"
	"assetledger/internal/store"
)

// InventoryService 库存汇总服务接口。
// 汇总是台账的派生缓存：读走缓存/表，写永远整行重算
type InventoryService interface {
	GetInventory(ctx context.Context, locationID, itemID string) (*domain.LocationInventory, error)
	ListLocationInventory(ctx context.Context, locationID string) ([]*domain.LocationInventory, error)
	// RecomputeLocation 重算某库全部品目的汇总行（对账/修复入口）
	RecomputeLocation(ctx context.Context, locationID string) (int, error)
}

type inventoryService struct {
	txm    repository.TxManager
	kv     store.KV
	logger *zap.Logger
}

func NewInventoryService(txm repository.TxManager, kv store.KV, logger *zap.Logger) InventoryService {
	return &inventoryService{txm: txm, kv: kv, logger: logger}
}

const inventorySnapshotTTL = 5 * time.Minute

func inventoryCacheKey(locationID, itemID string) string {
	return "inventory:" + locationID + ":" + itemID
}

// recomputeInventory 整行重算 (location, item) 的汇总并 upsert。
// 状态转换事务的收尾步骤，必须与转换同事务执行
func recomputeInventory(ctx context.Context, r *repository.Repos, locationID, itemID string, now time.Time) error {
	bd, err := r.Instances.Breakdown(ctx, locationID, itemID)
	if err != nil {
		return err
	}
	inv := &domain.LocationInventory{
		InventoryID:        uuid.NewString(),
		LocationID:         locationID,
		ItemID:             itemID,
		TotalQuantity:      bd.Total,
		AvailableQuantity:  bd.Available,
		InStoreQty:         bd.ByStatus[domain.StatusInStore],
		InTransitQty:       bd.ByStatus[domain.StatusInTransit],
		InUseQty:           bd.ByStatus[domain.StatusInUse],
		TemporaryIssuedQty: bd.ByStatus[domain.StatusTemporaryIssued],
		UnderRepairQty:     bd.ByStatus[domain.StatusUnderRepair],
		DamagedQty:         bd.ByStatus[domain.StatusDamaged],
		LostQty:            bd.ByStatus[domain.StatusLost],
		CondemnedQty:       bd.ByStatus[domain.StatusCondemned],
		DisposedQty:        bd.ByStatus[domain.StatusDisposed],
		LastUpdated:        now,
	}
	return r.Inventory.Upsert(ctx, inv)
}

// GetInventory 先查快照缓存，未命中读表并回填
func (s *inventoryService) GetInventory(ctx context.Context, locationID, itemID string) (*domain.LocationInventory, error) {
	key := inventoryCacheKey(locationID, itemID)
	if cached, err := s.kv.Get(ctx, key); err == nil {
		var inv domain.LocationInventory
		if err := json.Unmarshal([]byte(cached), &inv); err == nil {
			return &inv, nil
		}
		// 快照损坏：丢弃重读
		_ = s.kv.Del(ctx, key)
	}

	inv, err := s.txm.Repos().Inventory.Get(ctx, locationID, itemID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(inv); err == nil {
		if err := s.kv.Set(ctx, key, string(payload), inventorySnapshotTTL); err != nil {
			s.logger.Warn("inventory: snapshot cache set failed", zap.Error(err))
		}
	}
	return inv, nil
}

func (s *inventoryService) ListLocationInventory(ctx context.Context, locationID string) ([]*domain.LocationInventory, error) {
	return s.txm.Repos().Inventory.ListByLocation(ctx, locationID)
}

func (s *inventoryService) RecomputeLocation(ctx context.Context, locationID string) (int, error) {
	count := 0
	itemIDs := map[string]bool{}
	err := s.txm.WithinTx(ctx, func(r *repository.Repos) error {
		loc, err := r.Locations.Get(ctx, locationID)
		if err != nil {
			return err
		}
		if !loc.IsStore {
			return domain.Preconditionf("location %s is not a store", loc.Code)
		}

		// 已有汇总行 + 在册单件涉及的品目并集
		rows, err := r.Inventory.ListByLocation(ctx, locationID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			itemIDs[row.ItemID] = true
		}
		insts, err := r.Instances.List(ctx, repository.InstanceFilter{SourceLocationID: locationID})
		if err != nil {
			return err
		}
		for _, inst := range insts {
			itemIDs[inst.ItemID] = true
		}

		now := time.Now().UTC()
		for itemID := range itemIDs {
			if err := recomputeInventory(ctx, r, locationID, itemID, now); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for itemID := range itemIDs {
		_ = s.kv.Del(ctx, inventoryCacheKey(locationID, itemID))
	}
	s.logger.Info("inventory recomputed", zap.String("location_id", locationID), zap.Int("rows", count))
	return count, nil
}
