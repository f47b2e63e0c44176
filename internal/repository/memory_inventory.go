package repository

import (
	"context"
	"sort"
	"sync"

	"assetledger/internal/domain"
)

type MemoryInventoryRepo struct {
	mu   sync.RWMutex
	rows map[string]domain.LocationInventory // locationID+"/"+itemID
}

func NewMemoryInventoryRepo() *MemoryInventoryRepo {
	return &MemoryInventoryRepo{rows: map[string]domain.LocationInventory{}}
}

func invKey(locationID, itemID string) string { return locationID + "/" + itemID }

func (r *MemoryInventoryRepo) Upsert(_ context.Context, inv *domain.LocationInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := invKey(inv.LocationID, inv.ItemID)
	if existing, ok := r.rows[key]; ok {
		inv.InventoryID = existing.InventoryID
	}
	r.rows[key] = *inv
	return nil
}

func (r *MemoryInventoryRepo) Get(_ context.Context, locationID, itemID string) (*domain.LocationInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.rows[invKey(locationID, itemID)]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: locationID + "/" + itemID}
	}
	out := inv
	return &out, nil
}

func (r *MemoryInventoryRepo) ListByLocation(_ context.Context, locationID string) ([]*domain.LocationInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.LocationInventory{}
	for _, inv := range r.rows {
		if inv.LocationID != locationID {
			continue
		}
		v := inv
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (r *MemoryInventoryRepo) ListAll(_ context.Context) ([]*domain.LocationInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.LocationInventory{}
	for _, inv := range r.rows {
		v := inv
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}
