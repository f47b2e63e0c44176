package repository

import (
	"context"
	"sync"

	"assetledger/internal/domain"
)

type MemoryMovementsRepo struct {
	mu        sync.RWMutex
	movements []domain.InstanceMovement
}

func NewMemoryMovementsRepo() *MemoryMovementsRepo {
	return &MemoryMovementsRepo{}
}

func (r *MemoryMovementsRepo) Append(_ context.Context, m *domain.InstanceMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *MemoryMovementsRepo) ListByInstance(_ context.Context, instanceID string) ([]*domain.InstanceMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.InstanceMovement{}
	for i := range r.movements {
		if r.movements[i].InstanceID == instanceID {
			m := r.movements[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *MemoryMovementsRepo) ListByEntry(_ context.Context, entryID string) ([]*domain.InstanceMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.InstanceMovement{}
	for i := range r.movements {
		if r.movements[i].StockEntryID.Valid && r.movements[i].StockEntryID.String == entryID {
			m := r.movements[i]
			out = append(out, &m)
		}
	}
	return out, nil
}
