package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"assetledger/internal/domain"
)

type MemoryEntriesRepo struct {
	mu      sync.RWMutex
	entries map[string]domain.StockEntry
	seq     map[string]int // "TYPE-YYYYMMDD" -> last issued
}

func NewMemoryEntriesRepo() *MemoryEntriesRepo {
	return &MemoryEntriesRepo{
		entries: map[string]domain.StockEntry{},
		seq:     map[string]int{},
	}
}

func copyEntry(e domain.StockEntry) domain.StockEntry {
	out := e
	out.InstanceIDs = append([]string{}, e.InstanceIDs...)
	return out
}

func (r *MemoryEntriesRepo) Create(_ context.Context, entry *domain.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.EntryID] = copyEntry(*entry)
	return nil
}

func (r *MemoryEntriesRepo) Update(_ context.Context, entry *domain.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.EntryID]; !ok {
		return &domain.NotFoundError{Entity: "stock_entry", ID: entry.EntryID}
	}
	r.entries[entry.EntryID] = copyEntry(*entry)
	return nil
}

func (r *MemoryEntriesRepo) Get(_ context.Context, entryID string) (*domain.StockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[entryID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "stock_entry", ID: entryID}
	}
	out := copyEntry(entry)
	return &out, nil
}

func (r *MemoryEntriesRepo) List(_ context.Context, filter EntryFilter) ([]*domain.StockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.StockEntry{}
	for _, entry := range r.entries {
		if filter.EntryType != "" && entry.EntryType != filter.EntryType {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.ToLocationID != "" && entry.ToLocationID != filter.ToLocationID {
			continue
		}
		if filter.FromLocationID != "" && (!entry.FromLocationID.Valid || entry.FromLocationID.String != filter.FromLocationID) {
			continue
		}
		if filter.ItemID != "" && entry.ItemID != filter.ItemID {
			continue
		}
		if filter.PendingAckOnly && entry.Status != domain.EntryPendingAck {
			continue
		}
		e := copyEntry(entry)
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryEntriesRepo) NextSeq(_ context.Context, entryType domain.EntryType, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s-%s", entryType, day)
	r.seq[key]++
	return r.seq[key], nil
}

func (r *MemoryEntriesRepo) CompleteIfPending(_ context.Context, entryID, actorID string, at time.Time) (bool, error) {
	return r.settleIfPending(entryID, actorID, at, domain.EntryCompleted)
}

func (r *MemoryEntriesRepo) CancelIfPending(_ context.Context, entryID, actorID string, at time.Time) (bool, error) {
	return r.settleIfPending(entryID, actorID, at, domain.EntryCancelled)
}

func (r *MemoryEntriesRepo) settleIfPending(entryID, actorID string, at time.Time, to domain.EntryStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[entryID]
	if !ok {
		return false, &domain.NotFoundError{Entity: "stock_entry", ID: entryID}
	}
	if entry.Status != domain.EntryPendingAck {
		return false, nil
	}
	entry.Status = to
	entry.AcknowledgedBy = sql.NullString{String: actorID, Valid: true}
	entry.AcknowledgedAt = sql.NullTime{Time: at, Valid: true}
	entry.UpdatedAt = sql.NullTime{Time: at, Valid: true}
	r.entries[entryID] = entry
	return true, nil
}
