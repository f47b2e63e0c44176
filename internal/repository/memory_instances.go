package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"assetledger/internal/domain"
)

type MemoryInstancesRepo struct {
	mu        sync.RWMutex
	instances map[string]domain.ItemInstance
	seq       map[string]int // "ITEMCODE-YYYY" -> last issued
}

func NewMemoryInstancesRepo() *MemoryInstancesRepo {
	return &MemoryInstancesRepo{
		instances: map[string]domain.ItemInstance{},
		seq:       map[string]int{},
	}
}

func (r *MemoryInstancesRepo) Create(_ context.Context, inst *domain.ItemInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.InstanceID] = *inst
	return nil
}

func (r *MemoryInstancesRepo) Update(_ context.Context, inst *domain.ItemInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[inst.InstanceID]; !ok {
		return &domain.NotFoundError{Entity: "instance", ID: inst.InstanceID}
	}
	r.instances[inst.InstanceID] = *inst
	return nil
}

func (r *MemoryInstancesRepo) Get(_ context.Context, instanceID string) (*domain.ItemInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[instanceID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "instance", ID: instanceID}
	}
	out := inst
	return &out, nil
}

func (r *MemoryInstancesRepo) GetByCode(_ context.Context, code string) (*domain.ItemInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.instances {
		if inst.InstanceCode == code {
			out := inst
			return &out, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "instance", ID: code}
}

func (r *MemoryInstancesRepo) List(_ context.Context, filter InstanceFilter) ([]*domain.ItemInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.ItemInstance{}
	for _, inst := range r.instances {
		if filter.ItemID != "" && inst.ItemID != filter.ItemID {
			continue
		}
		if filter.SourceLocationID != "" && inst.SourceLocationID != filter.SourceLocationID {
			continue
		}
		if filter.CurrentLocationID != "" && inst.CurrentLocationID != filter.CurrentLocationID {
			continue
		}
		if filter.Status != "" && inst.CurrentStatus != filter.Status {
			continue
		}
		if filter.CertificateID != "" && (!inst.CertificateID.Valid || inst.CertificateID.String != filter.CertificateID) {
			continue
		}
		if filter.AssignedTo != "" && (!inst.AssignedTo.Valid || inst.AssignedTo.String != filter.AssignedTo) {
			continue
		}
		i := inst
		out = append(out, &i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceCode < out[j].InstanceCode })
	return out, nil
}

func (r *MemoryInstancesRepo) ListByIDs(_ context.Context, ids []string) ([]*domain.ItemInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.ItemInstance{}
	for _, id := range ids {
		if inst, ok := r.instances[id]; ok {
			i := inst
			out = append(out, &i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceCode < out[j].InstanceCode })
	return out, nil
}

func (r *MemoryInstancesRepo) NextSeq(_ context.Context, itemCode string, year int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s-%d", itemCode, year)
	r.seq[key]++
	return r.seq[key], nil
}

func (r *MemoryInstancesRepo) CountBySourceLocation(_ context.Context, locationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, inst := range r.instances {
		if inst.SourceLocationID == locationID && inst.CurrentStatus != domain.StatusDisposed {
			n++
		}
	}
	return n, nil
}

func (r *MemoryInstancesRepo) Breakdown(_ context.Context, locationID, itemID string) (*StatusBreakdown, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &StatusBreakdown{ByStatus: map[domain.InstanceStatus]int{}}
	for _, inst := range r.instances {
		if inst.ItemID != itemID {
			continue
		}
		if inst.SourceLocationID == locationID {
			out.ByStatus[inst.CurrentStatus]++
			out.Total++
		}
		if inst.CurrentLocationID == locationID && inst.CurrentStatus == domain.StatusInStore {
			out.Available++
		}
	}
	return out, nil
}
