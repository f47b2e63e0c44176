package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"assetledger/internal/domain"
)

// MemoryLocationsRepo 用于 DB 未就绪时的联测；service 层测试亦复用。
// 存值拷贝，读写互不串染
type MemoryLocationsRepo struct {
	mu     sync.RWMutex
	byID   map[string]domain.Location
	byCode map[string]string // code -> locationID
}

func NewMemoryLocationsRepo() *MemoryLocationsRepo {
	return &MemoryLocationsRepo{
		byID:   map[string]domain.Location{},
		byCode: map[string]string{},
	}
}

func (r *MemoryLocationsRepo) Create(_ context.Context, loc *domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[loc.LocationID] = *loc
	r.byCode[loc.Code] = loc.LocationID
	return nil
}

func (r *MemoryLocationsRepo) Update(_ context.Context, loc *domain.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[loc.LocationID]; !ok {
		return &domain.NotFoundError{Entity: "location", ID: loc.LocationID}
	}
	r.byID[loc.LocationID] = *loc
	return nil
}

func (r *MemoryLocationsRepo) Get(_ context.Context, locationID string) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byID[locationID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "location", ID: locationID}
	}
	out := loc
	return &out, nil
}

func (r *MemoryLocationsRepo) GetByCode(_ context.Context, code string) (*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "location", ID: code}
	}
	loc := r.byID[id]
	out := loc
	return &out, nil
}

func (r *MemoryLocationsRepo) List(_ context.Context, filter LocationFilter) ([]*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Location{}
	for _, loc := range r.byID {
		if filter.LocationType != "" && loc.LocationType != filter.LocationType {
			continue
		}
		if filter.ParentID != "" && (!loc.ParentID.Valid || loc.ParentID.String != filter.ParentID) {
			continue
		}
		if filter.Standalone != nil && loc.IsStandalone != *filter.Standalone {
			continue
		}
		if filter.StoresOnly && !loc.IsStore {
			continue
		}
		if filter.ActiveOnly && !loc.IsActive {
			continue
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(loc.Code), s) && !strings.Contains(strings.ToLower(loc.Name), s) {
				continue
			}
		}
		l := loc
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HierarchyPath < out[j].HierarchyPath })
	return out, nil
}

func (r *MemoryLocationsRepo) Children(_ context.Context, parentID string) ([]*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Location{}
	for _, loc := range r.byID {
		if loc.ParentID.Valid && loc.ParentID.String == parentID {
			l := loc
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryLocationsRepo) CountActiveChildren(_ context.Context, parentID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, loc := range r.byID {
		if loc.ParentID.Valid && loc.ParentID.String == parentID && loc.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *MemoryLocationsRepo) RootExists(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, loc := range r.byID {
		if !loc.ParentID.Valid && loc.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryLocationsRepo) CodeInUse(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byCode[code]
	return ok, nil
}

func (r *MemoryLocationsRepo) CountActiveMainStores(_ context.Context, standaloneID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, loc := range r.byID {
		if loc.ParentID.Valid && loc.ParentID.String == standaloneID && loc.IsMainStore && loc.IsActive {
			n++
		}
	}
	return n, nil
}
