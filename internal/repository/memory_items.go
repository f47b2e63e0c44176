package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"assetledger/internal/domain"
)

type MemoryItemsRepo struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	items      map[string]domain.Item
}

func NewMemoryItemsRepo() *MemoryItemsRepo {
	return &MemoryItemsRepo{
		categories: map[string]domain.Category{},
		items:      map[string]domain.Item{},
	}
}

func (r *MemoryItemsRepo) CreateCategory(_ context.Context, cat *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[cat.CategoryID] = *cat
	return nil
}

func (r *MemoryItemsRepo) UpdateCategory(_ context.Context, cat *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[cat.CategoryID]; !ok {
		return &domain.NotFoundError{Entity: "category", ID: cat.CategoryID}
	}
	r.categories[cat.CategoryID] = *cat
	return nil
}

func (r *MemoryItemsRepo) GetCategory(_ context.Context, categoryID string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cat, ok := r.categories[categoryID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "category", ID: categoryID}
	}
	out := cat
	return &out, nil
}

func (r *MemoryItemsRepo) ListCategories(_ context.Context, activeOnly bool) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Category{}
	for _, cat := range r.categories {
		if activeOnly && !cat.IsActive {
			continue
		}
		c := cat
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryItemsRepo) CategoryCodeInUse(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cat := range r.categories {
		if cat.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryItemsRepo) CreateItem(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ItemID] = *item
	return nil
}

func (r *MemoryItemsRepo) UpdateItem(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ItemID]; !ok {
		return &domain.NotFoundError{Entity: "item", ID: item.ItemID}
	}
	r.items[item.ItemID] = *item
	return nil
}

func (r *MemoryItemsRepo) GetItem(_ context.Context, itemID string) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "item", ID: itemID}
	}
	out := item
	return &out, nil
}

func (r *MemoryItemsRepo) GetItemByCode(_ context.Context, code string) (*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.Code == code {
			out := item
			return &out, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "item", ID: code}
}

func (r *MemoryItemsRepo) ListItems(_ context.Context, filter ItemFilter) ([]*domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Item{}
	for _, item := range r.items {
		if filter.CategoryID != "" && item.CategoryID != filter.CategoryID {
			continue
		}
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(item.Code), s) && !strings.Contains(strings.ToLower(item.Name), s) {
				continue
			}
		}
		it := item
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryItemsRepo) ItemCodeInUse(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.Code == code {
			return true, nil
		}
	}
	return false, nil
}
