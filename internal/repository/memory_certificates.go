package repository

import (
	"context"
	"sort"
	"sync"

	"assetledger/internal/domain"
)

type MemoryCertificatesRepo struct {
	mu    sync.RWMutex
	certs map[string]domain.InspectionCertificate
	items map[string]domain.InspectionItem // inspection_item_id -> row
	seq   map[string]int                   // prefix -> last issued
}

func NewMemoryCertificatesRepo() *MemoryCertificatesRepo {
	return &MemoryCertificatesRepo{
		certs: map[string]domain.InspectionCertificate{},
		items: map[string]domain.InspectionItem{},
		seq:   map[string]int{},
	}
}

func copyCert(c domain.InspectionCertificate) domain.InspectionCertificate {
	out := c
	out.StageHistory = append([]domain.StageHistoryEntry{}, c.StageHistory...)
	return out
}

func (r *MemoryCertificatesRepo) Create(_ context.Context, cert *domain.InspectionCertificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certs[cert.CertificateID] = copyCert(*cert)
	return nil
}

func (r *MemoryCertificatesRepo) Update(_ context.Context, cert *domain.InspectionCertificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.certs[cert.CertificateID]; !ok {
		return &domain.NotFoundError{Entity: "certificate", ID: cert.CertificateID}
	}
	r.certs[cert.CertificateID] = copyCert(*cert)
	return nil
}

func (r *MemoryCertificatesRepo) Get(_ context.Context, certificateID string) (*domain.InspectionCertificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cert, ok := r.certs[certificateID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "certificate", ID: certificateID}
	}
	out := copyCert(cert)
	return &out, nil
}

func (r *MemoryCertificatesRepo) List(_ context.Context, filter CertificateFilter) ([]*domain.InspectionCertificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.InspectionCertificate{}
	for _, cert := range r.certs {
		if filter.DepartmentID != "" && cert.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Stage != "" && cert.Stage != filter.Stage {
			continue
		}
		if filter.PendingOnly && cert.Stage.IsTerminal() {
			continue
		}
		c := copyCert(cert)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryCertificatesRepo) NextSeq(_ context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[prefix]++
	return r.seq[prefix], nil
}

func (r *MemoryCertificatesRepo) AddItem(_ context.Context, item *domain.InspectionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.InspectionItemID] = *item
	return nil
}

func (r *MemoryCertificatesRepo) UpdateItem(_ context.Context, item *domain.InspectionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.InspectionItemID]; !ok {
		return &domain.NotFoundError{Entity: "inspection_item", ID: item.InspectionItemID}
	}
	r.items[item.InspectionItemID] = *item
	return nil
}

func (r *MemoryCertificatesRepo) DeleteItem(_ context.Context, certificateID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.CertificateID != certificateID {
		return &domain.NotFoundError{Entity: "inspection_item", ID: itemID}
	}
	delete(r.items, itemID)
	return nil
}

func (r *MemoryCertificatesRepo) GetItem(_ context.Context, itemID string) (*domain.InspectionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "inspection_item", ID: itemID}
	}
	out := item
	return &out, nil
}

func (r *MemoryCertificatesRepo) ListItems(_ context.Context, certificateID string) ([]*domain.InspectionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.InspectionItem{}
	for _, item := range r.items {
		if item.CertificateID != certificateID {
			continue
		}
		it := item
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InspectionItemID < out[j].InspectionItemID })
	return out, nil
}
