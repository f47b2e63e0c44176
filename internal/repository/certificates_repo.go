package repository

import (
	"context"

	"assetledger/internal/domain"
)

// CertificateFilter 验收单列表过滤条件
type CertificateFilter struct {
	DepartmentID string
	Stage        domain.InspectionStage
	// PendingOnly 只取未终结（非 COMPLETED/REJECTED）的单据
	PendingOnly bool
}

// CertificatesRepository 验收单仓储接口
// Update 整行覆写，包含阶段流转历史；行内明细走 *Item 方法
type CertificatesRepository interface {
	Create(ctx context.Context, cert *domain.InspectionCertificate) error
	Update(ctx context.Context, cert *domain.InspectionCertificate) error
	Get(ctx context.Context, certificateID string) (*domain.InspectionCertificate, error)
	List(ctx context.Context, filter CertificateFilter) ([]*domain.InspectionCertificate, error)

	// NextSeq 单号月度序列：prefix 形如 "IC-202609"，返回下一个序号（从 1 起）
	NextSeq(ctx context.Context, prefix string) (int, error)

	AddItem(ctx context.Context, item *domain.InspectionItem) error
	UpdateItem(ctx context.Context, item *domain.InspectionItem) error
	DeleteItem(ctx context.Context, certificateID, itemID string) error
	GetItem(ctx context.Context, itemID string) (*domain.InspectionItem, error)
	ListItems(ctx context.Context, certificateID string) ([]*domain.InspectionItem, error)
}
