package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"assetledger/internal/audit"
	"assetledger/internal/domain"
	"assetledger/internal/notify"
	"assetledger/internal/repository"
	"assetledger/internal/store"
)

// fixture 基于内存仓储的全量服务装配，测试共用
type fixture struct {
	txm          *repository.MemoryTxManager
	locations    LocationService
	catalog      CatalogService
	certificates CertificateService
	instances    InstanceService
	transfers    TransferService
	inventory    InventoryService

	admin         domain.Actor
	head          domain.Actor
	deptKeeper    domain.Actor
	centralKeeper domain.Actor
	auditor       domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	txm := repository.NewMemoryTxManager()
	policy := domain.AllowAllPolicy{}
	recorder := audit.NewRecorder(logger, nil, "test:audit")

	return &fixture{
		txm:          txm,
		locations:    NewLocationService(txm, policy, logger),
		catalog:      NewCatalogService(txm, logger),
		certificates: NewCertificateService(txm, policy, recorder, logger),
		instances:    NewInstanceService(txm, policy, recorder, logger),
		transfers:    NewTransferService(txm, policy, recorder, notify.NopNotifier{}, logger),
		inventory:    NewInventoryService(txm, store.NopKV{}, logger),

		admin:         domain.Actor{ID: "admin-1", Name: "Admin", Role: domain.RoleSystemAdmin},
		head:          domain.Actor{ID: "head-1", Name: "Dept Head", Role: domain.RoleLocationHead},
		deptKeeper:    domain.Actor{ID: "keeper-phy", Name: "Dept Keeper", Role: domain.RoleStockIncharge},
		centralKeeper: domain.Actor{ID: "keeper-central", Name: "Central Keeper", Role: domain.RoleStockIncharge},
		auditor:       domain.Actor{ID: "auditor-1", Name: "Auditor", Role: domain.RoleAuditor},
	}
}

// campus 标准测试位置树：根节点 + 一个院系，各带自动配套的主库
type campus struct {
	rootID      string
	rootStoreID string
	deptID      string
	deptStoreID string
}

func (f *fixture) createCampus(t *testing.T) campus {
	t.Helper()
	ctx := context.Background()

	root, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code:         "UNIV",
		Name:         "University",
		LocationType: domain.LocationDepartment,
		IsStandalone: true,
		InCharge:     f.centralKeeper.ID,
		Actor:        f.admin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, root.PairedStoreID)

	dept, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code:         "PHY",
		Name:         "Physics Department",
		LocationType: domain.LocationDepartment,
		ParentID:     root.LocationID,
		IsStandalone: true,
		InCharge:     f.deptKeeper.ID,
		Actor:        f.admin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, dept.PairedStoreID)

	return campus{
		rootID:      root.LocationID,
		rootStoreID: root.PairedStoreID,
		deptID:      dept.LocationID,
		deptStoreID: dept.PairedStoreID,
	}
}

// createCatalogItem 一个类别 + 一个物品（默认位置指向 standalone 节点）
func (f *fixture) createCatalogItem(t *testing.T, defaultLocationID string) (string, string) {
	t.Helper()
	ctx := context.Background()

	catID, err := f.catalog.CreateCategory(ctx, CreateCategoryRequest{
		Code:             "LAB-EQ",
		Name:             "Lab Equipment",
		DepreciationRate: 15,
		Actor:            f.admin,
	})
	require.NoError(t, err)

	itemID, err := f.catalog.CreateItem(ctx, CreateItemRequest{
		Code:              "OSC",
		Name:              "Oscilloscope",
		CategoryID:        catID,
		DefaultLocationID: defaultLocationID,
		Actor:             f.admin,
	})
	require.NoError(t, err)
	return catID, itemID
}

// materializeInstances 走完整验收流程物化 acceptedQty 件单件，返回其 ID
func (f *fixture) materializeInstances(t *testing.T, c campus, itemID string, tendered, accepted, rejected int) []string {
	t.Helper()
	ctx := context.Background()

	cert, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID:   c.deptID,
		ContractNo:     "CTR-42",
		ContractorName: "Acme Instruments",
		Indenter:       "Prof. Rao",
		IndentNo:       "IND-7",
		Actor:          f.head,
	})
	require.NoError(t, err)
	require.False(t, cert.IsRootFlow)

	inspItemID, err := f.certificates.AddItem(ctx, AddInspectionItemRequest{
		CertificateID: cert.CertificateID,
		ItemID:        itemID,
		TenderedQty:   tendered,
		AcceptedQty:   accepted,
		RejectedQty:   rejected,
		Actor:         f.head,
	})
	require.NoError(t, err)

	sub, err := f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.head})
	require.NoError(t, err)
	require.Equal(t, domain.StageStockDetails, sub.Stage)

	err = f.certificates.RecordStockRegister(ctx, RecordStockRegisterRequest{
		CertificateID: cert.CertificateID,
		Lines: []StockRegisterLine{
			{InspectionItemID: inspItemID, StockRegisterNo: "SR-9", StockRegisterPageNo: "12"},
		},
		ConsigneeName:        "Dept Keeper",
		ConsigneeDesignation: "Stock Incharge",
		Actor:                f.deptKeeper,
	})
	require.NoError(t, err)

	sub, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.deptKeeper})
	require.NoError(t, err)
	require.Equal(t, domain.StageCentralRegister, sub.Stage)

	err = f.certificates.RecordCentralRegister(ctx, RecordCentralRegisterRequest{
		CertificateID: cert.CertificateID,
		Lines: []CentralRegisterLine{
			{InspectionItemID: inspItemID, CentralRegisterNo: "CR-3", CentralRegisterPageNo: "45"},
		},
		Actor: f.centralKeeper,
	})
	require.NoError(t, err)

	sub, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.centralKeeper})
	require.NoError(t, err)
	require.Equal(t, domain.StageAuditReview, sub.Stage)

	sub, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.auditor})
	require.NoError(t, err)
	require.Equal(t, domain.StageCompleted, sub.Stage)
	require.Len(t, sub.CreatedInstanceIDs, accepted)
	return sub.CreatedInstanceIDs
}
