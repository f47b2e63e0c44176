package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"assetledger/internal/domain"
	"assetledger/internal/repository"
)

// 院系验收全流程：10 件送验，8 收 2 拒，四段流转后
// 8 件单件落在院系主库，汇总行同步可见
func TestCertificateWorkflow_DepartmentFourStage(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ctx := context.Background()

	created := f.materializeInstances(t, c, itemID, 10, 8, 2)
	require.Len(t, created, 8)

	insts, err := f.instances.ListInstances(ctx, ListInstancesRequest{ItemID: itemID})
	require.NoError(t, err)
	require.Len(t, insts, 8)
	for _, inst := range insts {
		require.Equal(t, domain.StatusInStore, inst.CurrentStatus)
		require.Equal(t, c.deptStoreID, inst.SourceLocationID)
		require.Equal(t, c.deptStoreID, inst.CurrentLocationID)
		require.Equal(t, domain.ConditionNew, inst.Condition)
		require.True(t, inst.CertificateID.Valid)
		require.Regexp(t, `^OSC-\d{4}-\d{4}$`, inst.InstanceCode)
	}

	inv, err := f.inventory.GetInventory(ctx, c.deptStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 8, inv.TotalQuantity)
	require.Equal(t, 8, inv.AvailableQuantity)
	require.Equal(t, 8, inv.InStoreQty)

	item, err := f.catalog.GetItem(ctx, itemID)
	require.NoError(t, err)
	require.Equal(t, 8, item.TotalQuantity)

	// 入库单已完成并回链验收单
	entries, err := f.transfers.ListEntries(ctx, ListEntriesRequest{EntryType: domain.EntryReceipt})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.EntryCompleted, entries[0].Status)
	require.True(t, entries[0].CertificateID.Valid)
	require.Len(t, entries[0].InstanceIDs, 8)
}

// 根节点流程跳过 STOCK_DETAILS，三段完成
func TestCertificateWorkflow_RootThreeStage(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ctx := context.Background()

	cert, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID:   c.rootID,
		ContractNo:     "CTR-1",
		ContractorName: "Acme Instruments",
		Indenter:       "Registrar",
		IndentNo:       "IND-1",
		Actor:          f.head,
	})
	require.NoError(t, err)
	require.True(t, cert.IsRootFlow)

	inspItemID, err := f.certificates.AddItem(ctx, AddInspectionItemRequest{
		CertificateID: cert.CertificateID,
		ItemID:        itemID,
		TenderedQty:   3, AcceptedQty: 3,
		Actor: f.head,
	})
	require.NoError(t, err)

	sub, err := f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.head})
	require.NoError(t, err)
	require.Equal(t, domain.StageCentralRegister, sub.Stage)

	// 根流程在中央登记阶段补齐收货人
	err = f.certificates.RecordCentralRegister(ctx, RecordCentralRegisterRequest{
		CertificateID: cert.CertificateID,
		Lines: []CentralRegisterLine{
			{InspectionItemID: inspItemID, CentralRegisterNo: "CR-1", CentralRegisterPageNo: "7"},
		},
		ConsigneeName:        "Central Keeper",
		ConsigneeDesignation: "Stock Incharge",
		Actor:                f.centralKeeper,
	})
	require.NoError(t, err)

	sub, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.centralKeeper})
	require.NoError(t, err)
	require.Equal(t, domain.StageAuditReview, sub.Stage)

	sub, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.auditor})
	require.NoError(t, err)
	require.Equal(t, domain.StageCompleted, sub.Stage)
	require.Len(t, sub.CreatedInstanceIDs, 3)

	// 物化到根节点的主库
	insts, err := f.instances.ListInstances(ctx, ListInstancesRequest{SourceLocationID: c.rootStoreID})
	require.NoError(t, err)
	require.Len(t, insts, 3)
}

func TestCertificate_QuantityInvariant(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ctx := context.Background()

	cert, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID:   c.deptID,
		ContractNo:     "CTR-2",
		ContractorName: "Acme Instruments",
		Indenter:       "Prof. Rao",
		Actor:          f.head,
	})
	require.NoError(t, err)

	_, err = f.certificates.AddItem(ctx, AddInspectionItemRequest{
		CertificateID: cert.CertificateID,
		ItemID:        itemID,
		TenderedQty:   5, AcceptedQty: 4, RejectedQty: 2,
		Actor: f.head,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

// 中央库保管人按身份被排除在院系库登记之外，兼任也不放行
func TestCertificate_CentralCustodianExcludedFromStockDetails(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ctx := context.Background()

	// 第二个院系，保管人就是中央库保管人本人
	dept2, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "CHEM", Name: "Chemistry Department", LocationType: domain.LocationDepartment,
		ParentID: c.rootID, IsStandalone: true, InCharge: f.centralKeeper.ID, Actor: f.admin,
	})
	require.NoError(t, err)

	cert, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID:   dept2.LocationID,
		ContractNo:     "CTR-3",
		ContractorName: "Acme Instruments",
		Indenter:       "Prof. Iyer",
		Actor:          f.head,
	})
	require.NoError(t, err)
	inspItemID, err := f.certificates.AddItem(ctx, AddInspectionItemRequest{
		CertificateID: cert.CertificateID, ItemID: itemID,
		TenderedQty: 1, AcceptedQty: 1, Actor: f.head,
	})
	require.NoError(t, err)
	_, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.head})
	require.NoError(t, err)

	err = f.certificates.RecordStockRegister(ctx, RecordStockRegisterRequest{
		CertificateID: cert.CertificateID,
		Lines:         []StockRegisterLine{{InspectionItemID: inspItemID, StockRegisterNo: "SR-1"}},
		Actor:         f.centralKeeper,
	})
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, err.Error(), "central store custodian")
}

func TestCertificate_RejectRecordsStage(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ctx := context.Background()

	cert, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID:   c.deptID,
		ContractNo:     "CTR-4",
		ContractorName: "Acme Instruments",
		Indenter:       "Prof. Rao",
		Actor:          f.head,
	})
	require.NoError(t, err)
	_, err = f.certificates.AddItem(ctx, AddInspectionItemRequest{
		CertificateID: cert.CertificateID, ItemID: itemID,
		TenderedQty: 1, AcceptedQty: 1, Actor: f.head,
	})
	require.NoError(t, err)
	_, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.head})
	require.NoError(t, err)

	// 理由必填
	err = f.certificates.Reject(ctx, RejectRequest{CertificateID: cert.CertificateID, Actor: f.auditor})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	err = f.certificates.Reject(ctx, RejectRequest{
		CertificateID: cert.CertificateID, Reason: "delivery mismatch", Actor: f.auditor,
	})
	require.NoError(t, err)

	detail, err := f.certificates.GetCertificate(ctx, cert.CertificateID)
	require.NoError(t, err)
	require.Equal(t, domain.StageRejected, detail.Certificate.Stage)
	require.Equal(t, "CANCELLED", detail.Certificate.Status)
	require.Equal(t, string(domain.StageStockDetails), detail.Certificate.RejectionStage.String)

	// 终态后不可再推进
	_, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.auditor})
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)

	// 没有单件被物化
	insts, err := f.instances.ListInstances(ctx, ListInstancesRequest{ItemID: itemID})
	require.NoError(t, err)
	require.Empty(t, insts)
}

func TestCertificate_NumberingRollsByMonth(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	ctx := context.Background()

	first, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID: c.deptID, ContractNo: "A", ContractorName: "X", Indenter: "Y", Actor: f.head,
	})
	require.NoError(t, err)
	second, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID: c.deptID, ContractNo: "B", ContractorName: "X", Indenter: "Y", Actor: f.head,
	})
	require.NoError(t, err)

	require.Regexp(t, `^IC-\d{6}-\d{5}$`, first.CertificateNo)
	require.Regexp(t, `^IC-\d{6}-\d{5}$`, second.CertificateNo)
	require.NotEqual(t, first.CertificateNo, second.CertificateNo)

	// 验收单只能开给 standalone 节点
	_, err = f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID: c.deptStoreID, ContractNo: "C", ContractorName: "X", Indenter: "Y", Actor: f.head,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCertificate_MemoryReposShareState(t *testing.T) {
	// 事务内外走同一份仓储（读路径能看到已提交的写入）
	f := newFixture(t)
	c := f.createCampus(t)
	ctx := context.Background()

	var repos *repository.Repos = f.txm.Repos()
	loc, err := repos.Locations.Get(ctx, c.deptID)
	require.NoError(t, err)
	require.Equal(t, "PHY", loc.Code)
}
