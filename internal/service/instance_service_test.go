package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"assetledger/internal/domain"
)

func TestChangeStatus_LedgerAndStamps(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()
	id := ids[0]

	err := f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: id, NewStatus: domain.StatusUnderRepair,
		Note: "screen flicker", Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	inst, err := f.instances.GetInstance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnderRepair, inst.CurrentStatus)
	require.Equal(t, string(domain.StatusInStore), inst.PreviousStatus.String)
	require.True(t, inst.RepairStartedDate.Valid)
	firstRepairStart := inst.RepairStartedDate.Time

	err = f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: id, NewStatus: domain.StatusInStore, Actor: f.deptKeeper,
	})
	require.NoError(t, err)
	inst, err = f.instances.GetInstance(ctx, id)
	require.NoError(t, err)
	require.True(t, inst.RepairCompletedDate.Valid)

	// 再次维修：日期戳只盖首次
	err = f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: id, NewStatus: domain.StatusUnderRepair, Actor: f.deptKeeper,
	})
	require.NoError(t, err)
	inst, err = f.instances.GetInstance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, firstRepairStart, inst.RepairStartedDate.Time)

	// 每次转换恰好一条台账
	moves, err := f.instances.ListMovements(ctx, id)
	require.NoError(t, err)
	// RECEIPT（物化） + 3 次状态变更
	require.Len(t, moves, 4)
	require.Equal(t, domain.MovementRepair, moves[1].MovementType)
	require.Equal(t, domain.MovementRepairReturn, moves[2].MovementType)
}

func TestChangeStatus_ProtocolOwnedAndTerminalStates(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 2, 2, 0)
	ctx := context.Background()

	// IN_TRANSIT 由转移协议独占
	err := f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: ids[0], NewStatus: domain.StatusInTransit, Actor: f.deptKeeper,
	})
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)

	// 在途单件不接受手工状态变更
	_, err = f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID, ToLocationID: c.rootStoreID,
		ItemID: itemID, InstanceIDs: ids[:1], Actor: f.deptKeeper,
	})
	require.NoError(t, err)
	err = f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: ids[0], NewStatus: domain.StatusDamaged, Actor: f.deptKeeper,
	})
	require.ErrorAs(t, err, &pe)

	// DISPOSED 终态
	err = f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: ids[1], NewStatus: domain.StatusDisposed,
		DisposalReason: "beyond economic repair", Actor: f.deptKeeper,
	})
	require.NoError(t, err)
	err = f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: ids[1], NewStatus: domain.StatusInStore, Actor: f.deptKeeper,
	})
	require.ErrorAs(t, err, &pe)

	inst, err := f.instances.GetInstance(ctx, ids[1])
	require.NoError(t, err)
	require.True(t, inst.DisposalDate.Valid)
	require.Equal(t, "beyond economic repair", inst.DisposalReason.String)
}

func TestChangeStatus_DamagedSetsCondition(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	err := f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: ids[0], NewStatus: domain.StatusDamaged, Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	inst, err := f.instances.GetInstance(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, domain.ConditionDamaged, inst.Condition)
	require.True(t, inst.DamageReportedDate.Valid)

	// 汇总同步反映
	inv, err := f.inventory.GetInventory(ctx, c.deptStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 1, inv.DamagedQty)
	require.Equal(t, 0, inv.AvailableQuantity)
}

func TestChangeStatus_NeverTouchesSourceLocation(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	lab, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "PHY-LAB2", Name: "Teaching Lab", LocationType: domain.LocationLab,
		ParentID: c.deptID, Actor: f.admin,
	})
	require.NoError(t, err)

	err = f.instances.ChangeStatus(ctx, ChangeStatusRequest{
		InstanceID: ids[0], NewStatus: domain.StatusInUse,
		LocationID: lab.LocationID, AssignedTo: "Dr. Bose", Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	inst, err := f.instances.GetInstance(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, lab.LocationID, inst.CurrentLocationID)
	require.Equal(t, c.deptStoreID, inst.SourceLocationID)
}

func TestUpdateCondition_NoLedgerRow(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	before, err := f.instances.ListMovements(ctx, ids[0])
	require.NoError(t, err)

	err = f.instances.UpdateCondition(ctx, UpdateConditionRequest{
		InstanceID: ids[0], Condition: domain.ConditionFair,
		Notes: "minor scratches", Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	inst, err := f.instances.GetInstance(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, domain.ConditionFair, inst.Condition)

	after, err := f.instances.ListMovements(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, after, len(before))
}

func TestDepreciationSchedule(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ctx := context.Background()

	// 带单价物化，折旧才有基数
	cert, err := f.certificates.CreateCertificate(ctx, CreateCertificateRequest{
		DepartmentID: c.deptID, ContractNo: "CTR-D", ContractorName: "Acme", Indenter: "Prof. Rao",
		Actor: f.head,
	})
	require.NoError(t, err)
	price := 1000.0
	inspItemID, err := f.certificates.AddItem(ctx, AddInspectionItemRequest{
		CertificateID: cert.CertificateID, ItemID: itemID,
		TenderedQty: 1, AcceptedQty: 1, UnitPrice: &price, Actor: f.head,
	})
	require.NoError(t, err)
	_, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.head})
	require.NoError(t, err)
	err = f.certificates.RecordStockRegister(ctx, RecordStockRegisterRequest{
		CertificateID: cert.CertificateID,
		Lines:         []StockRegisterLine{{InspectionItemID: inspItemID, StockRegisterNo: "SR-1"}},
		ConsigneeName: "Dept Keeper", ConsigneeDesignation: "Stock Incharge",
		Actor: f.deptKeeper,
	})
	require.NoError(t, err)
	_, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.deptKeeper})
	require.NoError(t, err)
	err = f.certificates.RecordCentralRegister(ctx, RecordCentralRegisterRequest{
		CertificateID: cert.CertificateID,
		Lines:         []CentralRegisterLine{{InspectionItemID: inspItemID, CentralRegisterNo: "CR-1"}},
		Actor:         f.centralKeeper,
	})
	require.NoError(t, err)
	_, err = f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.centralKeeper})
	require.NoError(t, err)
	sub, err := f.certificates.Submit(ctx, SubmitRequest{CertificateID: cert.CertificateID, Actor: f.auditor})
	require.NoError(t, err)
	require.Len(t, sub.CreatedInstanceIDs, 1)

	schedule, err := f.catalog.DepreciationSchedule(ctx, sub.CreatedInstanceIDs[0], 3)
	require.NoError(t, err)
	require.Len(t, schedule, 3)
	// 15% WDV：1000 → 850 → 722.5
	require.InDelta(t, 850, schedule[0].ClosingValue, 0.01)
	require.InDelta(t, 722.5, schedule[1].ClosingValue, 0.01)
}
