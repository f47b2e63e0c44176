package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"assetledger/internal/domain"
)

// 上行转移（院系主库 → 中央主库）走两段式：
// 签发后单件在途、所有权不动；确认后所有权一次性转移
func TestTransfer_TwoPhaseUpward_Accepted(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 2, 2, 0)
	ctx := context.Background()

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID,
		ToLocationID:   c.rootStoreID,
		ItemID:         itemID,
		InstanceIDs:    ids,
		Actor:          f.deptKeeper,
	})
	require.NoError(t, err)
	require.True(t, issue.Pending)
	require.Regexp(t, `^ISSUE-\d{8}-\d{4}$`, issue.EntryNumber)

	entry, err := f.transfers.GetEntry(ctx, issue.EntryID)
	require.NoError(t, err)
	require.Equal(t, domain.EntryPendingAck, entry.Status)
	require.True(t, entry.IsUpwardTransfer)

	// 在途：所有权与物理位置仍在发出方
	for _, id := range ids {
		inst, err := f.instances.GetInstance(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StatusInTransit, inst.CurrentStatus)
		require.Equal(t, c.deptStoreID, inst.SourceLocationID)
		require.Equal(t, c.deptStoreID, inst.CurrentLocationID)
	}

	// 在途件计入发出方汇总
	inv, err := f.inventory.GetInventory(ctx, c.deptStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 2, inv.InTransitQty)
	require.Equal(t, 0, inv.AvailableQuantity)

	ack, err := f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID:     issue.EntryID,
		AcceptedIDs: ids,
		Actor:       f.centralKeeper,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ack.ReceiptEntryID)
	require.Empty(t, ack.ReturnEntryID)

	// 所有权转移完成
	for _, id := range ids {
		inst, err := f.instances.GetInstance(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StatusInStore, inst.CurrentStatus)
		require.Equal(t, c.rootStoreID, inst.SourceLocationID)
		require.Equal(t, c.rootStoreID, inst.CurrentLocationID)
	}

	inv, err = f.inventory.GetInventory(ctx, c.deptStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 0, inv.TotalQuantity)
	inv, err = f.inventory.GetInventory(ctx, c.rootStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 2, inv.TotalQuantity)
	require.Equal(t, 2, inv.AvailableQuantity)

	// 入库单回链签发单
	receipt, err := f.transfers.GetEntry(ctx, ack.ReceiptEntryID)
	require.NoError(t, err)
	require.Equal(t, domain.EntryCompleted, receipt.Status)
	require.Equal(t, issue.EntryID, receipt.ReferenceEntryID.String)
}

// 拒收分支：退回单开出后单件保持在途，发出方确认后恢复可用
func TestTransfer_RejectedSplitAndReturnRoundTrip(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 3, 3, 0)
	ctx := context.Background()

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID,
		ToLocationID:   c.rootStoreID,
		ItemID:         itemID,
		InstanceIDs:    ids,
		Actor:          f.deptKeeper,
	})
	require.NoError(t, err)

	ack, err := f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID:     issue.EntryID,
		AcceptedIDs: ids[:1],
		RejectedIDs: ids[1:],
		Remarks:     "two units arrived damaged",
		Actor:       f.centralKeeper,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ack.ReceiptEntryID)
	require.NotEmpty(t, ack.ReturnEntryID)

	// 接受的 1 件已转移
	inst, err := f.instances.GetInstance(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, domain.StatusInStore, inst.CurrentStatus)
	require.Equal(t, c.rootStoreID, inst.SourceLocationID)

	// 拒收的 2 件仍在途，物理位置折返发出方，所有权未变
	for _, id := range ids[1:] {
		inst, err := f.instances.GetInstance(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StatusInTransit, inst.CurrentStatus)
		require.Equal(t, c.deptStoreID, inst.SourceLocationID)
		require.Equal(t, c.deptStoreID, inst.CurrentLocationID)
	}

	ret, err := f.transfers.GetEntry(ctx, ack.ReturnEntryID)
	require.NoError(t, err)
	require.Equal(t, domain.EntryReturn, ret.EntryType)
	require.Equal(t, domain.EntryPendingAck, ret.Status)
	require.Equal(t, issue.EntryID, ret.ReferenceEntryID.String)

	// 发出方确认退回：恰好两次确认后重新可用
	back, err := f.transfers.AcknowledgeReturn(ctx, AcknowledgeReturnRequest{
		EntryID: ack.ReturnEntryID,
		Actor:   f.deptKeeper,
	})
	require.NoError(t, err)
	require.NotEmpty(t, back.ReceiptEntryID)

	for _, id := range ids[1:] {
		inst, err := f.instances.GetInstance(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.StatusInStore, inst.CurrentStatus)
		require.Equal(t, c.deptStoreID, inst.SourceLocationID)
		require.Equal(t, c.deptStoreID, inst.CurrentLocationID)
	}

	inv, err := f.inventory.GetInventory(ctx, c.deptStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 2, inv.TotalQuantity)
	require.Equal(t, 2, inv.AvailableQuantity)
}

// 重复确认：第二次确认必须失败且不改变任何状态
func TestTransfer_DoubleAcknowledgeFails(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID,
		ToLocationID:   c.rootStoreID,
		ItemID:         itemID,
		InstanceIDs:    ids,
		Actor:          f.deptKeeper,
	})
	require.NoError(t, err)

	_, err = f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID: issue.EntryID, AcceptedIDs: ids, Actor: f.centralKeeper,
	})
	require.NoError(t, err)

	_, err = f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID: issue.EntryID, RejectedIDs: ids, Actor: f.centralKeeper,
	})
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)

	// 第一次确认的结果原样保留
	inst, err := f.instances.GetInstance(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, domain.StatusInStore, inst.CurrentStatus)
	require.Equal(t, c.rootStoreID, inst.SourceLocationID)
}

// 拆分必须恰好覆盖签发的单件集合
func TestTransfer_SplitMustPartitionIssuedSet(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 2, 2, 0)
	ctx := context.Background()

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID,
		ToLocationID:   c.rootStoreID,
		ItemID:         itemID,
		InstanceIDs:    ids,
		Actor:          f.deptKeeper,
	})
	require.NoError(t, err)

	// 覆盖不全
	_, err = f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID: issue.EntryID, AcceptedIDs: ids[:1], Actor: f.centralKeeper,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	// 同一单件出现两次
	_, err = f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID: issue.EntryID, AcceptedIDs: ids, RejectedIDs: ids[:1], Actor: f.centralKeeper,
	})
	require.ErrorAs(t, err, &ve)

	// 集合外的单件
	_, err = f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID: issue.EntryID, AcceptedIDs: []string{ids[0], "not-issued"}, RejectedIDs: ids[1:], Actor: f.centralKeeper,
	})
	require.ErrorAs(t, err, &ve)

	// 校验失败不落任何状态（CAS 失败前就拒绝）
	entry, err := f.transfers.GetEntry(ctx, issue.EntryID)
	require.NoError(t, err)
	require.Equal(t, domain.EntryPendingAck, entry.Status)
}

// 单段路径：目的地不是库房（实验室），签发即完成
func TestTransfer_SinglePhaseToNonStore(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	lab, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "PHY-LAB1", Name: "Optics Lab", LocationType: domain.LocationLab,
		ParentID: c.deptID, Actor: f.admin,
	})
	require.NoError(t, err)

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID:     c.deptStoreID,
		ToLocationID:       lab.LocationID,
		ItemID:             itemID,
		InstanceIDs:        ids,
		TemporaryRecipient: "Dr. Bose",
		Actor:              f.deptKeeper,
	})
	require.NoError(t, err)
	require.False(t, issue.Pending)
	require.Equal(t, lab.LocationID, issue.ResolvedToLocationID)

	inst, err := f.instances.GetInstance(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, domain.StatusInUse, inst.CurrentStatus)
	require.Equal(t, lab.LocationID, inst.CurrentLocationID)
	// 所有权不变：院系主库仍是保管方
	require.Equal(t, c.deptStoreID, inst.SourceLocationID)
	require.True(t, inst.AssignedDate.Valid)
}

// standalone 目的地解析为其主库
func TestTransfer_StandaloneDestinationResolvesToMainStore(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID,
		ToLocationID:   c.rootID, // standalone 节点，不是库
		ItemID:         itemID,
		InstanceIDs:    ids,
		Actor:          f.deptKeeper,
	})
	require.NoError(t, err)
	require.True(t, issue.Pending)
	require.Equal(t, c.rootStoreID, issue.ResolvedToLocationID)
}

// 跨分支平级转移不被层级允许
func TestTransfer_CrossBranchRejected(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	dept2, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "CHEM", Name: "Chemistry Department", LocationType: domain.LocationDepartment,
		ParentID: c.rootID, IsStandalone: true, InCharge: "keeper-chem", Actor: f.admin,
	})
	require.NoError(t, err)

	_, err = f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID,
		ToLocationID:   dept2.PairedStoreID,
		ItemID:         itemID,
		InstanceIDs:    ids,
		Actor:          f.deptKeeper,
	})
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, err.Error(), "hierarchy")
}

// 非保管人不能签发；在途单件不能被再次签发
func TestTransfer_IssuePreconditions(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 1, 1, 0)
	ctx := context.Background()

	outsider := domain.Actor{ID: "stranger", Name: "Stranger", Role: domain.RoleLocationHead}
	_, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID, ToLocationID: c.rootStoreID,
		ItemID: itemID, InstanceIDs: ids, Actor: outsider,
	})
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)

	_, err = f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID, ToLocationID: c.rootStoreID,
		ItemID: itemID, InstanceIDs: ids, Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	// 已在途
	_, err = f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID, ToLocationID: c.rootStoreID,
		ItemID: itemID, InstanceIDs: ids, Actor: f.deptKeeper,
	})
	require.ErrorAs(t, err, &pe)
}

func TestTransfer_CorrectionRecomputesInventory(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	f.materializeInstances(t, c, itemID, 2, 2, 0)
	ctx := context.Background()

	// 修正必须带说明
	_, err := f.transfers.CreateCorrection(ctx, CreateCorrectionRequest{
		LocationID: c.deptStoreID, ItemID: itemID, Quantity: 2, Actor: f.deptKeeper,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	entryID, err := f.transfers.CreateCorrection(ctx, CreateCorrectionRequest{
		LocationID: c.deptStoreID, ItemID: itemID, Quantity: 2,
		Remarks: "physical count after annual audit", Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	entry, err := f.transfers.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, domain.EntryCorrection, entry.EntryType)
	require.Equal(t, domain.EntryCompleted, entry.Status)

	// 汇总仍与台账一致（修正触发整行重算）
	inv, err := f.inventory.GetInventory(ctx, c.deptStoreID, itemID)
	require.NoError(t, err)
	require.Equal(t, 2, inv.TotalQuantity)
}

func TestTransfer_PendingQueue(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	_, itemID := f.createCatalogItem(t, c.deptID)
	ids := f.materializeInstances(t, c, itemID, 2, 2, 0)
	ctx := context.Background()

	issue, err := f.transfers.CreateIssue(ctx, CreateIssueRequest{
		FromLocationID: c.deptStoreID, ToLocationID: c.rootStoreID,
		ItemID: itemID, InstanceIDs: ids, Actor: f.deptKeeper,
	})
	require.NoError(t, err)

	pending, err := f.transfers.ListPendingAcknowledgments(ctx, c.rootStoreID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, issue.EntryID, pending[0].EntryID)

	_, err = f.transfers.AcknowledgeReceipt(ctx, AcknowledgeReceiptRequest{
		EntryID: issue.EntryID, AcceptedIDs: ids, Actor: f.centralKeeper,
	})
	require.NoError(t, err)

	pending, err = f.transfers.ListPendingAcknowledgments(ctx, c.rootStoreID)
	require.NoError(t, err)
	require.Empty(t, pending)
}
