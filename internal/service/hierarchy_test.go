package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"assetledger/internal/domain"
)

func TestHierarchy_NearestStandaloneAncestor(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	ctx := context.Background()
	locs := f.txm.Repos().Locations

	// 深层嵌套：PHY → BUILDING → ROOM
	bldg, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "PHY-B1", Name: "Physics Block", LocationType: domain.LocationBuilding,
		ParentID: c.deptID, Actor: f.admin,
	})
	require.NoError(t, err)
	room, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "PHY-B1-R1", Name: "Room 101", LocationType: domain.LocationRoom,
		ParentID: bldg.LocationID, Actor: f.admin,
	})
	require.NoError(t, err)

	roomLoc, err := locs.Get(ctx, room.LocationID)
	require.NoError(t, err)
	anchor, err := nearestStandaloneAncestor(ctx, locs, roomLoc)
	require.NoError(t, err)
	require.Equal(t, c.deptID, anchor.LocationID)

	// standalone 节点的锚点是自身
	deptLoc, err := locs.Get(ctx, c.deptID)
	require.NoError(t, err)
	anchor, err = nearestStandaloneAncestor(ctx, locs, deptLoc)
	require.NoError(t, err)
	require.Equal(t, c.deptID, anchor.LocationID)
}

func TestHierarchy_ResolveMainCustodianFailsHard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locs := f.txm.Repos().Locations

	// 手工构造一个没有配套主库的 standalone 节点（绕过 service 的自动配套）
	orphan := &domain.Location{
		LocationID: "orphan-1", Code: "ORPHAN", Name: "Orphan",
		LocationType: domain.LocationDepartment,
		IsStandalone: true, IsActive: true, CreatedBy: "test",
	}
	require.NoError(t, locs.Create(ctx, orphan))

	_, err := resolveMainCustodian(ctx, locs, orphan)
	var pe *domain.PreconditionError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, err.Error(), "no main store configured")
}

func TestHierarchy_CanTransfer(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	ctx := context.Background()
	locs := f.txm.Repos().Locations

	deptStore, err := locs.Get(ctx, c.deptStoreID)
	require.NoError(t, err)
	rootStore, err := locs.Get(ctx, c.rootStoreID)
	require.NoError(t, err)

	// 同分支内（院系主库 → 院系附属库）
	sub, err := f.locations.CreateLocation(ctx, CreateLocationRequest{
		Code: "PHY-SUB", Name: "Physics Sub Store", LocationType: domain.LocationStore,
		ParentID: c.deptID, IsStore: true, Actor: f.admin,
	})
	require.NoError(t, err)
	subStore, err := locs.Get(ctx, sub.LocationID)
	require.NoError(t, err)

	ok, upward, err := canTransfer(ctx, locs, deptStore, subStore)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, upward)

	// 上行特例：院系主库 → 祖父 standalone 的主库
	ok, upward, err = canTransfer(ctx, locs, deptStore, rootStore)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, upward)

	// 附属库没有上行资格
	ok, _, err = canTransfer(ctx, locs, subStore, rootStore)
	require.NoError(t, err)
	require.False(t, ok)

	// 反方向（中央主库 → 院系主库）不在上行特例内
	ok, _, err = canTransfer(ctx, locs, rootStore, deptStore)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHierarchy_WouldCycle(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	ctx := context.Background()
	locs := f.txm.Repos().Locations

	// dept 的新父节点若是它自己的后代则成环
	cycle, err := wouldCycle(ctx, locs, c.rootID, c.deptID)
	require.NoError(t, err)
	require.True(t, cycle)

	cycle, err = wouldCycle(ctx, locs, "new-node", c.deptID)
	require.NoError(t, err)
	require.False(t, cycle)
}

func TestHierarchy_RootAnchor(t *testing.T) {
	f := newFixture(t)
	c := f.createCampus(t)
	ctx := context.Background()
	locs := f.txm.Repos().Locations

	deptStore, err := locs.Get(ctx, c.deptStoreID)
	require.NoError(t, err)
	root, err := rootAnchor(ctx, locs, deptStore)
	require.NoError(t, err)
	require.Equal(t, c.rootID, root.LocationID)
}
