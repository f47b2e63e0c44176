package service

import (
	"context"

	"assetledger/internal/domain"
	"assetledger/internal/repository"
)

// 层级解析：位置树上的纯查询，不做任何写入。
// 角色（standalone / store / main store）从树位置推导，不另存冗余状态

const maxHierarchyDepth = 64

// nearestStandaloneAncestor loc 自身是 standalone 则返回自身，
// 否则沿 parent 链向上找第一个 standalone；找不到返回 nil
func nearestStandaloneAncestor(ctx context.Context, locs repository.LocationsRepository, loc *domain.Location) (*domain.Location, error) {
	cur := loc
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		if cur.IsStandalone && !cur.IsStore {
			return cur, nil
		}
		if !cur.ParentID.Valid {
			return nil, nil
		}
		parent, err := locs.Get(ctx, cur.ParentID.String)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return nil, domain.Invariantf("hierarchy deeper than %d levels at location %s", maxHierarchyDepth, loc.LocationID)
}

// resolveMainCustodian 解析 loc 的默认保管库。
// 未配置时返回 PreconditionError：调用方必须硬失败，不允许静默兜底
func resolveMainCustodian(ctx context.Context, locs repository.LocationsRepository, loc *domain.Location) (*domain.Location, error) {
	if loc.IsStore && loc.IsMainStore {
		return loc, nil
	}
	anchor := loc
	if !(loc.IsStandalone && !loc.IsStore) {
		a, err := nearestStandaloneAncestor(ctx, locs, loc)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, domain.Preconditionf("location %s has no standalone ancestor", loc.Code)
		}
		anchor = a
	}
	if !anchor.PairedStoreID.Valid {
		return nil, domain.Preconditionf("standalone location %s has no main store configured", anchor.Code)
	}
	return locs.Get(ctx, anchor.PairedStoreID.String)
}

// canTransfer 转移资格判定。
// 同一 standalone 分支内可转；主库可向祖父 standalone 的主库上行转移。
// 返回 (eligible, upward)
func canTransfer(ctx context.Context, locs repository.LocationsRepository, from, to *domain.Location) (bool, bool, error) {
	fromAnchor, err := nearestStandaloneAncestor(ctx, locs, from)
	if err != nil {
		return false, false, err
	}
	toAnchor, err := nearestStandaloneAncestor(ctx, locs, to)
	if err != nil {
		return false, false, err
	}
	if fromAnchor != nil && toAnchor != nil && fromAnchor.LocationID == toAnchor.LocationID {
		return true, false, nil
	}

	// 上行转移特例：主库 → 祖父 standalone 的主库
	if !from.IsMainStore || fromAnchor == nil || !fromAnchor.ParentID.Valid {
		return false, false, nil
	}
	parent, err := locs.Get(ctx, fromAnchor.ParentID.String)
	if err != nil {
		return false, false, err
	}
	grand, err := nearestStandaloneAncestor(ctx, locs, parent)
	if err != nil {
		return false, false, err
	}
	if grand == nil {
		return false, false, nil
	}
	custodian, err := resolveMainCustodian(ctx, locs, grand)
	if err != nil {
		if _, ok := err.(*domain.PreconditionError); ok {
			return false, false, nil
		}
		return false, false, err
	}
	if custodian.LocationID == to.LocationID {
		return true, true, nil
	}
	return false, false, nil
}

// wouldCycle 结构写入前的环检测：从候选父节点向上走，带 visited 集合
func wouldCycle(ctx context.Context, locs repository.LocationsRepository, nodeID, newParentID string) (bool, error) {
	visited := map[string]bool{nodeID: true}
	curID := newParentID
	for curID != "" {
		if visited[curID] {
			return true, nil
		}
		visited[curID] = true
		cur, err := locs.Get(ctx, curID)
		if err != nil {
			return false, err
		}
		if !cur.ParentID.Valid {
			return false, nil
		}
		curID = cur.ParentID.String
	}
	return false, nil
}

// rootAnchor 向上走到根，再取其 standalone 锚点（中央库解析用）
func rootAnchor(ctx context.Context, locs repository.LocationsRepository, loc *domain.Location) (*domain.Location, error) {
	cur := loc
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		if !cur.ParentID.Valid {
			return cur, nil
		}
		parent, err := locs.Get(ctx, cur.ParentID.String)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return nil, domain.Invariantf("hierarchy deeper than %d levels at location %s", maxHierarchyDepth, loc.LocationID)
}
