package service

import (
	"context"
	"database/sql"
	"time"

	"assetledger/internal/domain"
)

// requireAccess 位置访问判定：管理员全通，其余走注入的 AccessPolicy
func requireAccess(ctx context.Context, policy domain.AccessPolicy, actor domain.Actor, loc *domain.Location) error {
	if actor.IsAdmin() {
		return nil
	}
	if policy != nil && policy.HasAccess(ctx, actor, loc.LocationID) {
		return nil
	}
	return domain.Preconditionf("actor %s has no access to location %s", actor.ID, loc.Code)
}

// isCustodianOf 是否该库的保管人：in_charge 本人，或有访问权的库管角色
func isCustodianOf(ctx context.Context, policy domain.AccessPolicy, actor domain.Actor, store *domain.Location) bool {
	if store.InCharge.Valid && store.InCharge.String == actor.ID {
		return true
	}
	if actor.Role == domain.RoleStockIncharge && policy != nil && policy.HasAccess(ctx, actor, store.LocationID) {
		return true
	}
	return false
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
