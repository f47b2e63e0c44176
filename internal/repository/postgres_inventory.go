package repository

import (
	"context"
	"database/sql"
	"fmt"

	"assetledger/internal/domain"
)

type PostgresInventoryRepo struct {
	q Querier
}

func NewPostgresInventoryRepo(q Querier) *PostgresInventoryRepo {
	return &PostgresInventoryRepo{q: q}
}

const inventoryColumns = `
	inventory_id::text,
	location_id::text,
	item_id::text,
	total_quantity,
	available_quantity,
	in_store_qty,
	in_transit_qty,
	in_use_qty,
	temporary_issued_qty,
	under_repair_qty,
	damaged_qty,
	lost_qty,
	condemned_qty,
	disposed_qty,
	last_updated`

func scanInventory(row interface{ Scan(...any) error }) (*domain.LocationInventory, error) {
	var v domain.LocationInventory
	if err := row.Scan(
		&v.InventoryID, &v.LocationID, &v.ItemID,
		&v.TotalQuantity, &v.AvailableQuantity,
		&v.InStoreQty, &v.InTransitQty, &v.InUseQty, &v.TemporaryIssuedQty,
		&v.UnderRepairQty, &v.DamagedQty, &v.LostQty, &v.CondemnedQty, &v.DisposedQty,
		&v.LastUpdated,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

// Upsert 整行覆写，(location_id, item_id) 是 UNIQUE 键
func (r *PostgresInventoryRepo) Upsert(ctx context.Context, inv *domain.LocationInventory) error {
	q := `
		INSERT INTO location_inventories (
			inventory_id, location_id, item_id,
			total_quantity, available_quantity,
			in_store_qty, in_transit_qty, in_use_qty, temporary_issued_qty,
			under_repair_qty, damaged_qty, lost_qty, condemned_qty, disposed_qty,
			last_updated
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (location_id, item_id) DO UPDATE SET
			total_quantity = EXCLUDED.total_quantity,
			available_quantity = EXCLUDED.available_quantity,
			in_store_qty = EXCLUDED.in_store_qty,
			in_transit_qty = EXCLUDED.in_transit_qty,
			in_use_qty = EXCLUDED.in_use_qty,
			temporary_issued_qty = EXCLUDED.temporary_issued_qty,
			under_repair_qty = EXCLUDED.under_repair_qty,
			damaged_qty = EXCLUDED.damaged_qty,
			lost_qty = EXCLUDED.lost_qty,
			condemned_qty = EXCLUDED.condemned_qty,
			disposed_qty = EXCLUDED.disposed_qty,
			last_updated = EXCLUDED.last_updated
	`
	_, err := r.q.ExecContext(ctx, q,
		inv.InventoryID, inv.LocationID, inv.ItemID,
		inv.TotalQuantity, inv.AvailableQuantity,
		inv.InStoreQty, inv.InTransitQty, inv.InUseQty, inv.TemporaryIssuedQty,
		inv.UnderRepairQty, inv.DamagedQty, inv.LostQty, inv.CondemnedQty, inv.DisposedQty,
		inv.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

func (r *PostgresInventoryRepo) Get(ctx context.Context, locationID, itemID string) (*domain.LocationInventory, error) {
	q := `SELECT ` + inventoryColumns + ` FROM location_inventories WHERE location_id = $1 AND item_id = $2`
	inv, err := scanInventory(r.q.QueryRowContext(ctx, q, locationID, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "inventory", ID: locationID + "/" + itemID}
		}
		return nil, err
	}
	return inv, nil
}

func (r *PostgresInventoryRepo) ListByLocation(ctx context.Context, locationID string) ([]*domain.LocationInventory, error) {
	q := `SELECT ` + inventoryColumns + ` FROM location_inventories WHERE location_id = $1 ORDER BY item_id`
	rows, err := r.q.QueryContext(ctx, q, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.LocationInventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *PostgresInventoryRepo) ListAll(ctx context.Context) ([]*domain.LocationInventory, error) {
	q := `SELECT ` + inventoryColumns + ` FROM location_inventories ORDER BY location_id, item_id`
	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.LocationInventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
