package repository

import (
	"context"
	"fmt"

	"assetledger/internal/domain"
)

type PostgresMovementsRepo struct {
	q Querier
}

func NewPostgresMovementsRepo(q Querier) *PostgresMovementsRepo {
	return &PostgresMovementsRepo{q: q}
}

const movementColumns = `
	movement_id::text,
	instance_id::text,
	stock_entry_id::text,
	from_location_id::text,
	to_location_id::text,
	previous_status,
	new_status,
	movement_type,
	moved_by,
	moved_at,
	remarks,
	requires_acknowledgment,
	acknowledged,
	acknowledged_by,
	acknowledged_at,
	is_cross_hierarchy,
	is_upward_transfer`

func scanMovement(row interface{ Scan(...any) error }) (*domain.InstanceMovement, error) {
	var m domain.InstanceMovement
	if err := row.Scan(
		&m.MovementID, &m.InstanceID, &m.StockEntryID,
		&m.FromLocationID, &m.ToLocationID,
		&m.PreviousStatus, &m.NewStatus, &m.MovementType,
		&m.MovedBy, &m.MovedAt, &m.Remarks,
		&m.RequiresAcknowledgment, &m.Acknowledged, &m.AcknowledgedBy, &m.AcknowledgedAt,
		&m.IsCrossHierarchy, &m.IsUpwardTransfer,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresMovementsRepo) Append(ctx context.Context, m *domain.InstanceMovement) error {
	q := `
		INSERT INTO instance_movements (
			movement_id, instance_id, stock_entry_id,
			from_location_id, to_location_id,
			previous_status, new_status, movement_type,
			moved_by, moved_at, remarks,
			requires_acknowledgment, acknowledged, acknowledged_by, acknowledged_at,
			is_cross_hierarchy, is_upward_transfer
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	_, err := r.q.ExecContext(ctx, q,
		m.MovementID, m.InstanceID, m.StockEntryID,
		m.FromLocationID, m.ToLocationID,
		m.PreviousStatus, m.NewStatus, m.MovementType,
		m.MovedBy, m.MovedAt, m.Remarks,
		m.RequiresAcknowledgment, m.Acknowledged, m.AcknowledgedBy, m.AcknowledgedAt,
		m.IsCrossHierarchy, m.IsUpwardTransfer,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *PostgresMovementsRepo) ListByInstance(ctx context.Context, instanceID string) ([]*domain.InstanceMovement, error) {
	q := `SELECT ` + movementColumns + ` FROM instance_movements WHERE instance_id = $1 ORDER BY moved_at, movement_id`
	rows, err := r.q.QueryContext(ctx, q, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.InstanceMovement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresMovementsRepo) ListByEntry(ctx context.Context, entryID string) ([]*domain.InstanceMovement, error) {
	q := `SELECT ` + movementColumns + ` FROM instance_movements WHERE stock_entry_id = $1 ORDER BY moved_at, movement_id`
	rows, err := r.q.QueryContext(ctx, q, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.InstanceMovement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
