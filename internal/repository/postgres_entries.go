package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assetledger/internal/domain"
)

type PostgresEntriesRepo struct {
	q Querier
}

func NewPostgresEntriesRepo(q Querier) *PostgresEntriesRepo {
	return &PostgresEntriesRepo{q: q}
}

const entryColumns = `
	entry_id::text,
	entry_number,
	entry_type,
	status,
	entry_date,
	from_location_id::text,
	to_location_id::text,
	item_id::text,
	quantity,
	reference_entry_id::text,
	certificate_id::text,
	is_temporary,
	expected_return_date,
	actual_return_date,
	temporary_recipient,
	requires_acknowledgment,
	is_cross_hierarchy,
	is_upward_transfer,
	purpose,
	remarks,
	created_by,
	acknowledged_by,
	acknowledged_at,
	created_at,
	updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*domain.StockEntry, error) {
	var e domain.StockEntry
	if err := row.Scan(
		&e.EntryID, &e.EntryNumber, &e.EntryType, &e.Status, &e.EntryDate,
		&e.FromLocationID, &e.ToLocationID, &e.ItemID, &e.Quantity,
		&e.ReferenceEntryID, &e.CertificateID,
		&e.IsTemporary, &e.ExpectedReturnDate, &e.ActualReturnDate, &e.TemporaryRecipient,
		&e.RequiresAcknowledgment, &e.IsCrossHierarchy, &e.IsUpwardTransfer,
		&e.Purpose, &e.Remarks, &e.CreatedBy,
		&e.AcknowledgedBy, &e.AcknowledgedAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresEntriesRepo) Create(ctx context.Context, entry *domain.StockEntry) error {
	q := `
		INSERT INTO stock_entries (
			entry_id, entry_number, entry_type, status, entry_date,
			from_location_id, to_location_id, item_id, quantity,
			reference_entry_id, certificate_id,
			is_temporary, expected_return_date, temporary_recipient,
			requires_acknowledgment, is_cross_hierarchy, is_upward_transfer,
			purpose, remarks, created_by, acknowledged_by, acknowledged_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`
	_, err := r.q.ExecContext(ctx, q,
		entry.EntryID, entry.EntryNumber, entry.EntryType, entry.Status, entry.EntryDate,
		entry.FromLocationID, entry.ToLocationID, entry.ItemID, entry.Quantity,
		entry.ReferenceEntryID, entry.CertificateID,
		entry.IsTemporary, entry.ExpectedReturnDate, entry.TemporaryRecipient,
		entry.RequiresAcknowledgment, entry.IsCrossHierarchy, entry.IsUpwardTransfer,
		entry.Purpose, entry.Remarks, entry.CreatedBy,
		entry.AcknowledgedBy, entry.AcknowledgedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock entry: %w", err)
	}
	for _, instanceID := range entry.InstanceIDs {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO stock_entry_instances (entry_id, instance_id) VALUES ($1, $2)`,
			entry.EntryID, instanceID,
		); err != nil {
			return fmt.Errorf("link entry instance: %w", err)
		}
	}
	return nil
}

func (r *PostgresEntriesRepo) Update(ctx context.Context, entry *domain.StockEntry) error {
	q := `
		UPDATE stock_entries SET
			status = $2, actual_return_date = $3, remarks = $4,
			acknowledged_by = $5, acknowledged_at = $6, updated_at = NOW()
		WHERE entry_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		entry.EntryID, entry.Status, entry.ActualReturnDate, entry.Remarks,
		entry.AcknowledgedBy, entry.AcknowledgedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "stock_entry", ID: entry.EntryID}
	}
	return nil
}

func (r *PostgresEntriesRepo) Get(ctx context.Context, entryID string) (*domain.StockEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM stock_entries WHERE entry_id = $1`
	entry, err := scanEntry(r.q.QueryRowContext(ctx, q, entryID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "stock_entry", ID: entryID}
		}
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT instance_id::text FROM stock_entry_instances WHERE entry_id = $1`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		entry.InstanceIDs = append(entry.InstanceIDs, id)
	}
	return entry, rows.Err()
}

func (r *PostgresEntriesRepo) List(ctx context.Context, filter EntryFilter) ([]*domain.StockEntry, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	add := func(col string, v any) {
		where += fmt.Sprintf(" AND %s = $%d", col, argIdx)
		args = append(args, v)
		argIdx++
	}
	if filter.EntryType != "" {
		add("entry_type", filter.EntryType)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.ToLocationID != "" {
		add("to_location_id", filter.ToLocationID)
	}
	if filter.FromLocationID != "" {
		add("from_location_id", filter.FromLocationID)
	}
	if filter.ItemID != "" {
		add("item_id", filter.ItemID)
	}
	if filter.PendingAckOnly {
		where += " AND status = 'PENDING_ACK'"
	}

	q := `SELECT ` + entryColumns + ` FROM stock_entries WHERE ` + where + ` ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.StockEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NextSeq 按 (entryType, day) 取已有单号的最大序号 + 1。
// entry_number 形如 TYPE-YYYYMMDD-NNNN，UNIQUE 约束兜底并发冲突
func (r *PostgresEntriesRepo) NextSeq(ctx context.Context, entryType domain.EntryType, day string) (int, error) {
	prefix := fmt.Sprintf("%s-%s", entryType, day)
	q := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(entry_number FROM LENGTH($1) + 2) AS INTEGER)), 0)
		FROM stock_entries
		WHERE entry_number LIKE $1 || '-%'
	`
	var maxSeq int
	if err := r.q.QueryRowContext(ctx, q, prefix).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("next entry seq: %w", err)
	}
	return maxSeq + 1, nil
}

// CompleteIfPending 乐观 check-and-set：WHERE 里钉住 PENDING_ACK，
// 受影响行数为 0 即判定并发冲突，不做读-改-写
func (r *PostgresEntriesRepo) CompleteIfPending(ctx context.Context, entryID, actorID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE stock_entries
		SET status = 'COMPLETED', acknowledged_by = $2, acknowledged_at = $3, updated_at = NOW()
		WHERE entry_id = $1 AND status = 'PENDING_ACK'
	`, entryID, actorID, at)
	if err != nil {
		return false, fmt.Errorf("complete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresEntriesRepo) CancelIfPending(ctx context.Context, entryID, actorID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE stock_entries
		SET status = 'CANCELLED', acknowledged_by = $2, acknowledged_at = $3, updated_at = NOW()
		WHERE entry_id = $1 AND status = 'PENDING_ACK'
	`, entryID, actorID, at)
	if err != nil {
		return false, fmt.Errorf("cancel entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
