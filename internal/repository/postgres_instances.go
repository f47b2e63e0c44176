package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"assetledger/internal/domain"
)

type PostgresInstancesRepo struct {
	q Querier
}

func NewPostgresInstancesRepo(q Querier) *PostgresInstancesRepo {
	return &PostgresInstancesRepo{q: q}
}

const instanceColumns = `
	instance_id::text,
	instance_code,
	item_id::text,
	certificate_id::text,
	current_status,
	previous_status,
	status_changed_by,
	status_changed_at,
	source_location_id::text,
	current_location_id::text,
	assigned_to,
	assigned_date,
	expected_return_date,
	actual_return_date,
	condition,
	condition_notes,
	damage_reported_date,
	repair_started_date,
	repair_completed_date,
	repair_cost,
	disposal_date,
	disposal_reason,
	purchase_date,
	purchase_value,
	warranty_expiry,
	notes,
	created_by,
	created_at,
	updated_at`

func scanInstance(row interface{ Scan(...any) error }) (*domain.ItemInstance, error) {
	var i domain.ItemInstance
	if err := row.Scan(
		&i.InstanceID, &i.InstanceCode, &i.ItemID, &i.CertificateID,
		&i.CurrentStatus, &i.PreviousStatus, &i.StatusChangedBy, &i.StatusChangedAt,
		&i.SourceLocationID, &i.CurrentLocationID,
		&i.AssignedTo, &i.AssignedDate, &i.ExpectedReturnDate, &i.ActualReturnDate,
		&i.Condition, &i.ConditionNotes,
		&i.DamageReportedDate, &i.RepairStartedDate, &i.RepairCompletedDate, &i.RepairCost,
		&i.DisposalDate, &i.DisposalReason,
		&i.PurchaseDate, &i.PurchaseValue, &i.WarrantyExpiry,
		&i.Notes, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *PostgresInstancesRepo) Create(ctx context.Context, inst *domain.ItemInstance) error {
	q := `
		INSERT INTO item_instances (
			instance_id, instance_code, item_id, certificate_id,
			current_status, source_location_id, current_location_id,
			condition, condition_notes,
			purchase_date, purchase_value, warranty_expiry,
			notes, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	_, err := r.q.ExecContext(ctx, q,
		inst.InstanceID, inst.InstanceCode, inst.ItemID, inst.CertificateID,
		inst.CurrentStatus, inst.SourceLocationID, inst.CurrentLocationID,
		inst.Condition, inst.ConditionNotes,
		inst.PurchaseDate, inst.PurchaseValue, inst.WarrantyExpiry,
		inst.Notes, inst.CreatedBy, inst.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

func (r *PostgresInstancesRepo) Update(ctx context.Context, inst *domain.ItemInstance) error {
	q := `
		UPDATE item_instances SET
			current_status = $2, previous_status = $3,
			status_changed_by = $4, status_changed_at = $5,
			source_location_id = $6, current_location_id = $7,
			assigned_to = $8, assigned_date = $9,
			expected_return_date = $10, actual_return_date = $11,
			condition = $12, condition_notes = $13,
			damage_reported_date = $14, repair_started_date = $15,
			repair_completed_date = $16, repair_cost = $17,
			disposal_date = $18, disposal_reason = $19,
			notes = $20, updated_at = NOW()
		WHERE instance_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		inst.InstanceID,
		inst.CurrentStatus, inst.PreviousStatus,
		inst.StatusChangedBy, inst.StatusChangedAt,
		inst.SourceLocationID, inst.CurrentLocationID,
		inst.AssignedTo, inst.AssignedDate,
		inst.ExpectedReturnDate, inst.ActualReturnDate,
		inst.Condition, inst.ConditionNotes,
		inst.DamageReportedDate, inst.RepairStartedDate,
		inst.RepairCompletedDate, inst.RepairCost,
		inst.DisposalDate, inst.DisposalReason,
		inst.Notes,
	)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "instance", ID: inst.InstanceID}
	}
	return nil
}

func (r *PostgresInstancesRepo) Get(ctx context.Context, instanceID string) (*domain.ItemInstance, error) {
	q := `SELECT ` + instanceColumns + ` FROM item_instances WHERE instance_id = $1`
	inst, err := scanInstance(r.q.QueryRowContext(ctx, q, instanceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "instance", ID: instanceID}
		}
		return nil, err
	}
	return inst, nil
}

func (r *PostgresInstancesRepo) GetByCode(ctx context.Context, code string) (*domain.ItemInstance, error) {
	q := `SELECT ` + instanceColumns + ` FROM item_instances WHERE instance_code = $1`
	inst, err := scanInstance(r.q.QueryRowContext(ctx, q, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "instance", ID: code}
		}
		return nil, err
	}
	return inst, nil
}

func (r *PostgresInstancesRepo) List(ctx context.Context, filter InstanceFilter) ([]*domain.ItemInstance, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	add := func(cond string, v any) {
		where += fmt.Sprintf(" AND %s = $%d", cond, argIdx)
		args = append(args, v)
		argIdx++
	}
	if filter.ItemID != "" {
		add("item_id", filter.ItemID)
	}
	if filter.SourceLocationID != "" {
		add("source_location_id", filter.SourceLocationID)
	}
	if filter.CurrentLocationID != "" {
		add("current_location_id", filter.CurrentLocationID)
	}
	if filter.Status != "" {
		add("current_status", filter.Status)
	}
	if filter.CertificateID != "" {
		add("certificate_id", filter.CertificateID)
	}
	if filter.AssignedTo != "" {
		add("assigned_to", filter.AssignedTo)
	}

	q := `SELECT ` + instanceColumns + ` FROM item_instances WHERE ` + where + ` ORDER BY instance_code`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.ItemInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (r *PostgresInstancesRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.ItemInstance, error) {
	if len(ids) == 0 {
		return []*domain.ItemInstance{}, nil
	}
	q := `SELECT ` + instanceColumns + ` FROM item_instances WHERE instance_id = ANY($1) ORDER BY instance_code`
	rows, err := r.q.QueryContext(ctx, q, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.ItemInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// NextSeq 按 (itemCode, year) 取已有编码的最大序号 + 1。
// instance_code 形如 ITEMCODE-YYYY-NNNN，UNIQUE 约束兜底并发冲突
func (r *PostgresInstancesRepo) NextSeq(ctx context.Context, itemCode string, year int) (int, error) {
	prefix := fmt.Sprintf("%s-%d", itemCode, year)
	q := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(instance_code FROM LENGTH($1) + 2) AS INTEGER)), 0)
		FROM item_instances
		WHERE instance_code LIKE $1 || '-%'
	`
	var maxSeq int
	if err := r.q.QueryRowContext(ctx, q, prefix).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("next instance seq: %w", err)
	}
	return maxSeq + 1, nil
}

func (r *PostgresInstancesRepo) CountBySourceLocation(ctx context.Context, locationID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_instances WHERE source_location_id = $1 AND current_status NOT IN ('DISPOSED')`,
		locationID,
	).Scan(&n)
	return n, err
}

// Breakdown 全量重算 (location, item) 的计数。
// Total/按状态计数以保管方（source_location_id）为准；
// Available 要求物理在本库且 IN_STORE，可能包含他库寄存于此的单件
func (r *PostgresInstancesRepo) Breakdown(ctx context.Context, locationID, itemID string) (*StatusBreakdown, error) {
	out := &StatusBreakdown{ByStatus: map[domain.InstanceStatus]int{}}

	q := `
		SELECT current_status, COUNT(*)
		FROM item_instances
		WHERE source_location_id = $1 AND item_id = $2
		GROUP BY current_status
	`
	rows, err := r.q.QueryContext(ctx, q, locationID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.InstanceStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out.ByStatus[status] = n
		out.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_instances
		 WHERE current_location_id = $1 AND item_id = $2 AND current_status = 'IN_STORE'`,
		locationID, itemID,
	).Scan(&out.Available)
	if err != nil {
		return nil, err
	}
	return out, nil
}
