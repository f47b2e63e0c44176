package repository

import (
	"context"
	"database/sql"
	"fmt"

	"assetledger/internal/domain"
)

type PostgresLocationsRepo struct {
	q Querier
}

func NewPostgresLocationsRepo(q Querier) *PostgresLocationsRepo {
	return &PostgresLocationsRepo{q: q}
}

const locationColumns = `
	location_id::text,
	code,
	name,
	location_type,
	parent_id::text,
	paired_store_id::text,
	is_store,
	is_standalone,
	is_main_store,
	is_auto_created,
	in_charge,
	address,
	description,
	hierarchy_level,
	hierarchy_path,
	is_active,
	created_by,
	created_at,
	updated_at`

func scanLocation(row interface{ Scan(...any) error }) (*domain.Location, error) {
	var l domain.Location
	if err := row.Scan(
		&l.LocationID,
		&l.Code,
		&l.Name,
		&l.LocationType,
		&l.ParentID,
		&l.PairedStoreID,
		&l.IsStore,
		&l.IsStandalone,
		&l.IsMainStore,
		&l.IsAutoCreated,
		&l.InCharge,
		&l.Address,
		&l.Description,
		&l.HierarchyLevel,
		&l.HierarchyPath,
		&l.IsActive,
		&l.CreatedBy,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresLocationsRepo) Create(ctx context.Context, loc *domain.Location) error {
	q := `
		INSERT INTO locations (
			location_id, code, name, location_type, parent_id, paired_store_id,
			is_store, is_standalone, is_main_store, is_auto_created,
			in_charge, address, description,
			hierarchy_level, hierarchy_path, is_active, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	_, err := r.q.ExecContext(ctx, q,
		loc.LocationID, loc.Code, loc.Name, loc.LocationType, loc.ParentID, loc.PairedStoreID,
		loc.IsStore, loc.IsStandalone, loc.IsMainStore, loc.IsAutoCreated,
		loc.InCharge, loc.Address, loc.Description,
		loc.HierarchyLevel, loc.HierarchyPath, loc.IsActive, loc.CreatedBy, loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (r *PostgresLocationsRepo) Update(ctx context.Context, loc *domain.Location) error {
	q := `
		UPDATE locations SET
			name = $2,
			paired_store_id = $3,
			in_charge = $4,
			address = $5,
			description = $6,
			is_active = $7,
			updated_at = NOW()
		WHERE location_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		loc.LocationID, loc.Name, loc.PairedStoreID,
		loc.InCharge, loc.Address, loc.Description, loc.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "location", ID: loc.LocationID}
	}
	return nil
}

func (r *PostgresLocationsRepo) Get(ctx context.Context, locationID string) (*domain.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE location_id = $1`
	loc, err := scanLocation(r.q.QueryRowContext(ctx, q, locationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "location", ID: locationID}
		}
		return nil, err
	}
	return loc, nil
}

func (r *PostgresLocationsRepo) GetByCode(ctx context.Context, code string) (*domain.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE code = $1`
	loc, err := scanLocation(r.q.QueryRowContext(ctx, q, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "location", ID: code}
		}
		return nil, err
	}
	return loc, nil
}

func (r *PostgresLocationsRepo) List(ctx context.Context, filter LocationFilter) ([]*domain.Location, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	if filter.LocationType != "" {
		where += fmt.Sprintf(" AND location_type = $%d", argIdx)
		args = append(args, filter.LocationType)
		argIdx++
	}
	if filter.ParentID != "" {
		where += fmt.Sprintf(" AND parent_id = $%d", argIdx)
		args = append(args, filter.ParentID)
		argIdx++
	}
	if filter.Standalone != nil {
		where += fmt.Sprintf(" AND is_standalone = $%d", argIdx)
		args = append(args, *filter.Standalone)
		argIdx++
	}
	if filter.StoresOnly {
		where += " AND is_store = TRUE"
	}
	if filter.ActiveOnly {
		where += " AND is_active = TRUE"
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	q := `SELECT ` + locationColumns + ` FROM locations WHERE ` + where + ` ORDER BY hierarchy_path`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (r *PostgresLocationsRepo) Children(ctx context.Context, parentID string) ([]*domain.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE parent_id = $1 ORDER BY code`
	rows, err := r.q.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (r *PostgresLocationsRepo) CountActiveChildren(ctx context.Context, parentID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE parent_id = $1 AND is_active = TRUE`,
		parentID,
	).Scan(&n)
	return n, err
}

func (r *PostgresLocationsRepo) RootExists(ctx context.Context) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE parent_id IS NULL AND is_active = TRUE`,
	).Scan(&n)
	return n > 0, err
}

func (r *PostgresLocationsRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE code = $1`, code,
	).Scan(&n)
	return n > 0, err
}

func (r *PostgresLocationsRepo) CountActiveMainStores(ctx context.Context, standaloneID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE parent_id = $1 AND is_main_store = TRUE AND is_active = TRUE`,
		standaloneID,
	).Scan(&n)
	return n, err
}
