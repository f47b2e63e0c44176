package repository

import (
	"context"
	"database/sql"
	"fmt"

	"assetledger/internal/domain"
)

type PostgresItemsRepo struct {
	q Querier
}

func NewPostgresItemsRepo(q Querier) *PostgresItemsRepo {
	return &PostgresItemsRepo{q: q}
}

// ============================================
// Category 操作
// ============================================

func (r *PostgresItemsRepo) CreateCategory(ctx context.Context, cat *domain.Category) error {
	q := `
		INSERT INTO categories (
			category_id, code, name, description, parent_category_id,
			depreciation_rate, is_active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err := r.q.ExecContext(ctx, q,
		cat.CategoryID, cat.Code, cat.Name, cat.Description, cat.ParentCategoryID,
		cat.DepreciationRate, cat.IsActive, cat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *PostgresItemsRepo) UpdateCategory(ctx context.Context, cat *domain.Category) error {
	q := `
		UPDATE categories SET
			name = $2, description = $3, depreciation_rate = $4, is_active = $5
		WHERE category_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		cat.CategoryID, cat.Name, cat.Description, cat.DepreciationRate, cat.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "category", ID: cat.CategoryID}
	}
	return nil
}

func (r *PostgresItemsRepo) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	q := `
		SELECT category_id::text, code, name, description, parent_category_id::text,
		       depreciation_rate, is_active, created_at
		FROM categories WHERE category_id = $1
	`
	var c domain.Category
	err := r.q.QueryRowContext(ctx, q, categoryID).Scan(
		&c.CategoryID, &c.Code, &c.Name, &c.Description, &c.ParentCategoryID,
		&c.DepreciationRate, &c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "category", ID: categoryID}
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresItemsRepo) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	q := `
		SELECT category_id::text, code, name, description, parent_category_id::text,
		       depreciation_rate, is_active, created_at
		FROM categories
	`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY code`

	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(
			&c.CategoryID, &c.Code, &c.Name, &c.Description, &c.ParentCategoryID,
			&c.DepreciationRate, &c.IsActive, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *PostgresItemsRepo) CategoryCodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE code = $1`, code).Scan(&n)
	return n > 0, err
}

// ============================================
// Item 操作
// ============================================

const itemColumns = `
	item_id::text,
	code,
	name,
	category_id::text,
	description,
	acct_unit,
	specifications,
	default_location_id::text,
	total_quantity,
	reorder_level,
	reorder_quantity,
	is_active,
	created_by,
	created_at,
	updated_at`

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	var it domain.Item
	if err := row.Scan(
		&it.ItemID, &it.Code, &it.Name, &it.CategoryID, &it.Description,
		&it.AcctUnit, &it.Specifications, &it.DefaultLocationID,
		&it.TotalQuantity, &it.ReorderLevel, &it.ReorderQuantity,
		&it.IsActive, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PostgresItemsRepo) CreateItem(ctx context.Context, item *domain.Item) error {
	q := `
		INSERT INTO items (
			item_id, code, name, category_id, description, acct_unit, specifications,
			default_location_id, total_quantity, reorder_level, reorder_quantity,
			is_active, created_by, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err := r.q.ExecContext(ctx, q,
		item.ItemID, item.Code, item.Name, item.CategoryID, item.Description,
		item.AcctUnit, item.Specifications, item.DefaultLocationID,
		item.TotalQuantity, item.ReorderLevel, item.ReorderQuantity,
		item.IsActive, item.CreatedBy, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *PostgresItemsRepo) UpdateItem(ctx context.Context, item *domain.Item) error {
	q := `
		UPDATE items SET
			name = $2, description = $3, acct_unit = $4, specifications = $5,
			total_quantity = $6, reorder_level = $7, reorder_quantity = $8,
			is_active = $9, updated_at = NOW()
		WHERE item_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		item.ItemID, item.Name, item.Description, item.AcctUnit, item.Specifications,
		item.TotalQuantity, item.ReorderLevel, item.ReorderQuantity, item.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "item", ID: item.ItemID}
	}
	return nil
}

func (r *PostgresItemsRepo) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE item_id = $1`
	it, err := scanItem(r.q.QueryRowContext(ctx, q, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "item", ID: itemID}
		}
		return nil, err
	}
	return it, nil
}

func (r *PostgresItemsRepo) GetItemByCode(ctx context.Context, code string) (*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE code = $1`
	it, err := scanItem(r.q.QueryRowContext(ctx, q, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "item", ID: code}
		}
		return nil, err
	}
	return it, nil
}

func (r *PostgresItemsRepo) ListItems(ctx context.Context, filter ItemFilter) ([]*domain.Item, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	if filter.CategoryID != "" {
		where += fmt.Sprintf(" AND category_id = $%d", argIdx)
		args = append(args, filter.CategoryID)
		argIdx++
	}
	if filter.ActiveOnly {
		where += " AND is_active = TRUE"
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	q := `SELECT ` + itemColumns + ` FROM items WHERE ` + where + ` ORDER BY code`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresItemsRepo) ItemCodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE code = $1`, code).Scan(&n)
	return n > 0, err
}
