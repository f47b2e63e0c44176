package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"assetledger/internal/domain"
)

type PostgresCertificatesRepo struct {
	q Querier
}

func NewPostgresCertificatesRepo(q Querier) *PostgresCertificatesRepo {
	return &PostgresCertificatesRepo{q: q}
}

const certificateColumns = `
	certificate_id::text,
	certificate_no,
	department_id::text,
	is_root_flow,
	date,
	contract_no,
	contract_date,
	contractor_name,
	contractor_address,
	indenter,
	indent_no,
	date_of_delivery,
	delivery_type,
	remarks,
	inspected_by,
	date_of_inspection,
	consignee_name,
	consignee_designation,
	dead_stock_register_no,
	dead_stock_page_no,
	central_store_entry_date,
	finance_check_date,
	stage,
	status,
	initiated_by,
	initiated_at,
	stock_filled_by,
	stock_filled_at,
	auditor_reviewed_by,
	auditor_reviewed_at,
	rejected_by,
	rejected_at,
	rejection_reason,
	rejection_stage,
	stage_history,
	created_at,
	updated_at`

func scanCertificate(row interface{ Scan(...any) error }) (*domain.InspectionCertificate, error) {
	var c domain.InspectionCertificate
	var history []byte
	if err := row.Scan(
		&c.CertificateID, &c.CertificateNo, &c.DepartmentID, &c.IsRootFlow,
		&c.Date, &c.ContractNo, &c.ContractDate, &c.ContractorName, &c.ContractorAddress,
		&c.Indenter, &c.IndentNo, &c.DateOfDelivery, &c.DeliveryType, &c.Remarks,
		&c.InspectedBy, &c.DateOfInspection, &c.ConsigneeName, &c.ConsigneeDesignation,
		&c.DeadStockRegisterNo, &c.DeadStockPageNo, &c.CentralStoreEntryDate, &c.FinanceCheckDate,
		&c.Stage, &c.Status,
		&c.InitiatedBy, &c.InitiatedAt, &c.StockFilledBy, &c.StockFilledAt,
		&c.AuditorReviewedBy, &c.AuditorReviewedAt,
		&c.RejectedBy, &c.RejectedAt, &c.RejectionReason, &c.RejectionStage,
		&history, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &c.StageHistory); err != nil {
			return nil, fmt.Errorf("decode stage_history: %w", err)
		}
	}
	return &c, nil
}

func marshalStageHistory(entries []domain.StageHistoryEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.StageHistoryEntry{}
	}
	return json.Marshal(entries)
}

func (r *PostgresCertificatesRepo) Create(ctx context.Context, cert *domain.InspectionCertificate) error {
	history, err := marshalStageHistory(cert.StageHistory)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO inspection_certificates (
			certificate_id, certificate_no, department_id, is_root_flow,
			date, contract_no, contract_date, contractor_name, contractor_address,
			indenter, indent_no, date_of_delivery, delivery_type, remarks,
			stage, status, initiated_by, initiated_at, stage_history, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`
	_, err = r.q.ExecContext(ctx, q,
		cert.CertificateID, cert.CertificateNo, cert.DepartmentID, cert.IsRootFlow,
		cert.Date, cert.ContractNo, cert.ContractDate, cert.ContractorName, cert.ContractorAddress,
		cert.Indenter, cert.IndentNo, cert.DateOfDelivery, cert.DeliveryType, cert.Remarks,
		cert.Stage, cert.Status, cert.InitiatedBy, cert.InitiatedAt, history, cert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (r *PostgresCertificatesRepo) Update(ctx context.Context, cert *domain.InspectionCertificate) error {
	history, err := marshalStageHistory(cert.StageHistory)
	if err != nil {
		return err
	}
	q := `
		UPDATE inspection_certificates SET
			date = $2, contract_no = $3, contract_date = $4,
			contractor_name = $5, contractor_address = $6,
			indenter = $7, indent_no = $8, date_of_delivery = $9,
			delivery_type = $10, remarks = $11,
			inspected_by = $12, date_of_inspection = $13,
			consignee_name = $14, consignee_designation = $15,
			dead_stock_register_no = $16, dead_stock_page_no = $17,
			central_store_entry_date = $18, finance_check_date = $19,
			stage = $20, status = $21,
			stock_filled_by = $22, stock_filled_at = $23,
			auditor_reviewed_by = $24, auditor_reviewed_at = $25,
			rejected_by = $26, rejected_at = $27,
			rejection_reason = $28, rejection_stage = $29,
			stage_history = $30, updated_at = NOW()
		WHERE certificate_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		cert.CertificateID,
		cert.Date, cert.ContractNo, cert.ContractDate,
		cert.ContractorName, cert.ContractorAddress,
		cert.Indenter, cert.IndentNo, cert.DateOfDelivery,
		cert.DeliveryType, cert.Remarks,
		cert.InspectedBy, cert.DateOfInspection,
		cert.ConsigneeName, cert.ConsigneeDesignation,
		cert.DeadStockRegisterNo, cert.DeadStockPageNo,
		cert.CentralStoreEntryDate, cert.FinanceCheckDate,
		cert.Stage, cert.Status,
		cert.StockFilledBy, cert.StockFilledAt,
		cert.AuditorReviewedBy, cert.AuditorReviewedAt,
		cert.RejectedBy, cert.RejectedAt,
		cert.RejectionReason, cert.RejectionStage,
		history,
	)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "certificate", ID: cert.CertificateID}
	}
	return nil
}

func (r *PostgresCertificatesRepo) Get(ctx context.Context, certificateID string) (*domain.InspectionCertificate, error) {
	q := `SELECT ` + certificateColumns + ` FROM inspection_certificates WHERE certificate_id = $1`
	cert, err := scanCertificate(r.q.QueryRowContext(ctx, q, certificateID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "certificate", ID: certificateID}
		}
		return nil, err
	}
	return cert, nil
}

func (r *PostgresCertificatesRepo) List(ctx context.Context, filter CertificateFilter) ([]*domain.InspectionCertificate, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	if filter.DepartmentID != "" {
		where += fmt.Sprintf(" AND department_id = $%d", argIdx)
		args = append(args, filter.DepartmentID)
		argIdx++
	}
	if filter.Stage != "" {
		where += fmt.Sprintf(" AND stage = $%d", argIdx)
		args = append(args, filter.Stage)
		argIdx++
	}
	if filter.PendingOnly {
		where += " AND stage NOT IN ('COMPLETED', 'REJECTED')"
	}

	q := `SELECT ` + certificateColumns + ` FROM inspection_certificates WHERE ` + where + ` ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.InspectionCertificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
	}
	return out, rows.Err()
}

// NextSeq 取当月已有单号的最大序号 + 1。
// 依赖 certificate_no 的 UNIQUE 约束兜底并发冲突
func (r *PostgresCertificatesRepo) NextSeq(ctx context.Context, prefix string) (int, error) {
	q := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(certificate_no FROM LENGTH($1) + 2) AS INTEGER)), 0)
		FROM inspection_certificates
		WHERE certificate_no LIKE $1 || '-%'
	`
	var maxSeq int
	if err := r.q.QueryRowContext(ctx, q, prefix).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("next certificate seq: %w", err)
	}
	return maxSeq + 1, nil
}

// ============================================
// 行项操作
// ============================================

const inspectionItemColumns = `
	inspection_item_id::text,
	certificate_id::text,
	item_id::text,
	tendered_qty,
	accepted_qty,
	rejected_qty,
	unit_price,
	remarks,
	stock_register_no,
	stock_register_page_no,
	stock_entry_date,
	central_register_no,
	central_register_page_no`

func scanInspectionItem(row interface{ Scan(...any) error }) (*domain.InspectionItem, error) {
	var it domain.InspectionItem
	if err := row.Scan(
		&it.InspectionItemID, &it.CertificateID, &it.ItemID,
		&it.TenderedQty, &it.AcceptedQty, &it.RejectedQty,
		&it.UnitPrice, &it.Remarks,
		&it.StockRegisterNo, &it.StockRegisterPageNo, &it.StockEntryDate,
		&it.CentralRegisterNo, &it.CentralRegisterPageNo,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PostgresCertificatesRepo) AddItem(ctx context.Context, item *domain.InspectionItem) error {
	q := `
		INSERT INTO inspection_items (
			inspection_item_id, certificate_id, item_id,
			tendered_qty, accepted_qty, rejected_qty, unit_price, remarks
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err := r.q.ExecContext(ctx, q,
		item.InspectionItemID, item.CertificateID, item.ItemID,
		item.TenderedQty, item.AcceptedQty, item.RejectedQty, item.UnitPrice, item.Remarks,
	)
	if err != nil {
		return fmt.Errorf("insert inspection item: %w", err)
	}
	return nil
}

func (r *PostgresCertificatesRepo) UpdateItem(ctx context.Context, item *domain.InspectionItem) error {
	q := `
		UPDATE inspection_items SET
			tendered_qty = $2, accepted_qty = $3, rejected_qty = $4,
			unit_price = $5, remarks = $6,
			stock_register_no = $7, stock_register_page_no = $8, stock_entry_date = $9,
			central_register_no = $10, central_register_page_no = $11
		WHERE inspection_item_id = $1
	`
	res, err := r.q.ExecContext(ctx, q,
		item.InspectionItemID,
		item.TenderedQty, item.AcceptedQty, item.RejectedQty,
		item.UnitPrice, item.Remarks,
		item.StockRegisterNo, item.StockRegisterPageNo, item.StockEntryDate,
		item.CentralRegisterNo, item.CentralRegisterPageNo,
	)
	if err != nil {
		return fmt.Errorf("update inspection item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "inspection_item", ID: item.InspectionItemID}
	}
	return nil
}

func (r *PostgresCertificatesRepo) DeleteItem(ctx context.Context, certificateID, itemID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM inspection_items WHERE certificate_id = $1 AND inspection_item_id = $2`,
		certificateID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete inspection item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "inspection_item", ID: itemID}
	}
	return nil
}

func (r *PostgresCertificatesRepo) GetItem(ctx context.Context, itemID string) (*domain.InspectionItem, error) {
	q := `SELECT ` + inspectionItemColumns + ` FROM inspection_items WHERE inspection_item_id = $1`
	it, err := scanInspectionItem(r.q.QueryRowContext(ctx, q, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Entity: "inspection_item", ID: itemID}
		}
		return nil, err
	}
	return it, nil
}

func (r *PostgresCertificatesRepo) ListItems(ctx context.Context, certificateID string) ([]*domain.InspectionItem, error) {
	q := `SELECT ` + inspectionItemColumns + ` FROM inspection_items WHERE certificate_id = $1 ORDER BY inspection_item_id`
	rows, err := r.q.QueryContext(ctx, q, certificateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.InspectionItem{}
	for rows.Next() {
		it, err := scanInspectionItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
