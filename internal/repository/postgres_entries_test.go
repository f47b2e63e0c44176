package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetledger/internal/domain"
)

func setupMockEntriesRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresEntriesRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresEntriesRepo(db)
}

func entryRowColumns() []string {
	return []string{
		"entry_id", "entry_number", "entry_type", "status", "entry_date",
		"from_location_id", "to_location_id", "item_id", "quantity",
		"reference_entry_id", "certificate_id",
		"is_temporary", "expected_return_date", "actual_return_date", "temporary_recipient",
		"requires_acknowledgment", "is_cross_hierarchy", "is_upward_transfer",
		"purpose", "remarks", "created_by",
		"acknowledged_by", "acknowledged_at", "created_at", "updated_at",
	}
}

func TestEntriesNextSeq(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(CAST\(SUBSTRING`).
		WithArgs("ISSUE-20260831").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7))

	seq, err := repo.NextSeq(ctx, domain.EntryIssue, "20260831")

	require.NoError(t, err)
	assert.Equal(t, 8, seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntriesNextSeq_EmptyDay(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()

	// 当天没有单号时 COALESCE 回 0，首号是 1
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(CAST\(SUBSTRING`).
		WithArgs("RETURN-20260831").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	seq, err := repo.NextSeq(ctx, domain.EntryReturn, "20260831")

	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIfPending_Wins(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	entryID := uuid.New().String()
	at := time.Now()

	mock.ExpectExec(`UPDATE stock_entries`).
		WithArgs(entryID, "keeper-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.CompleteIfPending(ctx, entryID, "keeper-1", at)

	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIfPending_LosesRace(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	entryID := uuid.New().String()
	at := time.Now()

	// 状态已不是 PENDING_ACK：0 行受影响，返回 false 而不是报错
	mock.ExpectExec(`UPDATE stock_entries`).
		WithArgs(entryID, "keeper-2", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.CompleteIfPending(ctx, entryID, "keeper-2", at)

	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelIfPending(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	entryID := uuid.New().String()
	at := time.Now()

	mock.ExpectExec(`UPDATE stock_entries`).
		WithArgs(entryID, "keeper-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.CancelIfPending(ctx, entryID, "keeper-1", at)

	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEntry_LinksInstances(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now()
	entry := &domain.StockEntry{
		EntryID:                uuid.New().String(),
		EntryNumber:            "ISSUE-20260831-0001",
		EntryType:              domain.EntryIssue,
		Status:                 domain.EntryPendingAck,
		EntryDate:              now,
		FromLocationID:         sql.NullString{String: uuid.New().String(), Valid: true},
		ToLocationID:           uuid.New().String(),
		ItemID:                 uuid.New().String(),
		Quantity:               2,
		InstanceIDs:            []string{uuid.New().String(), uuid.New().String()},
		RequiresAcknowledgment: true,
		IsUpwardTransfer:       true,
		CreatedBy:              "keeper-1",
		CreatedAt:              now,
	}

	mock.ExpectExec(`INSERT INTO stock_entries`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO stock_entry_instances`).
		WithArgs(entry.EntryID, entry.InstanceIDs[0]).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO stock_entry_instances`).
		WithArgs(entry.EntryID, entry.InstanceIDs[1]).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(ctx, entry)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntry_LoadsInstances(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	entryID := uuid.New().String()
	instanceID := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows(entryRowColumns()).AddRow(
		entryID, "ISSUE-20260831-0001", "ISSUE", "PENDING_ACK", now,
		uuid.New().String(), uuid.New().String(), uuid.New().String(), 1,
		nil, nil,
		false, nil, nil, nil,
		true, true, true,
		nil, nil, "keeper-1",
		nil, nil, now, nil,
	)
	mock.ExpectQuery(`SELECT(.|\n)+FROM stock_entries WHERE entry_id`).
		WithArgs(entryID).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT instance_id`).
		WithArgs(entryID).
		WillReturnRows(sqlmock.NewRows([]string{"instance_id"}).AddRow(instanceID))

	entry, err := repo.Get(ctx, entryID)

	require.NoError(t, err)
	assert.Equal(t, domain.EntryIssue, entry.EntryType)
	assert.Equal(t, domain.EntryPendingAck, entry.Status)
	assert.True(t, entry.IsUpwardTransfer)
	assert.Equal(t, []string{instanceID}, entry.InstanceIDs)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntry_NotFound(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	entryID := uuid.New().String()

	mock.ExpectQuery(`SELECT(.|\n)+FROM stock_entries WHERE entry_id`).
		WithArgs(entryID).
		WillReturnError(sql.ErrNoRows)

	entry, err := repo.Get(ctx, entryID)

	assert.Nil(t, entry)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntries_PendingFilter(t *testing.T) {
	db, mock, repo := setupMockEntriesRepo(t)
	defer db.Close()

	ctx := context.Background()
	toLocationID := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows(entryRowColumns()).AddRow(
		uuid.New().String(), "ISSUE-20260831-0002", "ISSUE", "PENDING_ACK", now,
		uuid.New().String(), toLocationID, uuid.New().String(), 3,
		nil, nil,
		false, nil, nil, nil,
		true, false, false,
		nil, nil, "keeper-1",
		nil, nil, now, nil,
	)
	mock.ExpectQuery(`FROM stock_entries WHERE 1=1 AND to_location_id = \$1 AND status = 'PENDING_ACK'`).
		WithArgs(toLocationID).
		WillReturnRows(rows)

	entries, err := repo.List(ctx, EntryFilter{ToLocationID: toLocationID, PendingAckOnly: true})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryPendingAck, entries[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}
