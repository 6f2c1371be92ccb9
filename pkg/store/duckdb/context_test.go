package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func insertRecord(ctx context.Context, db *sql.DB, period string) error {
	_, err := ConnFrom(ctx, db).ExecContext(ctx,
		`INSERT INTO archive_records (period, location, checksum, row_count, source, fetched_at)
		VALUES (?, 'loc', 'sum', 1, 'portal', now())`, period)
	return err
}

func countRecords(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM archive_records").Scan(&n))
	return n
}

func TestInTransaction_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := InTransaction(ctx, db, func(ctx context.Context) error {
		require.NotNil(t, GetTransaction(ctx))
		if err := insertRecord(ctx, db, "2024-01"); err != nil {
			return err
		}
		return insertRecord(ctx, db, "2024-02")
	})

	require.NoError(t, err)
	assert.Equal(t, 2, countRecords(t, db))
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	// Given a second statement that fails
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	// When
	err := InTransaction(ctx, db, func(ctx context.Context) error {
		if err := insertRecord(ctx, db, "2024-01"); err != nil {
			return err
		}
		return boom
	})

	// Then the first statement is undone
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countRecords(t, db))
}

func TestInTransaction_JoinsTransactionFromContext(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	outer, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	txCtx := WithTransaction(ctx, outer)

	err = InTransaction(txCtx, db, func(ctx context.Context) error {
		assert.Same(t, outer, GetTransaction(ctx))
		return insertRecord(ctx, db, "2024-01")
	})
	require.NoError(t, err)

	require.NoError(t, outer.Rollback())
	assert.Equal(t, 0, countRecords(t, db), "the owner of the transaction decides")
}

func TestConnFrom(t *testing.T) {
	db := newTestDB(t)
	assert.Same(t, db, ConnFrom(context.Background(), db))
}
