package journal

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Record(t *testing.T) {
	// Given
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)
	msg := "WRITE: 1 ledger write failed"

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sync_runs`)).
		WithArgs("2024-03", "FAILED", false, 1, 0, 1, &msg, started, finished).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	s, err := NewStore(db)
	require.NoError(t, err)

	// When
	id, err := s.Record(context.Background(), store.SyncRun{
		Period: "2024-03", Stage: "FAILED", Appended: 1, Failed: 1, Error: &msg,
		StartedAt: started, FinishedAt: finished,
	})

	// Then
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sync_runs`)).
		WillReturnError(errors.New("disk full"))

	s, err := NewStore(db)
	require.NoError(t, err)

	_, err = s.Record(context.Background(), store.SyncRun{Period: "2024-03", Stage: "DONE"})
	assert.ErrorContains(t, err, "disk full")
}

func TestStore_Latest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().Truncate(time.Second)
	cols := []string{"id", "period", "stage", "archive_hit", "appended", "updated", "failed", "error", "started_at", "finished_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sync_runs`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(2), "2024-03", "DONE", true, 0, 0, 0, nil, now, now).
			AddRow(int64(1), "2024-03", "FAILED", false, 2, 0, 1, "boom", now, now))

	s, err := NewStore(db)
	require.NoError(t, err)

	runs, err := s.Latest(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Nil(t, runs[0].Error)
	require.NotNil(t, runs[1].Error)
	assert.Equal(t, "boom", *runs[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AgainstDuckDB(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := s.Record(ctx, store.SyncRun{Period: "2024-02", Stage: "DONE", StartedAt: time.Now(), FinishedAt: time.Now()})
	require.NoError(t, err)
	second, err := s.Record(ctx, store.SyncRun{Period: "2024-03", Stage: "DONE", Appended: 3, StartedAt: time.Now(), FinishedAt: time.Now()})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	runs, err := s.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "2024-03", runs[0].Period)
	assert.Equal(t, 3, runs[0].Appended)
}
