package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
	"github.com/rs/zerolog"
)

// Store records the outcome of every sync run
type Store interface {
	Record(ctx context.Context, run store.SyncRun) (int64, error)
	Latest(ctx context.Context, limit int) ([]store.SyncRun, error)
}

type journalStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &journalStore{db: db}, nil
}

func (s *journalStore) Record(ctx context.Context, run store.SyncRun) (int64, error) {
	query := `
		INSERT INTO sync_runs (
			period, stage, archive_hit, appended, updated, failed, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := duckdb.ConnFrom(ctx, s.db).QueryRowContext(ctx, query,
		run.Period,
		run.Stage,
		run.ArchiveHit,
		run.Appended,
		run.Updated,
		run.Failed,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record sync run: %w", err)
	}
	return id, nil
}

func (s *journalStore) Latest(ctx context.Context, limit int) ([]store.SyncRun, error) {
	logger := zerolog.Ctx(ctx)
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, period, stage, archive_hit, appended, updated, failed, error, started_at, finished_at
		FROM sync_runs
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to close sync runs rows")
		}
	}(rows)

	runs := make([]store.SyncRun, 0)
	for rows.Next() {
		var (
			run    store.SyncRun
			errMsg sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &run.Period, &run.Stage, &run.ArchiveHit,
			&run.Appended, &run.Updated, &run.Failed, &errMsg,
			&run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			msg := errMsg.String
			run.Error = &msg
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
