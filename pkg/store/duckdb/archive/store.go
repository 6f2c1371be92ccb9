package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
)

// Index keeps one archive record per period
type Index interface {
	Get(ctx context.Context, period string) (*store.ArchiveRecord, error)
	Put(ctx context.Context, record store.ArchiveRecord) error
	List(ctx context.Context) ([]store.ArchiveRecord, error)
}

type indexStore struct {
	db *sql.DB
}

func NewIndex(db *sql.DB) (Index, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &indexStore{db: db}, nil
}

// Get returns nil without error when the period has no record
func (s *indexStore) Get(ctx context.Context, period string) (*store.ArchiveRecord, error) {
	query := `
		SELECT period, location, checksum, row_count, source, fetched_at
		FROM archive_records
		WHERE period = ?
	`
	var rec store.ArchiveRecord
	err := duckdb.ConnFrom(ctx, s.db).QueryRowContext(ctx, query, period).Scan(
		&rec.Period, &rec.Location, &rec.Checksum, &rec.Rows, &rec.Source, &rec.FetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive record %s: %w", period, err)
	}
	return &rec, nil
}

func (s *indexStore) Put(ctx context.Context, record store.ArchiveRecord) error {
	query := `
		INSERT OR REPLACE INTO archive_records (
			period, location, checksum, row_count, source, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	args := []interface{}{
		record.Period,
		record.Location,
		record.Checksum,
		record.Rows,
		record.Source,
		record.FetchedAt,
	}

	if _, err := duckdb.ConnFrom(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put archive record %s: %w", record.Period, err)
	}
	return nil
}

func (s *indexStore) List(ctx context.Context) ([]store.ArchiveRecord, error) {
	query := `
		SELECT period, location, checksum, row_count, source, fetched_at
		FROM archive_records
		ORDER BY period
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list archive records: %w", err)
	}
	defer rows.Close()

	records := make([]store.ArchiveRecord, 0)
	for rows.Next() {
		var rec store.ArchiveRecord
		if err := rows.Scan(&rec.Period, &rec.Location, &rec.Checksum, &rec.Rows, &rec.Source, &rec.FetchedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
