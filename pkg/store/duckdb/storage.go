package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const ArchiveTableSchema = `
	CREATE TABLE IF NOT EXISTS archive_records (
		period VARCHAR NOT NULL PRIMARY KEY,
		location VARCHAR NOT NULL,
		checksum VARCHAR NOT NULL,
		row_count INTEGER NOT NULL,
		source VARCHAR NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	);
`

const SyncRunsSequence = `CREATE SEQUENCE IF NOT EXISTS sync_runs_id_seq START 1;`

const SyncRunsTableSchema = `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id BIGINT PRIMARY KEY DEFAULT nextval('sync_runs_id_seq'),
		period VARCHAR NOT NULL,
		stage VARCHAR NOT NULL,
		archive_hit BOOLEAN NOT NULL,
		appended INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		error VARCHAR NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);
`

const CatalogProductsTableSchema = `
	CREATE TABLE IF NOT EXISTS catalog_products (
		url VARCHAR NOT NULL PRIMARY KEY,
		name VARCHAR NOT NULL,
		metal VARCHAR NULL,
		added_on TIMESTAMP NULL,
		rating DOUBLE NULL,
		ratings_count INTEGER NULL,
		edition VARCHAR NULL,
		pages INTEGER NULL,
		price DECIMAL(12, 2) NULL,
		crawled_at TIMESTAMP NOT NULL
	);
`

const CatalogCreditsTableSchema = `
	CREATE TABLE IF NOT EXISTS catalog_credits (
		url VARCHAR NOT NULL,
		role VARCHAR NOT NULL,
		position INTEGER NOT NULL,
		name VARCHAR NOT NULL
	);
`

var bootQueries = []string{
	ArchiveTableSchema,
	SyncRunsSequence,
	SyncRunsTableSchema,
	CatalogProductsTableSchema,
	CatalogCreditsTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=1", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", settings.DbPath, err)
	}

	db := sql.OpenDB(c)
	return db, nil
}
