// Package app assembles the sync pipeline from configuration
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/royalty-ledger/pkg/config"
	"github.com/de-tools/royalty-ledger/pkg/services/catalog"
	"github.com/de-tools/royalty-ledger/pkg/services/normalize"
	"github.com/de-tools/royalty-ledger/pkg/services/source"
	"github.com/de-tools/royalty-ledger/pkg/services/vault"
	"github.com/de-tools/royalty-ledger/pkg/services/workflow"
	"github.com/de-tools/royalty-ledger/pkg/store/archive"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
	archiveindex "github.com/de-tools/royalty-ledger/pkg/store/duckdb/archive"
	catalogstore "github.com/de-tools/royalty-ledger/pkg/store/duckdb/catalog"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb/journal"
	"github.com/de-tools/royalty-ledger/pkg/store/ledger"
	"github.com/rs/zerolog"
)

type App struct {
	Archive  archive.Archive
	Journal  journal.Store
	Workflow workflow.Controller
	Catalog  catalog.Service

	db *sql.DB
}

// New opens the local database and wires archive, source, ledger and workflow
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := OpenArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}

	src, err := NewSource(ctx, cfg)
	if err != nil {
		return nil, a.closeWith(err)
	}
	store, err := NewLedger(ctx, cfg)
	if err != nil {
		return nil, a.closeWith(err)
	}

	runner, err := workflow.NewRunner(workflow.Dependencies{
		Archive: a.Archive,
		Source:  src,
		Normalizer: normalize.New(normalize.Options{
			DefaultCurrency: cfg.Normalize.DefaultCurrency,
			SkipZeroRows:    cfg.Normalize.SkipZeroRows,
			AllowEmpty:      cfg.Normalize.AllowEmpty,
		}),
		Ledger:  store,
		Journal: a.Journal,
		Retry:   workflow.DefaultRetryPolicy(cfg.Source.MaxRetries, cfg.Source.MinBackoff, cfg.Source.MaxBackoff),
	})
	if err != nil {
		return nil, a.closeWith(err)
	}
	a.Workflow = workflow.NewController(runner, workflow.DefaultPrefetchLimit)
	return a, nil
}

// OpenArchive opens only the local database: the archive, the run journal and the
// product catalog, for commands that neither fetch reports nor touch the ledger
func OpenArchive(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := zerolog.Ctx(ctx)

	if err := os.MkdirAll(filepath.Dir(cfg.Archive.DbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Archive.DbPath})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	a := &App{db: db}

	index, err := archiveindex.NewIndex(db)
	if err != nil {
		return nil, a.closeWith(fmt.Errorf("failed to create archive index: %w", err))
	}
	a.Journal, err = journal.NewStore(db)
	if err != nil {
		return nil, a.closeWith(fmt.Errorf("failed to create run journal: %w", err))
	}

	var mirror archive.Mirror
	if cfg.Archive.S3.Bucket != "" {
		mirror, err = archive.NewS3Mirror(ctx, archive.S3Config{
			Bucket:  cfg.Archive.S3.Bucket,
			Prefix:  cfg.Archive.S3.Prefix,
			Region:  cfg.Archive.S3.Region,
			Profile: cfg.Archive.S3.Profile,
		})
		if err != nil {
			return nil, a.closeWith(fmt.Errorf("failed to create archive mirror: %w", err))
		}
		logger.Debug().Str("bucket", cfg.Archive.S3.Bucket).Msg("archive mirror enabled")
	}

	a.Archive, err = archive.New(archive.Options{
		Dir:       cfg.Archive.Dir,
		LegacyDir: cfg.Archive.LegacyDir,
		Index:     index,
		Mirror:    mirror,
	})
	if err != nil {
		return nil, a.closeWith(err)
	}

	products, err := catalogstore.NewStore(db)
	if err != nil {
		return nil, a.closeWith(fmt.Errorf("failed to create catalog store: %w", err))
	}
	a.Catalog, err = catalog.NewCrawler(source.NewStorefront(cfg.Catalog.Timeout), products, catalog.Config{
		StartURL: cfg.Catalog.StartURL,
		Delay:    cfg.Catalog.Delay,
		MaxPages: cfg.Catalog.MaxPages,
	})
	if err != nil {
		return nil, a.closeWith(err)
	}
	return a, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) closeWith(err error) error {
	_ = a.Close()
	return err
}

func NewSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case "filedrop":
		return source.NewFileDrop(cfg.Source.DropDir), nil
	default:
		v := vault.NewLazyVault(func(ctx context.Context) (vault.Vault, error) {
			return NewVault(ctx, cfg)
		})
		return source.NewPortal(source.PortalConfig{BaseURL: cfg.Source.BaseURL, Timeout: cfg.Source.Timeout}, v)
	}
}

func NewVault(ctx context.Context, cfg *config.Config) (vault.Vault, error) {
	switch cfg.Vault.Kind {
	case vault.KindSecretsManager:
		return vault.NewSecretsManagerVault(ctx, vault.SecretsManagerConfig{
			SecretID: cfg.Vault.SecretID,
			Region:   cfg.Vault.Region,
			Profile:  cfg.Vault.Profile,
		})
	default:
		return vault.NewFileVault(cfg.Vault.Path, cfg.Vault.Passphrase)
	}
}

func NewLedger(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Kind {
	case ledger.KindMemory:
		zerolog.Ctx(ctx).Warn().Msg("using an in-memory ledger; nothing will be persisted")
		return ledger.NewMemoryStore(), nil
	default:
		return ledger.NewSheetsStore(ctx, ledger.SheetsConfig{
			SpreadsheetID:   cfg.Ledger.SpreadsheetID,
			Sheet:           cfg.Ledger.Sheet,
			CredentialsFile: cfg.Ledger.CredentialsFile,
			DefaultCurrency: cfg.Normalize.DefaultCurrency,
		})
	}
}
