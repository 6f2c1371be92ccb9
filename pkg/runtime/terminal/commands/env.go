package commands

import (
	"context"
	"io"

	"github.com/de-tools/royalty-ledger/pkg/config"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/runtime/app"
	"github.com/de-tools/royalty-ledger/pkg/runtime/terminal/export"
	"github.com/de-tools/royalty-ledger/pkg/services/vault"
)

// Env is shared by every command; Config is filled in by the root command before any RunE
type Env struct {
	Config      *config.Config
	Reporter    *export.Reporter
	Output      io.Writer
	Input       io.Reader
	OpenApp     func(ctx context.Context, cfg *config.Config) (*app.App, error)
	OpenArchive func(ctx context.Context, cfg *config.Config) (*app.App, error)
	OpenVault   func(ctx context.Context, cfg *config.Config) (vault.Vault, error)
	ReadSecret  func() (string, error)
}

func (e *Env) open(ctx context.Context) (*app.App, error) {
	if err := e.Config.Validate(); err != nil {
		return nil, err
	}
	return e.OpenApp(ctx, e.Config)
}

func parseOptionalPeriod(s string) (domain.Period, error) {
	if s == "" {
		return domain.Period{}, nil
	}
	return domain.ParsePeriod(s)
}
