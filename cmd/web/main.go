package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/de-tools/royalty-ledger/pkg/config"
	"github.com/de-tools/royalty-ledger/pkg/runtime/app"
	"github.com/de-tools/royalty-ledger/pkg/server"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rootCmd = &cobra.Command{
		Use:          "web",
		Short:        "Serve the royalty ledger status API",
		SilenceUsage: true,
		RunE:         runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultPath,
		"Path to the royalty-ledger config file")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Log, os.Stdout)
	ctx := logger.WithContext(cmd.Context())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	logger.Info().
		Str("archive", cfg.Archive.Dir).
		Str("ledger", cfg.Ledger.Kind).
		Msg("configuration loaded")

	web := server.NewWebAPI(server.Config{
		Addr: cfg.Server.Addr(),
		Dependencies: server.Dependencies{
			Archive: a.Archive,
			Planner: a.Workflow,
			Journal: a.Journal,
			Catalog: a.Catalog,
			Logger:  logger,
		},
	})
	return web.Start(ctx)
}
