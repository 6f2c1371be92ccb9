package commands

import (
	"context"

	"github.com/de-tools/royalty-ledger/pkg/runtime/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewCatalogCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Crawl and inspect the storefront product catalog",
	}

	var (
		startURL string
		maxPages int
	)
	crawl := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch catalog products not stored yet; safe to interrupt and rerun",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if startURL != "" {
				env.Config.Catalog.StartURL = startURL
			}
			if maxPages > 0 {
				env.Config.Catalog.MaxPages = maxPages
			}
			return withCatalog(cmd.Context(), env, func(a *app.App) error {
				summary, err := a.Catalog.Crawl(cmd.Context())
				if rerr := env.Reporter.Crawl(summary); rerr != nil {
					zerolog.Ctx(cmd.Context()).Warn().Err(rerr).Msg("failed to render crawl summary")
				}
				return err
			})
		},
	}
	crawl.Flags().StringVar(&startURL, "start-url", "", "First listing page (default from catalog.start_url)")
	crawl.Flags().IntVar(&maxPages, "max-pages", 0, "Stop after this many listing pages (default from catalog.max_pages)")
	cmd.AddCommand(crawl)

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd.Context(), env, func(a *app.App) error {
				products, err := a.Catalog.Products(cmd.Context())
				if err != nil {
					return err
				}
				return env.Reporter.Products(products)
			})
		},
	}
	cmd.AddCommand(list)

	return cmd
}

func withCatalog(ctx context.Context, env *Env, fn func(a *app.App) error) error {
	a, err := env.OpenArchive(ctx, env.Config)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close local database")
		}
	}()
	return fn(a)
}
