// Package catalog crawls the storefront catalog incrementally: product pages already
// stored are never fetched again, and each new product is saved before the next is
// requested, so an interrupted crawl resumes where it stopped.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/adapters"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/source"
	catalogstore "github.com/de-tools/royalty-ledger/pkg/store/duckdb/catalog"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultDelay    = 3 * time.Second
	DefaultMaxPages = 200
)

// Service is what commands and handlers use of the catalog
type Service interface {
	Crawl(ctx context.Context) (domain.CrawlSummary, error)
	Products(ctx context.Context) ([]domain.Product, error)
}

type Storefront interface {
	Listing(ctx context.Context, pageURL string) (source.CatalogPage, error)
	Product(ctx context.Context, productURL string) (domain.Product, error)
}

type Config struct {
	StartURL string
	// Delay is the minimum pause between two storefront requests
	Delay    time.Duration
	MaxPages int
}

type Crawler struct {
	storefront Storefront
	store      catalogstore.Store
	limiter    *rate.Limiter
	cfg        Config
	now        func() time.Time
}

func NewCrawler(storefront Storefront, store catalogstore.Store, cfg Config) (*Crawler, error) {
	if storefront == nil || store == nil {
		return nil, fmt.Errorf("catalog crawler needs a storefront and a store")
	}
	if cfg.StartURL == "" {
		cfg.StartURL = source.DefaultCatalogURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Delay < 0 {
		cfg.Delay = DefaultDelay
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Crawler{
		storefront: storefront,
		store:      store,
		limiter:    rate.NewLimiter(limit, 1),
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Crawl walks the listing from StartURL following next page links. A product that
// fails to load or save is logged and counted; a listing page that fails ends the
// crawl with its error. Cancellation returns the summary so far with Stopped set.
func (c *Crawler) Crawl(ctx context.Context) (domain.CrawlSummary, error) {
	logger := zerolog.Ctx(ctx).With().Str("component", "catalog").Logger()
	var summary domain.CrawlSummary

	known, err := c.store.Known(ctx)
	if err != nil {
		return summary, err
	}
	logger.Info().Int("known", len(known)).Str("start", c.cfg.StartURL).Msg("starting catalog crawl")

	visited := make(map[string]struct{})
	for page := c.cfg.StartURL; page != ""; {
		if _, ok := visited[page]; ok {
			logger.Warn().Str("page", page).Msg("listing links back to a visited page; stopping")
			break
		}
		if summary.Pages >= c.cfg.MaxPages {
			logger.Warn().Int("max_pages", c.cfg.MaxPages).Msg("page limit reached; stopping")
			break
		}
		visited[page] = struct{}{}

		if err := c.limiter.Wait(ctx); err != nil {
			summary.Stopped = true
			return summary, nil
		}
		listing, err := c.storefront.Listing(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				summary.Stopped = true
				return summary, nil
			}
			return summary, fmt.Errorf("catalog listing %s: %w", page, err)
		}
		summary.Pages++
		summary.Seen += len(listing.Products)

		fresh := make([]string, 0, len(listing.Products))
		for _, u := range listing.Products {
			if _, ok := known[u]; ok {
				summary.Known++
				continue
			}
			fresh = append(fresh, u)
		}
		logger.Info().Str("page", page).Int("products", len(listing.Products)).Int("new", len(fresh)).Msg("read listing page")

		for _, u := range fresh {
			if err := c.limiter.Wait(ctx); err != nil {
				summary.Stopped = true
				return summary, nil
			}
			p, err := c.save(ctx, u)
			if err != nil {
				if ctx.Err() != nil {
					summary.Stopped = true
					return summary, nil
				}
				summary.Failed++
				logger.Warn().Err(err).Str("url", u).Msg("skipping product")
				continue
			}
			known[u] = struct{}{}
			summary.Saved++
			logger.Debug().Str("url", u).Str("name", p.Name).Msg("saved product")
		}
		page = listing.Next
	}

	logger.Info().
		Int("pages", summary.Pages).
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Int("known", summary.Known).
		Msg("catalog crawl finished")
	return summary, nil
}

func (c *Crawler) save(ctx context.Context, productURL string) (domain.Product, error) {
	p, err := c.storefront.Product(ctx, productURL)
	if err != nil {
		return domain.Product{}, err
	}
	p.URL = productURL
	p.CrawledAt = c.now()
	if err := c.store.Put(ctx, adapters.MapDomainProductToStore(p)); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Products lists every stored product
func (c *Crawler) Products(ctx context.Context) ([]domain.Product, error) {
	rows, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		p, err := adapters.MapStoreProductToDomain(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
