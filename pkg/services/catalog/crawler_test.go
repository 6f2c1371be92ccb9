package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/source"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
	catalogstore "github.com/de-tools/royalty-ledger/pkg/store/duckdb/catalog"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorefront serves listing pages and products from maps and records every request
type fakeStorefront struct {
	mu        sync.Mutex
	pages     map[string]source.CatalogPage
	products  map[string]domain.Product
	failing   map[string]error
	requested []string
	onProduct func(url string)
}

func (f *fakeStorefront) Listing(_ context.Context, pageURL string) (source.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, pageURL)
	if err, ok := f.failing[pageURL]; ok {
		return source.CatalogPage{}, err
	}
	return f.pages[pageURL], nil
}

func (f *fakeStorefront) Product(_ context.Context, productURL string) (domain.Product, error) {
	f.mu.Lock()
	f.requested = append(f.requested, productURL)
	hook := f.onProduct
	f.mu.Unlock()
	if hook != nil {
		hook(productURL)
	}
	if err, ok := f.failing[productURL]; ok {
		return domain.Product{}, err
	}
	return f.products[productURL], nil
}

type fixture struct {
	storefront *fakeStorefront
	store      catalogstore.Store
	crawler    *Crawler
	ctx        context.Context
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	store, err := catalogstore.NewStore(db)
	require.NoError(t, err)

	pages := 12
	sf := &fakeStorefront{
		pages: map[string]source.CatalogPage{
			"page1": {Products: []string{"p/a", "p/b"}, Next: "page2"},
			"page2": {Products: []string{"p/c"}},
		},
		products: map[string]domain.Product{
			"p/a": {Name: "Abyss", Authors: []string{"Gary Example"}, Pages: &pages, Price: decimal.NewNullDecimal(decimal.RequireFromString("4.99"))},
			"p/b": {Name: "Bastion"},
			"p/c": {Name: "Citadel", Artists: []string{"Erol Placeholder"}},
		},
		failing: map[string]error{},
	}
	c, err := NewCrawler(sf, store, Config{StartURL: "page1"})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC) }

	return &fixture{
		storefront: sf,
		store:      store,
		crawler:    c,
		ctx:        zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background()),
	}
}

func TestNewCrawler(t *testing.T) {
	_, err := NewCrawler(nil, nil, Config{})
	assert.Error(t, err)
}

func TestCrawl_SavesEveryProductAcrossPages(t *testing.T) {
	// Given
	f := setupFixture(t)

	// When
	summary, err := f.crawler.Crawl(f.ctx)

	// Then
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlSummary{Pages: 2, Seen: 3, Saved: 3}, summary)

	products, err := f.crawler.Products(f.ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "p/a", products[0].URL)
	assert.Equal(t, []string{"Gary Example"}, products[0].Authors)
	assert.Equal(t, "4.99", products[0].Price.Decimal.StringFixed(2))
	assert.Equal(t, 12, *products[0].Pages)
	assert.Equal(t, []string{"Erol Placeholder"}, products[2].Artists)
	assert.Equal(t, 2024, products[2].CrawledAt.Year())
}

func TestCrawl_ResumesWithoutRefetchingKnownProducts(t *testing.T) {
	// Given a crawl that already saved two products
	f := setupFixture(t)
	f.storefront.failing["p/c"] = domain.NewSourceUnavailableError("503", nil)
	first, err := f.crawler.Crawl(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Saved)
	assert.Equal(t, 1, first.Failed)

	// When the next crawl runs with the storefront healthy
	delete(f.storefront.failing, "p/c")
	f.storefront.requested = nil
	second, err := f.crawler.Crawl(f.ctx)

	// Then only the missing product is fetched
	require.NoError(t, err)
	assert.Equal(t, 1, second.Saved)
	assert.Equal(t, 2, second.Known)
	assert.Equal(t, []string{"page1", "page2", "p/c"}, f.storefront.requested)
}

func TestCrawl_ListingFailureEndsCrawl(t *testing.T) {
	f := setupFixture(t)
	f.storefront.failing["page2"] = domain.NewSourceUnavailableError("502", nil)

	summary, err := f.crawler.Crawl(f.ctx)

	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, 2, summary.Saved, "products of earlier pages stay saved")
}

func TestCrawl_StopsOnPaginationLoop(t *testing.T) {
	f := setupFixture(t)
	f.storefront.pages["page2"] = source.CatalogPage{Products: []string{"p/c"}, Next: "page1"}

	summary, err := f.crawler.Crawl(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pages)
}

func TestCrawl_MaxPages(t *testing.T) {
	f := setupFixture(t)
	f.crawler.cfg.MaxPages = 1

	summary, err := f.crawler.Crawl(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 2, summary.Saved)
}

func TestCrawl_CancelKeepsProgress(t *testing.T) {
	// Given a crawl cancelled while the second product is being fetched
	f := setupFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()
	f.storefront.onProduct = func(url string) {
		if url == "p/b" {
			cancel()
		}
	}
	f.storefront.failing["p/b"] = context.Canceled

	// When
	summary, err := f.crawler.Crawl(ctx)

	// Then
	require.NoError(t, err)
	assert.True(t, summary.Stopped)
	assert.Equal(t, 1, summary.Saved)
	known, err := f.store.Known(context.Background())
	require.NoError(t, err)
	assert.Contains(t, known, "p/a")
}

func TestCrawl_StoreFailureIsReported(t *testing.T) {
	f := setupFixture(t)
	f.crawler.store = failingStore{Store: f.store}

	_, err := f.crawler.Crawl(f.ctx)

	assert.True(t, errors.Is(err, errKnown))
}

var errKnown = errors.New("catalog unavailable")

type failingStore struct {
	catalogstore.Store
}

func (failingStore) Known(context.Context) (map[string]struct{}, error) {
	return nil, errKnown
}
