package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

// DefaultCatalogURL is the first listing page of the D&D Classics catalog
const DefaultCatalogURL = "https://www.dmsguild.com/browse.php?filters=45471_0_0_0_0_0_0_0&src=fid45471"

// Storefront reads the public catalog pages. It needs no login.
type Storefront struct {
	client *http.Client
}

func NewStorefront(timeout time.Duration) *Storefront {
	if timeout <= 0 {
		timeout = DefaultPortalTimeout
	}
	return &Storefront{client: &http.Client{Timeout: timeout}}
}

// Listing returns the product links and the next page of one listing page
func (s *Storefront) Listing(ctx context.Context, pageURL string) (CatalogPage, error) {
	base, body, err := s.get(ctx, pageURL)
	if err != nil {
		return CatalogPage{}, err
	}
	return ParseListing(strings.NewReader(body), base)
}

// Product scrapes one product page
func (s *Storefront) Product(ctx context.Context, productURL string) (domain.Product, error) {
	_, body, err := s.get(ctx, productURL)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := ParseProduct(strings.NewReader(body))
	if err != nil {
		return domain.Product{}, err
	}
	p.URL = productURL
	return p, nil
}

func (s *Storefront) get(ctx context.Context, rawURL string) (*url.URL, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, "", domain.NewInvalidInputError(fmt.Sprintf("invalid catalog url %q", rawURL), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build catalog request: %w", err)
	}
	body, err := do(s.client, req)
	return u, body, err
}
