package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one storefront catalog page. Fields the page does not show stay nil or empty.
type Product struct {
	URL          string
	Name         string
	Metal        string // best seller badge, e.g. "Adamantine"
	AddedOn      *time.Time
	Rating       *float64
	RatingsCount *int
	Edition      string
	Authors      []string
	Artists      []string
	Pages        *int
	Price        decimal.NullDecimal
	CrawledAt    time.Time
}

// CrawlSummary reports one catalog crawl
type CrawlSummary struct {
	Pages   int // listing pages visited
	Seen    int // product links found
	Known   int // links skipped because they were crawled before
	Saved   int
	Failed  int
	Stopped bool // cancelled before the listing was exhausted
}
