package store

import (
	"database/sql"
	"time"
)

// CatalogProduct is a row of catalog_products with its catalog_credits
type CatalogProduct struct {
	URL          string
	Name         string
	Metal        sql.NullString
	AddedOn      sql.NullTime
	Rating       sql.NullFloat64
	RatingsCount sql.NullInt64
	Edition      sql.NullString
	Pages        sql.NullInt64
	Price        sql.NullString // decimal text, e.g. "9.99"
	CrawledAt    time.Time
	Credits      []CatalogCredit
}

type CatalogCredit struct {
	Role string // author or artist
	Name string
}
