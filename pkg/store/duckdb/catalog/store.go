package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb"
)

// Store keeps crawled catalog products keyed by URL
type Store interface {
	// Known returns the URLs already crawled
	Known(ctx context.Context) (map[string]struct{}, error)
	// Put saves a product and replaces its credits atomically
	Put(ctx context.Context, product store.CatalogProduct) error
	List(ctx context.Context) ([]store.CatalogProduct, error)
}

type catalogStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &catalogStore{db: db}, nil
}

func (s *catalogStore) Known(ctx context.Context) (map[string]struct{}, error) {
	rows, err := duckdb.ConnFrom(ctx, s.db).QueryContext(ctx, `SELECT url FROM catalog_products`)
	if err != nil {
		return nil, fmt.Errorf("list catalog urls: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		known[url] = struct{}{}
	}
	return known, rows.Err()
}

func (s *catalogStore) Put(ctx context.Context, p store.CatalogProduct) error {
	productQuery := `
		INSERT OR REPLACE INTO catalog_products (
			url, name, metal, added_on, rating, ratings_count, edition, pages, price, crawled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CAST(? AS DECIMAL(12, 2)), ?)`
	creditQuery := `INSERT INTO catalog_credits (url, role, position, name) VALUES (?, ?, ?, ?)`

	err := duckdb.InTransaction(ctx, s.db, func(ctx context.Context) error {
		conn := duckdb.ConnFrom(ctx, s.db)
		if _, err := conn.ExecContext(ctx, productQuery,
			p.URL,
			p.Name,
			value(p.Metal),
			value(p.AddedOn),
			value(p.Rating),
			value(p.RatingsCount),
			value(p.Edition),
			value(p.Pages),
			value(p.Price),
			p.CrawledAt,
		); err != nil {
			return err
		}

		if _, err := conn.ExecContext(ctx, `DELETE FROM catalog_credits WHERE url = ?`, p.URL); err != nil {
			return err
		}
		for i, c := range p.Credits {
			if _, err := conn.ExecContext(ctx, creditQuery, p.URL, c.Role, i, c.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put catalog product %s: %w", p.URL, err)
	}
	return nil
}

func (s *catalogStore) List(ctx context.Context) ([]store.CatalogProduct, error) {
	conn := duckdb.ConnFrom(ctx, s.db)
	query := `
		SELECT url, name, metal, added_on, rating, ratings_count, edition, pages,
			CAST(price AS VARCHAR), crawled_at
		FROM catalog_products
		ORDER BY url
	`
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list catalog products: %w", err)
	}
	defer rows.Close()

	products := make([]store.CatalogProduct, 0)
	index := make(map[string]int)
	for rows.Next() {
		var p store.CatalogProduct
		if err := rows.Scan(&p.URL, &p.Name, &p.Metal, &p.AddedOn, &p.Rating, &p.RatingsCount,
			&p.Edition, &p.Pages, &p.Price, &p.CrawledAt); err != nil {
			return nil, err
		}
		index[p.URL] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	credits, err := conn.QueryContext(ctx, `SELECT url, role, name FROM catalog_credits ORDER BY url, position`)
	if err != nil {
		return nil, fmt.Errorf("list catalog credits: %w", err)
	}
	defer credits.Close()

	for credits.Next() {
		var url string
		var c store.CatalogCredit
		if err := credits.Scan(&url, &c.Role, &c.Name); err != nil {
			return nil, err
		}
		if i, ok := index[url]; ok {
			products[i].Credits = append(products[i].Credits, c)
		}
	}
	return products, credits.Err()
}

// value unwraps a sql.Null* argument to nil or its plain value
func value(v driver.Valuer) interface{} {
	out, _ := v.Value()
	return out
}
