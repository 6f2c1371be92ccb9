package adapters

import (
	"database/sql"
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/api"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/models/store"
	"github.com/shopspring/decimal"
)

const (
	CreditAuthor = "author"
	CreditArtist = "artist"
)

func MapDomainProductToStore(p domain.Product) store.CatalogProduct {
	out := store.CatalogProduct{
		URL:       p.URL,
		Name:      p.Name,
		Metal:     nullString(p.Metal),
		Edition:   nullString(p.Edition),
		CrawledAt: p.CrawledAt,
	}
	if p.AddedOn != nil {
		out.AddedOn = sql.NullTime{Time: *p.AddedOn, Valid: true}
	}
	if p.Rating != nil {
		out.Rating = sql.NullFloat64{Float64: *p.Rating, Valid: true}
	}
	if p.RatingsCount != nil {
		out.RatingsCount = sql.NullInt64{Int64: int64(*p.RatingsCount), Valid: true}
	}
	if p.Pages != nil {
		out.Pages = sql.NullInt64{Int64: int64(*p.Pages), Valid: true}
	}
	if p.Price.Valid {
		out.Price = sql.NullString{String: p.Price.Decimal.StringFixed(2), Valid: true}
	}
	for _, name := range p.Authors {
		out.Credits = append(out.Credits, store.CatalogCredit{Role: CreditAuthor, Name: name})
	}
	for _, name := range p.Artists {
		out.Credits = append(out.Credits, store.CatalogCredit{Role: CreditArtist, Name: name})
	}
	return out
}

func MapStoreProductToDomain(p store.CatalogProduct) (domain.Product, error) {
	out := domain.Product{
		URL:       p.URL,
		Name:      p.Name,
		Metal:     p.Metal.String,
		Edition:   p.Edition.String,
		CrawledAt: p.CrawledAt,
	}
	if p.AddedOn.Valid {
		t := p.AddedOn.Time
		out.AddedOn = &t
	}
	if p.Rating.Valid {
		r := p.Rating.Float64
		out.Rating = &r
	}
	if p.RatingsCount.Valid {
		n := int(p.RatingsCount.Int64)
		out.RatingsCount = &n
	}
	if p.Pages.Valid {
		n := int(p.Pages.Int64)
		out.Pages = &n
	}
	if p.Price.Valid {
		d, err := decimal.NewFromString(p.Price.String)
		if err != nil {
			return domain.Product{}, fmt.Errorf("price of %s: %w", p.URL, err)
		}
		out.Price = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	for _, c := range p.Credits {
		switch c.Role {
		case CreditAuthor:
			out.Authors = append(out.Authors, c.Name)
		case CreditArtist:
			out.Artists = append(out.Artists, c.Name)
		}
	}
	return out, nil
}

func MapProductDomainToApi(p domain.Product) api.Product {
	out := api.Product{
		URL:          p.URL,
		Name:         p.Name,
		Metal:        p.Metal,
		AddedOn:      p.AddedOn,
		Rating:       p.Rating,
		RatingsCount: p.RatingsCount,
		Edition:      p.Edition,
		Authors:      p.Authors,
		Artists:      p.Artists,
		Pages:        p.Pages,
		CrawledAt:    p.CrawledAt,
	}
	if p.Price.Valid {
		price := p.Price.Decimal.StringFixed(2)
		out.Price = &price
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
