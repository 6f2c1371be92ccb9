package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed precision amount tagged with an ISO currency code
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}
}

func (m Money) Equal(o Money) bool {
	return m.Currency == o.Currency && m.Amount.Equal(o.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
}

// NormalizedRow is one canonical royalty line for a period
type NormalizedRow struct {
	Period      Period
	Publisher   string
	Title       string
	SKU         string
	UnitsSold   int64
	Net         Money
	RoyaltyRate decimal.Decimal // percent
	Royalty     Money
	Hash        string // fingerprint of period + title + SKU
}

// SameValues reports whether two rows would render identically in the ledger
func (r NormalizedRow) SameValues(o NormalizedRow) bool {
	return r.Publisher == o.Publisher &&
		r.Title == o.Title &&
		r.SKU == o.SKU &&
		r.UnitsSold == o.UnitsSold &&
		r.Net.Equal(o.Net) &&
		r.RoyaltyRate.Equal(o.RoyaltyRate) &&
		r.Royalty.Equal(o.Royalty)
}

func (r NormalizedRow) IsZero() bool {
	return r.UnitsSold == 0 && r.Royalty.Amount.IsZero()
}

// LedgerEntry is a row already present in the remote ledger
type LedgerEntry struct {
	NormalizedRow
	Position int // 1-based row number in the sheet
}
