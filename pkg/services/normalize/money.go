package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Places is the fixed precision of every amount written to the ledger
const Places = 2

type currencySymbol struct {
	symbol string
	code   string
}

// checked in order; the first symbol present in a cell decides its currency
var currencySymbols = []currencySymbol{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// CurrencySymbol returns the display symbol of an ISO code, or "" when it has none
func CurrencySymbol(code string) string {
	for _, c := range currencySymbols {
		if c.code == code {
			return c.symbol
		}
	}
	return ""
}

// ParseAmount parses a money cell such as "$1,234.56", "(3.00)", "12.50 EUR" or "".
// An empty cell is zero. The result is rounded half away from zero to Places.
func ParseAmount(cell, defaultCurrency string) (decimal.Decimal, string, error) {
	d, currency, err := ParseExactAmount(cell, defaultCurrency)
	if err != nil {
		return decimal.Zero, "", err
	}
	return d.Round(Places), currency, nil
}

// ParseExactAmount is ParseAmount without rounding, so a caller can inspect the sign
// of amounts that round to zero.
func ParseExactAmount(cell, defaultCurrency string) (decimal.Decimal, string, error) {
	s := strings.TrimSpace(cell)
	currency := defaultCurrency

	found := false
	for _, c := range currencySymbols {
		if !strings.Contains(s, c.symbol) {
			continue
		}
		if !found {
			currency = c.code
			found = true
		}
		s = strings.ReplaceAll(s, c.symbol, "")
	}
	if code, rest, ok := splitISOCode(s); ok {
		currency = code
		s = rest
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, currency, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("parse amount %q: %w", cell, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, currency, nil
}

// ParseRate parses a percentage cell such as "50%" or "50"
func ParseRate(cell string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cell), "%"))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", cell, err)
	}
	return d.Round(Places), nil
}

// ParseUnits parses an integer count, tolerating thousands separators
func ParseUnits(cell string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("parse units %q: not an integer", cell)
	}
	return d.IntPart(), nil
}

// splitISOCode strips a leading or trailing three letter currency code
func splitISOCode(s string) (string, string, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return "", s, false
	}
	if isISOCode(fields[0]) {
		return strings.ToUpper(fields[0]), fields[1], true
	}
	if isISOCode(fields[1]) {
		return strings.ToUpper(fields[1]), fields[0], true
	}
	return "", s, false
}

func isISOCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
