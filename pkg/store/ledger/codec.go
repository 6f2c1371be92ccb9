package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/normalize"
	"github.com/shopspring/decimal"
)

// layout maps header names to cell indexes of one sheet. Columns this tool does not
// know keep their place and are never written.
type layout struct {
	index map[string]int
	width int
}

func defaultLayout() layout {
	l := layout{index: make(map[string]int, len(Header)), width: len(Header)}
	for i, h := range Header {
		l.index[h] = i
	}
	return l
}

// parseLayout reads a header row. When a name repeats, the leftmost column wins.
func parseLayout(header []interface{}) (layout, error) {
	l := layout{index: make(map[string]int, len(header)), width: len(header)}
	for i, h := range header {
		name := strings.TrimSpace(cellString(h))
		if name == "" {
			continue
		}
		if _, seen := l.index[name]; !seen {
			l.index[name] = i
		}
	}
	for _, required := range []string{ColMonth, ColYear, ColTitle} {
		if !l.has(required) {
			return layout{}, domain.NewSchemaError(fmt.Sprintf("ledger header has no %s column", required), nil)
		}
	}
	return l, nil
}

func (l layout) has(col string) bool {
	_, ok := l.index[col]
	return ok
}

// missing lists the known columns absent from the sheet, in Header order
func (l layout) missing() []string {
	var out []string
	for _, h := range Header {
		if !l.has(h) {
			out = append(out, h)
		}
	}
	return out
}

// extend places cols after the last header cell
func (l layout) extend(cols []string) layout {
	index := make(map[string]int, len(l.index)+len(cols))
	for k, v := range l.index {
		index[k] = v
	}
	for i, c := range cols {
		index[c] = l.width + i
	}
	return layout{index: index, width: l.width + len(cols)}
}

func (l layout) get(cells []interface{}, col string) string {
	i, ok := l.index[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cellString(cells[i]))
}

// encode renders a row as RAW sheet values placed at the sheet's own column indexes.
// Numbers stay numbers and text stays text. Cells of unknown columns are nil, which
// the values API skips, so hand-maintained columns survive updates.
func (l layout) encode(r domain.NormalizedRow) []interface{} {
	values := map[string]interface{}{
		ColMonth:       r.Period.MonthName(),
		ColYear:        r.Period.Year,
		ColPublisher:   r.Publisher,
		ColTitle:       r.Title,
		ColSKU:         r.SKU,
		ColUnitsSold:   r.UnitsSold,
		ColNet:         r.Net.Amount.InexactFloat64(),
		ColRoyaltyRate: r.RoyaltyRate.InexactFloat64(),
		ColRoyalties:   r.Royalty.Amount.InexactFloat64(),
		ColCurrency:    r.Royalty.Currency,
		ColRowHash:     r.Hash,
	}
	out := make([]interface{}, l.width)
	for col, v := range values {
		if i, ok := l.index[col]; ok {
			out[i] = v
		}
	}
	return out
}

func headerRow(cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, h := range cols {
		out[i] = h
	}
	return out
}

// decodeRow turns sheet cells into an entry. ok is false for rows that are not
// royalty lines (blank rows, notes, totals). The hash is always derived from the
// natural key; a stored Row_Hash is informational and may predate HashVersion.
func decodeRow(l layout, cells []interface{}, position int, defaultCurrency string) (domain.LedgerEntry, bool) {
	p, ok := parsePeriod(l.get(cells, ColMonth), l.get(cells, ColYear))
	if !ok {
		return domain.LedgerEntry{}, false
	}
	title := l.get(cells, ColTitle)
	if title == "" {
		return domain.LedgerEntry{}, false
	}

	currency := l.get(cells, ColCurrency)
	if currency == "" {
		currency = defaultCurrency
	}
	net, _, _ := normalize.ParseAmount(l.get(cells, ColNet), currency)
	royalty, _, _ := normalize.ParseAmount(l.get(cells, ColRoyalties), currency)
	rate, _ := normalize.ParseRate(l.get(cells, ColRoyaltyRate))
	units, _ := normalize.ParseUnits(l.get(cells, ColUnitsSold))

	sku := l.get(cells, ColSKU)
	return domain.LedgerEntry{
		NormalizedRow: domain.NormalizedRow{
			Period:      p,
			Publisher:   l.get(cells, ColPublisher),
			Title:       title,
			SKU:         sku,
			UnitsSold:   units,
			Net:         domain.NewMoney(net, currency),
			RoyaltyRate: rate,
			Royalty:     domain.NewMoney(royalty, currency),
			Hash:        normalize.RowHash(p, title, sku),
		},
		Position: position,
	}, true
}

// columnLetter converts a zero based column index to A1 notation: 0 is A, 26 is AA
func columnLetter(i int) string {
	var b []byte
	for i >= 0 {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
	}
	return string(b)
}

// rangeStartRow extracts the first row number of an A1 range such as "Sheet1!A7:K7"
func rangeStartRow(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	start := strings.IndexFunc(rng, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(rng) && rng[end] >= '0' && rng[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(rng[start:end])
	return n, err == nil && n > 0
}

// currencyPattern is the display format of amounts in code, symbol first when the
// currency has one
func currencyPattern(code string) string {
	if sym := normalize.CurrencySymbol(code); sym != "" {
		return fmt.Sprintf(`"%s"#,##0.00`, sym)
	}
	return fmt.Sprintf(`#,##0.00 "%s"`, code)
}

// parsePeriod accepts month names ("March") as written by every version of the
// tool, and plain month numbers typed by hand
func parsePeriod(month, year string) (domain.Period, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return domain.Period{}, false
	}
	var m time.Month
	if n, err := strconv.Atoi(month); err == nil {
		m = time.Month(n)
	} else if t, err := time.Parse("January", month); err == nil {
		m = t.Month()
	} else if t, err := time.Parse("Jan", month); err == nil {
		m = t.Month()
	}
	p := domain.Period{Year: y, Month: m}
	return p, p.Valid()
}

// cellString renders an UNFORMATTED_VALUE cell. Floats use the shortest exact form
// so 14.35 reads back as "14.35".
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case decimal.Decimal:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
