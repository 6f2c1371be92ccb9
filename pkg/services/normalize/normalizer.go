package normalize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
)

type Options struct {
	DefaultCurrency string
	// SkipZeroRows drops rows with zero units and zero royalty
	SkipZeroRows bool
	// AllowEmpty accepts a report with a header and no data rows as a month without sales
	AllowEmpty bool
}

// Result is the normalized, deduplicated content of one raw report
type Result struct {
	Rows    []domain.NormalizedRow
	Skipped int // malformed rows
	Merged  int // rows folded into an earlier row with the same natural key
	Zero    int // zero rows dropped by SkipZeroRows
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	opts.DefaultCurrency = strings.ToUpper(opts.DefaultCurrency)
	return &Normalizer{opts: opts}
}

// Normalize converts a raw report into canonical rows. Malformed rows are skipped and
// logged. A SchemaError is returned when nothing in the payload is usable, which includes
// a report without data rows unless AllowEmpty is set.
func (n *Normalizer) Normalize(ctx context.Context, raw domain.RawReport, p domain.Period) (Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("period", p.Key()).Logger()

	if len(raw.Rows) == 0 {
		if !n.opts.AllowEmpty {
			return Result{}, domain.NewSchemaError(
				fmt.Sprintf("report for %s has no data rows", p.Key()), nil)
		}
		logger.Info().Msg("raw report has no data rows")
		return Result{Rows: []domain.NormalizedRow{}}, nil
	}

	cols := mapColumns(raw.Header)
	if missing := cols.missing(fieldTitle, fieldRoyalty); len(missing) > 0 {
		return Result{}, domain.NewSchemaError(
			fmt.Sprintf("report header %q lacks required columns: %s", raw.Header, strings.Join(missing, ", ")), nil)
	}

	var res Result
	byHash := make(map[string]int)
	for i, cells := range raw.Rows {
		row, err := n.parseRow(cols, cells, p)
		if err != nil {
			res.Skipped++
			logger.Warn().Err(err).Int("row", i+1).Msg("skipping malformed report row")
			continue
		}

		if n.opts.SkipZeroRows && row.IsZero() {
			res.Zero++
			logger.Debug().Str("title", row.Title).Msg("dropping zero row")
			continue
		}

		idx, dup := byHash[row.Hash]
		if !dup {
			byHash[row.Hash] = len(res.Rows)
			res.Rows = append(res.Rows, row)
			continue
		}

		merged, err := mergeRows(res.Rows[idx], row)
		if err != nil {
			res.Skipped++
			logger.Warn().Err(err).Int("row", i+1).Str("title", row.Title).Msg("cannot merge duplicate row")
			continue
		}
		res.Rows[idx] = merged
		res.Merged++
		logger.Warn().
			Int("row", i+1).
			Str("title", row.Title).
			Str("sku", row.SKU).
			Str("royalty", merged.Royalty.String()).
			Msg("merged duplicate report row")
	}

	recovered := len(res.Rows) + res.Zero
	if recovered == 0 {
		return Result{}, domain.NewSchemaError(
			fmt.Sprintf("none of %d report rows could be parsed", len(raw.Rows)), nil)
	}

	if res.Skipped > 0 {
		logger.Warn().Int("skipped", res.Skipped).Int("kept", len(res.Rows)).Msg("report partially parsed")
	}

	sort.SliceStable(res.Rows, func(i, j int) bool {
		return Less(res.Rows[i], res.Rows[j])
	})
	return res, nil
}

// Less is the natural sort order of normalized rows: title, then SKU
func Less(a, b domain.NormalizedRow) bool {
	at, bt := keyPart(a.Title), keyPart(b.Title)
	if at != bt {
		return at < bt
	}
	return keyPart(a.SKU) < keyPart(b.SKU)
}

func (n *Normalizer) parseRow(cols columnMap, cells []string, p domain.Period) (domain.NormalizedRow, error) {
	title := displayText(cols.cell(cells, fieldTitle))
	if title == "" {
		return domain.NormalizedRow{}, fmt.Errorf("missing title")
	}

	royaltyCell := cols.cell(cells, fieldRoyalty)
	exact, currency, err := ParseExactAmount(royaltyCell, n.opts.DefaultCurrency)
	if err != nil {
		return domain.NormalizedRow{}, err
	}
	if exact.IsNegative() {
		return domain.NormalizedRow{}, fmt.Errorf("negative royalty %q", royaltyCell)
	}
	royalty := exact.Round(Places)

	net, netCurrency, err := ParseAmount(cols.cell(cells, fieldNet), currency)
	if err != nil {
		return domain.NormalizedRow{}, err
	}
	if netCurrency != currency {
		return domain.NormalizedRow{}, fmt.Errorf("net currency %s differs from royalty currency %s", netCurrency, currency)
	}

	units, err := ParseUnits(cols.cell(cells, fieldUnits))
	if err != nil {
		return domain.NormalizedRow{}, err
	}

	rate, err := ParseRate(cols.cell(cells, fieldRate))
	if err != nil {
		return domain.NormalizedRow{}, err
	}

	sku := displayText(cols.cell(cells, fieldSKU))
	return domain.NormalizedRow{
		Period:      p,
		Publisher:   displayText(cols.cell(cells, fieldPublisher)),
		Title:       title,
		SKU:         sku,
		UnitsSold:   units,
		Net:         domain.NewMoney(net, currency),
		RoyaltyRate: rate,
		Royalty:     domain.NewMoney(royalty, currency),
		Hash:        RowHash(p, title, sku),
	}, nil
}

func mergeRows(into, row domain.NormalizedRow) (domain.NormalizedRow, error) {
	if into.Royalty.Currency != row.Royalty.Currency {
		return into, fmt.Errorf("currency %s differs from %s", row.Royalty.Currency, into.Royalty.Currency)
	}
	into.UnitsSold += row.UnitsSold
	into.Net = into.Net.Add(row.Net)
	into.Royalty = into.Royalty.Add(row.Royalty)
	if into.Publisher == "" {
		into.Publisher = row.Publisher
	}
	return into, nil
}
