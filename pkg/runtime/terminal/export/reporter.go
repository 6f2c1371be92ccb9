package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

type TableConfig struct {
	ActionWidth int
	TitleWidth  int
	SKUWidth    int
	AmountWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		ActionWidth: 12,
		TitleWidth:  40,
		SKUWidth:    14,
		AmountWidth: 14,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

const summaryTemplate = `
Royalty sync {{.Period}}{{if .DryRun}} (dry run){{end}}
Stage: {{.Stage}}{{if .Err}} (failed after {{.FailedAt}}){{end}}
Report: {{if .ArchiveHit}}archived copy{{else if .FetchAttempts}}fetched in {{.FetchAttempts}} attempt(s){{else}}not retrieved{{end}}
Rows: {{.RowsNormalized}} normalized, {{.RowsSkipped}} skipped, {{.RowsMerged}} merged
Ledger: {{.Appended}} {{if .DryRun}}to append{{else}}appended{{end}}, {{.Updated}} {{if .DryRun}}to update{{else}}updated{{end}}, {{.Unchanged}} unchanged
{{- if .Plan.Actions}}{{if .DryRun}}

{{separator}}
{{formatRow "Action" "Title" "SKU" "Royalty"}}
{{separator}}
{{range .Plan.Actions}}{{actionRow .}}
{{end}}{{separator}}{{end}}{{end}}
{{- if .Failures}}

Failed writes ({{len .Failures}}):
{{range .Failures}}- {{.Action}}: {{.Err}}
{{end}}{{end}}
{{- if .Err}}

Error: {{.Err}}{{end}}
Duration: {{duration .StartedAt .FinishedAt}}
`

const archiveTemplate = `
{{separator}}
{{formatRow "Period" "Location" "Rows" "Source"}}
{{separator}}
{{range .}}{{formatRow .Period.Key .Location .Rows .Source}}
{{end}}{{separator}}
`

const crawlTemplate = `
Catalog crawl{{if .Stopped}} (interrupted){{end}}
Listing pages: {{.Pages}}
Products: {{.Seen}} listed, {{.Known}} already stored, {{.Saved}} saved, {{.Failed}} failed
`

const productsTemplate = `
{{separator}}
{{formatRow "Metal" "Name" "Pages" "Price"}}
{{separator}}
{{range .}}{{productRow .}}
{{end}}{{separator}}
{{len .}} product(s)
`

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"formatRow": func(a, b, d, e interface{}) string {
			return fmt.Sprintf("| %-*v | %-*v | %-*v | %*v |",
				c.config.ActionWidth, a,
				c.config.TitleWidth, truncate(fmt.Sprint(b), c.config.TitleWidth),
				c.config.SKUWidth, d,
				c.config.AmountWidth, e)
		},
		"actionRow": func(a domain.Action) string {
			kind := string(a.Kind)
			if a.Kind == domain.ActionUpdate {
				kind = fmt.Sprintf("%s@%d", a.Kind, a.Position)
			}
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*s |",
				c.config.ActionWidth, kind,
				c.config.TitleWidth, truncate(a.Row.Title, c.config.TitleWidth),
				c.config.SKUWidth, a.Row.SKU,
				c.config.AmountWidth, a.Row.Royalty.String())
		},
		"productRow": func(p domain.Product) string {
			pages, price := "", ""
			if p.Pages != nil {
				pages = fmt.Sprint(*p.Pages)
			}
			if p.Price.Valid {
				price = p.Price.Decimal.StringFixed(2)
			}
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*s |",
				c.config.ActionWidth, truncate(p.Metal, c.config.ActionWidth),
				c.config.TitleWidth, truncate(p.Name, c.config.TitleWidth),
				c.config.SKUWidth, pages,
				c.config.AmountWidth, price)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.ActionWidth+2),
				strings.Repeat("-", c.config.TitleWidth+2),
				strings.Repeat("-", c.config.SKUWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2))
		},
		"duration": func(start, end time.Time) string {
			return end.Sub(start).Round(time.Millisecond).String()
		},
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// Handle renders the outcome of one sync run
func (c *Reporter) Handle(summary domain.SyncSummary) error {
	return c.render("summary", summaryTemplate, summary)
}

// Archive renders the archived periods
func (c *Reporter) Archive(records []domain.ArchiveRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(c.writer, "No archived reports.")
		return err
	}
	return c.render("archive", archiveTemplate, records)
}

// Crawl renders the outcome of one catalog crawl
func (c *Reporter) Crawl(summary domain.CrawlSummary) error {
	return c.render("crawl", crawlTemplate, summary)
}

// Products renders the stored catalog
func (c *Reporter) Products(products []domain.Product) error {
	if len(products) == 0 {
		_, err := fmt.Fprintln(c.writer, "No catalog products stored.")
		return err
	}
	return c.render("products", productsTemplate, products)
}

func (c *Reporter) render(name, text string, data interface{}) error {
	t, err := template.New(name).Funcs(c.funcs()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}
