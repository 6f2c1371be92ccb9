package source

import (
	"io"
	"strings"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseReportTable extracts the data rows of the royalty table. Rows that do not have
// exactly one cell per report column (totals, spacers) are dropped.
func ParseReportTable(r io.Reader) ([][]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, domain.NewSchemaError("royalty report page is not valid HTML", err)
	}

	table := findReportTable(doc)
	if table == nil {
		return nil, domain.NewSchemaError("royalty report table not found", nil)
	}

	rows := make([][]string, 0)
	for _, tr := range collect(table, atom.Tr) {
		cells := collect(tr, atom.Td)
		if len(cells) != len(ReportHeader) {
			continue
		}
		row := make([]string, 0, len(cells))
		for _, td := range cells {
			row = append(row, text(td))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// findReportTable prefers the portal's bordered report table and falls back to the
// first table holding a full width row
func findReportTable(doc *html.Node) *html.Node {
	tables := collect(doc, atom.Table)
	for _, t := range tables {
		if attr(t, "cellpadding") == "5" && attr(t, "border") == "1" {
			return t
		}
	}
	for _, t := range tables {
		for _, tr := range collect(t, atom.Tr) {
			if len(collect(tr, atom.Td)) == len(ReportHeader) {
				return t
			}
		}
	}
	return nil
}

func collect(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
				// nested tables belong to their own cell
				if a == atom.Td || a == atom.Table {
					continue
				}
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
