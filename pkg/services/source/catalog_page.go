package source

import (
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	productLinkClass = "product_listing_link"
	nextPageText     = "[Next >>]"

	infoTitleClass   = "widget-information-item-title"
	infoContentClass = "widget-information-item-content"
	addedMarker      = "added to our catalog on "
)

// CatalogPage is one listing page: absolute product URLs, sorted and unique, and
// the absolute URL of the next page, empty on the last one
type CatalogPage struct {
	Products []string
	Next     string
}

func ParseListing(r io.Reader, base *url.URL) (CatalogPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return CatalogPage{}, domain.NewSchemaError("catalog listing is not valid HTML", err)
	}

	var page CatalogPage
	seen := make(map[string]struct{})
	for _, a := range collect(doc, atom.A) {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		abs, err := base.Parse(href)
		if err != nil {
			continue
		}
		switch {
		case hasClass(a, productLinkClass):
			if _, ok := seen[abs.String()]; !ok {
				seen[abs.String()] = struct{}{}
				page.Products = append(page.Products, abs.String())
			}
		case page.Next == "" && strings.Contains(text(a), nextPageText):
			page.Next = abs.String()
		}
	}
	sort.Strings(page.Products)
	return page, nil
}

// ParseProduct reads a product page. Only the name is required; every other field
// is left empty when the page does not show it.
func ParseProduct(r io.Reader) (domain.Product, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return domain.Product{}, domain.NewSchemaError("product page is not valid HTML", err)
	}

	var p domain.Product
	if n := first(doc, func(n *html.Node) bool { return n.DataAtom == atom.Span && attr(n, "itemprop") == "name" }); n != nil {
		p.Name = text(n)
	}
	if p.Name == "" {
		return domain.Product{}, domain.NewSchemaError("product page has no name", nil)
	}

	if n := first(doc, func(n *html.Node) bool { return n.DataAtom == atom.Img && strings.Contains(attr(n, "alt"), "seller") }); n != nil {
		p.Metal = attr(n, "alt")
	}

	if n := first(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && hasClass(n, infoContentClass) && strings.Contains(text(n), addedMarker)
	}); n != nil {
		p.AddedOn = parseAddedOn(text(n))
	}

	if n := first(doc, func(n *html.Node) bool { return attr(n, "id") == "product-rate-score-value" }); n != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(attr(n, "value")), 64); err == nil {
			p.Rating = &v
		}
	}

	if n := first(doc, func(n *html.Node) bool { return n.DataAtom == atom.Meta && attr(n, "itemprop") == "reviewCount" }); n != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(attr(n, "content"))); err == nil {
			p.RatingsCount = &v
		}
	}

	if n := first(doc, func(n *html.Node) bool { return attr(n, "id") == "product-price-strike" }); n != nil {
		s := strings.TrimSpace(strings.ReplaceAll(text(n), "$", ""))
		if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "")); err == nil {
			p.Price = decimal.NewNullDecimal(d)
		}
	}

	for _, content := range infoContents(doc, "Rules Edition") {
		lists := all(content, func(n *html.Node) bool { return n.DataAtom == atom.Ul && hasClass(n, "rules-system-list") })
		for _, ul := range lists {
			for _, a := range collect(ul, atom.A) {
				if p.Edition == "" {
					p.Edition = text(a)
				}
			}
		}
	}
	p.Authors = infoLinks(doc, "Author")
	p.Artists = infoLinks(doc, "Artist")

	for _, content := range infoContents(doc, "Pages") {
		if !hasClass(content, infoContentClass) {
			continue
		}
		if v, err := strconv.Atoi(text(content)); err == nil {
			p.Pages = &v
			break
		}
	}
	return p, nil
}

// parseAddedOn reads "This title was added to our catalog on January 2, 2006."
func parseAddedOn(s string) *time.Time {
	i := strings.Index(s, addedMarker)
	if i < 0 {
		return nil
	}
	date := strings.TrimSpace(strings.ReplaceAll(s[i+len(addedMarker):], ".", ""))
	t, err := time.Parse("January 2, 2006", date)
	if err != nil {
		return nil
	}
	return &t
}

// infoContents returns the div siblings following each information title that
// contains label
func infoContents(doc *html.Node, label string) []*html.Node {
	var out []*html.Node
	titles := all(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && attr(n, "class") == infoTitleClass && strings.Contains(text(n), label)
	})
	for _, t := range titles {
		for sib := t.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.DataAtom == atom.Div {
				out = append(out, sib)
			}
		}
	}
	return out
}

func infoLinks(doc *html.Node, label string) []string {
	var out []string
	for _, content := range infoContents(doc, label) {
		for _, a := range collect(content, atom.A) {
			if name := text(a); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// all returns the element nodes under n matching pred, in document order
func all(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func first(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if found := all(n, pred); len(found) > 0 {
		return found[0]
	}
	return nil
}
