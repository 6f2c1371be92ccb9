package normalize

import (
	"strings"
	"unicode"
)

type field int

const (
	fieldPublisher field = iota
	fieldTitle
	fieldSKU
	fieldUnits
	fieldNet
	fieldRate
	fieldRoyalty
)

var fieldNames = map[field]string{
	fieldPublisher: "publisher",
	fieldTitle:     "title",
	fieldSKU:       "sku",
	fieldUnits:     "units sold",
	fieldNet:       "net",
	fieldRate:      "royalty rate",
	fieldRoyalty:   "royalties",
}

// aliases are matched against headerKey output
var aliases = map[string]field{
	"publisher":      fieldPublisher,
	"title":          fieldTitle,
	"product":        fieldTitle,
	"producttitle":   fieldTitle,
	"sku":            fieldSKU,
	"productid":      fieldSKU,
	"unitssold":      fieldUnits,
	"units":          fieldUnits,
	"qty":            fieldUnits,
	"quantity":       fieldUnits,
	"net":            fieldNet,
	"netsales":       fieldNet,
	"netamount":      fieldNet,
	"royaltyrate":    fieldRate,
	"royaltypercent": fieldRate,
	"rate":           fieldRate,
	"royalties":      fieldRoyalty,
	"royalty":        fieldRoyalty,
	"royaltyamount":  fieldRoyalty,
	"earnings":       fieldRoyalty,
}

// headerKey folds a header cell so "Units_Sold", "Units Sold" and "units-sold" match
func headerKey(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		switch {
		case r == '%':
			b.WriteString("percent")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

type columnMap map[field]int

func mapColumns(header []string) columnMap {
	cols := columnMap{}
	for i, h := range header {
		f, ok := aliases[headerKey(h)]
		if !ok {
			continue
		}
		if _, seen := cols[f]; seen {
			continue
		}
		cols[f] = i
	}
	return cols
}

func (c columnMap) missing(required ...field) []string {
	var out []string
	for _, f := range required {
		if _, ok := c[f]; !ok {
			out = append(out, fieldNames[f])
		}
	}
	return out
}

func (c columnMap) cell(row []string, f field) string {
	i, ok := c[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
