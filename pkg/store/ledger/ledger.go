// Package ledger reads and writes the royalty ledger. The ledger is never owned
// exclusively: callers must Read right before planning and Apply right after.
package ledger

import (
	"context"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

type Store interface {
	// Read returns the entries of period p in sheet order
	Read(ctx context.Context, p domain.Period) ([]domain.LedgerEntry, error)
	// Apply executes the plan action by action; a failed action never stops the rest
	Apply(ctx context.Context, plan domain.WritePlan) []domain.ActionResult
}

const (
	KindSheets = "sheets"
	KindMemory = "memory"

	DefaultSheet    = "Sheet1"
	DefaultCurrency = "USD"
)

// Column names of the ledger header row, in sheet order
const (
	ColMonth       = "Month"
	ColYear        = "Year"
	ColPublisher   = "Publisher"
	ColTitle       = "Title"
	ColSKU         = "SKU"
	ColUnitsSold   = "Units_Sold"
	ColNet         = "Net"
	ColRoyaltyRate = "Royalty_Rate"
	ColRoyalties   = "Royalties"
	ColCurrency    = "Currency"
	ColRowHash     = "Row_Hash"
)

var Header = []string{
	ColMonth, ColYear, ColPublisher, ColTitle, ColSKU, ColUnitsSold,
	ColNet, ColRoyaltyRate, ColRoyalties, ColCurrency, ColRowHash,
}
