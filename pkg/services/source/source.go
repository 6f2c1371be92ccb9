// Package source holds the report source adapters. A source fetches the raw royalty
// table for one period and classifies failures as transient or authentication errors.
package source

import (
	"context"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context, p domain.Period) (domain.RawReport, error)
}

// CredentialProvider hands out portal credentials; the vault implements it
type CredentialProvider interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
}

// ReportHeader is the column layout of the portal's royalty table
var ReportHeader = []string{"Publisher", "Title", "SKU", "Units_Sold", "Net", "Royalty_Rate", "Royalties"}
