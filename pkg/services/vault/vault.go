// Package vault stores the portal credentials. The file vault seals the secret on disk,
// the Secrets Manager vault keeps both fields in one JSON secret.
package vault

import (
	"context"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

type Vault interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
}

const (
	KindFile           = "file"
	KindSecretsManager = "secretsmanager"
)
