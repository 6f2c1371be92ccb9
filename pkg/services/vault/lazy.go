package vault

import (
	"context"
	"sync"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

// Opener builds the underlying vault on first use
type Opener func(ctx context.Context) (Vault, error)

// LazyVault defers opening the configured vault until credentials are needed, so
// commands served from the archive never ask for a passphrase. A failed open is not
// cached and is retried on the next call.
type LazyVault struct {
	open Opener

	mu sync.Mutex
	v  Vault
}

func NewLazyVault(open Opener) *LazyVault {
	return &LazyVault{open: open}
}

func (l *LazyVault) Credentials(ctx context.Context) (domain.Credentials, error) {
	v, err := l.resolve(ctx)
	if err != nil {
		return domain.Credentials{}, err
	}
	return v.Credentials(ctx)
}

func (l *LazyVault) Save(ctx context.Context, creds domain.Credentials) error {
	v, err := l.resolve(ctx)
	if err != nil {
		return err
	}
	return v.Save(ctx, creds)
}

func (l *LazyVault) resolve(ctx context.Context) (Vault, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.v != nil {
		return l.v, nil
	}
	v, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	l.v = v
	return v, nil
}
