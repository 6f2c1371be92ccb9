package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReadAndApply(t *testing.T) {
	feb := domain.Period{Year: 2024, Month: time.February}
	m := NewMemoryStore(ledgerRow(feb, "Abyss", "A-1", "1.00"), ledgerRow(march, "Abyss", "A-1", "1.00"))

	entries, err := m.Read(context.Background(), march)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Position)

	results := m.Apply(context.Background(), domain.WritePlan{Period: march, Actions: []domain.Action{
		{Kind: domain.ActionUpdate, Position: 3, Row: ledgerRow(march, "Abyss", "A-1", "2.00")},
		{Kind: domain.ActionUpdate, Position: 40, Row: ledgerRow(march, "Abyss", "A-1", "2.00")},
		{Kind: domain.ActionAppend, Row: ledgerRow(march, "Bastion", "B-2", "3.00")},
	}})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.Equal(t, domain.KindWrite, results[1].Kind())
	assert.True(t, results[2].Success)
	assert.Len(t, m.Rows(), 3)
}

func TestMemoryStore_FailWith(t *testing.T) {
	m := NewMemoryStore()
	m.FailWith = func(a domain.Action) error {
		if a.Row.Title == "Abyss" {
			return errors.New("quota exceeded")
		}
		return nil
	}

	results := m.Apply(context.Background(), domain.WritePlan{Period: march, Actions: []domain.Action{
		{Kind: domain.ActionAppend, Row: ledgerRow(march, "Abyss", "A-1", "1.00")},
		{Kind: domain.ActionAppend, Row: ledgerRow(march, "Bastion", "B-2", "1.00")},
	}})

	assert.False(t, results[0].Success)
	assert.True(t, errors.Is(results[0].Err, domain.ErrWrite))
	assert.True(t, results[1].Success)
	assert.Len(t, m.Rows(), 1)
}
