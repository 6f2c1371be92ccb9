package ledger

import (
	"context"
	"sync"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
)

// MemoryStore is an in-process ledger. Row 1 is the header, like a sheet,
// so entry positions start at 2.
type MemoryStore struct {
	mu   sync.Mutex
	rows []domain.NormalizedRow

	// FailWith, when set, is consulted before each action; a non-nil error fails it
	FailWith func(domain.Action) error
}

func NewMemoryStore(rows ...domain.NormalizedRow) *MemoryStore {
	return &MemoryStore{rows: append([]domain.NormalizedRow(nil), rows...)}
}

func (m *MemoryStore) Read(_ context.Context, p domain.Period) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.LedgerEntry
	for i, r := range m.rows {
		if r.Period != p {
			continue
		}
		out = append(out, domain.LedgerEntry{NormalizedRow: r, Position: i + 2})
	}
	return out, nil
}

func (m *MemoryStore) Apply(_ context.Context, plan domain.WritePlan) []domain.ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]domain.ActionResult, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		if m.FailWith != nil {
			if err := m.FailWith(a); err != nil {
				results = append(results, domain.ActionResult{Action: a, Err: domain.NewWriteError(a.String(), err)})
				continue
			}
		}

		switch a.Kind {
		case domain.ActionUpdate:
			i := a.Position - 2
			if i < 0 || i >= len(m.rows) {
				results = append(results, domain.ActionResult{Action: a, Err: domain.NewWriteError(a.String(), domain.NewNotFoundError("no such row"))})
				continue
			}
			m.rows[i] = a.Row
		case domain.ActionAppend:
			m.rows = append(m.rows, a.Row)
		default:
			results = append(results, domain.ActionResult{Action: a, Err: domain.NewInvalidInputError("unknown action "+string(a.Kind), nil)})
			continue
		}
		results = append(results, domain.ActionResult{Action: a, Success: true})
	}
	return results
}

// Rows returns a copy of every stored row in ledger order
func (m *MemoryStore) Rows() []domain.NormalizedRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.NormalizedRow(nil), m.rows...)
}
