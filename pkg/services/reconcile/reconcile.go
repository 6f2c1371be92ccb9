// Package reconcile computes the minimal set of ledger writes for one period.
// It is pure: no I/O, no failures. Store errors surface when the plan is applied.
package reconcile

import (
	"sort"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/normalize"
)

// Plan diffs normalized rows against the ledger entries that currently exist.
// Entries belonging to other periods are ignored. Updates come first in position
// order, followed by appends in title order.
func Plan(p domain.Period, rows []domain.NormalizedRow, existing []domain.LedgerEntry) domain.WritePlan {
	index := indexByHash(p, existing)

	var updates, appends []domain.Action
	planned := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := planned[row.Hash]; ok {
			continue
		}
		planned[row.Hash] = struct{}{}

		entry, ok := index[row.Hash]
		switch {
		case !ok:
			appends = append(appends, domain.Action{Kind: domain.ActionAppend, Row: row})
		case !entry.SameValues(row):
			updates = append(updates, domain.Action{Kind: domain.ActionUpdate, Position: entry.Position, Row: row})
		}
	}

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Position < updates[j].Position
	})
	sort.SliceStable(appends, func(i, j int) bool {
		return normalize.Less(appends[i].Row, appends[j].Row)
	})

	return domain.WritePlan{
		Period:  p,
		Actions: append(updates, appends...),
	}
}

// Duplicates returns ledger entries of p that share a hash with an earlier entry.
// They predate this tool or were written by someone else; Plan targets the first one.
func Duplicates(p domain.Period, existing []domain.LedgerEntry) []domain.LedgerEntry {
	first := make(map[string]int)
	var dups []domain.LedgerEntry
	for _, e := range sortedByPosition(p, existing) {
		if _, ok := first[e.Hash]; ok {
			dups = append(dups, e)
			continue
		}
		first[e.Hash] = e.Position
	}
	return dups
}

// Summarize counts how many rows the plan leaves untouched
func Summarize(plan domain.WritePlan, rows []domain.NormalizedRow) (appended, updated, unchanged int) {
	appended = plan.Count(domain.ActionAppend)
	updated = plan.Count(domain.ActionUpdate)
	unchanged = len(rows) - appended - updated
	if unchanged < 0 {
		unchanged = 0
	}
	return appended, updated, unchanged
}

func indexByHash(p domain.Period, existing []domain.LedgerEntry) map[string]domain.LedgerEntry {
	index := make(map[string]domain.LedgerEntry)
	for _, e := range sortedByPosition(p, existing) {
		if _, ok := index[e.Hash]; ok {
			continue
		}
		index[e.Hash] = e
	}
	return index
}

func sortedByPosition(p domain.Period, existing []domain.LedgerEntry) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0, len(existing))
	for _, e := range existing {
		if e.Period != p || e.Hash == "" {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
