package domain

import "time"

// RawReport is the unprocessed tabular payload returned by a report source for one period.
// It is persisted verbatim to the archive and never mutated after fetch.
type RawReport struct {
	Period    Period
	Header    []string
	Rows      [][]string
	FetchedAt time.Time
	Source    string // portal, filedrop, archive
}

func (r RawReport) Empty() bool {
	return len(r.Header) == 0 && len(r.Rows) == 0
}
