package domain

import "time"

// ArchiveRecord maps a period to its stored raw report
type ArchiveRecord struct {
	Period    Period
	Location  string
	Checksum  string
	Rows      int
	Source    string
	FetchedAt time.Time
}
