package store

import "time"

// ArchiveRecord is a row of the archive_records index
type ArchiveRecord struct {
	Period    string
	Location  string
	Checksum  string
	Rows      int
	Source    string
	FetchedAt time.Time
}
