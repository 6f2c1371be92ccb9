package store

import "time"

// SyncRun is a row of the sync_runs journal
type SyncRun struct {
	ID         int64
	Period     string
	Stage      string
	ArchiveHit bool
	Appended   int
	Updated    int
	Failed     int
	Error      *string
	StartedAt  time.Time
	FinishedAt time.Time
}
