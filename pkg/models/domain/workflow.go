package domain

import "time"

// Stage is a state of the sync state machine
type Stage string

const (
	StageStart          Stage = "START"
	StagePeriodResolved Stage = "PERIOD_RESOLVED"
	StageArchiveChecked Stage = "ARCHIVE_CHECKED"
	StageFetched        Stage = "FETCHED"
	StageArchiveHit     Stage = "ARCHIVE_HIT"
	StageNormalized     Stage = "NORMALIZED"
	StageLedgerRead     Stage = "LEDGER_READ"
	StageReconciled     Stage = "RECONCILED"
	StageWritten        Stage = "WRITTEN"
	StageDone           Stage = "DONE"
	StageFailed         Stage = "FAILED"
)

// SyncSummary is what one run reports back to the operator
type SyncSummary struct {
	Period         Period
	Stage          Stage
	FailedAt       Stage // last stage reached before FAILED
	DryRun         bool
	ArchiveHit     bool
	FetchAttempts  int
	RowsNormalized int
	RowsSkipped    int
	RowsMerged     int
	Appended       int
	Updated        int
	Unchanged      int
	Plan           WritePlan
	Failures       []ActionResult
	Err            error
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Succeeded is true when the run reached DONE with no failed write
func (s SyncSummary) Succeeded() bool {
	return s.Stage == StageDone && s.Err == nil && len(s.Failures) == 0
}

// SyncRun is a journal entry for a finished run
type SyncRun struct {
	ID         int64
	Period     Period
	Stage      Stage
	ArchiveHit bool
	Appended   int
	Updated    int
	Failed     int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
