package adapters

import (
	"github.com/de-tools/royalty-ledger/pkg/models/api"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/models/store"
)

func MapSyncSummaryToStoreRun(s domain.SyncSummary) store.SyncRun {
	run := store.SyncRun{
		Period:     s.Period.Key(),
		Stage:      string(s.Stage),
		ArchiveHit: s.ArchiveHit,
		Appended:   s.Appended,
		Updated:    s.Updated,
		Failed:     len(s.Failures),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if s.Err != nil {
		msg := s.Err.Error()
		run.Error = &msg
	}
	return run
}

func MapStoreRunToDomain(r store.SyncRun) domain.SyncRun {
	// Runs that failed before resolving a period are journaled with an empty key
	p, _ := domain.ParsePeriod(r.Period)
	run := domain.SyncRun{
		ID:         r.ID,
		Period:     p,
		Stage:      domain.Stage(r.Stage),
		ArchiveHit: r.ArchiveHit,
		Appended:   r.Appended,
		Updated:    r.Updated,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Error != nil {
		run.Error = *r.Error
	}
	return run
}

func MapSyncRunDomainToApi(r domain.SyncRun) api.SyncRun {
	var period string
	if !r.Period.IsZero() {
		period = r.Period.Key()
	}
	return api.SyncRun{
		ID:         r.ID,
		Period:     period,
		Stage:      string(r.Stage),
		ArchiveHit: r.ArchiveHit,
		Appended:   r.Appended,
		Updated:    r.Updated,
		Failed:     r.Failed,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
