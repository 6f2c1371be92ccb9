package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/royalty-ledger/pkg/adapters"
	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/normalize"
	"github.com/de-tools/royalty-ledger/pkg/services/period"
	"github.com/de-tools/royalty-ledger/pkg/services/reconcile"
	"github.com/de-tools/royalty-ledger/pkg/services/source"
	"github.com/de-tools/royalty-ledger/pkg/store/archive"
	"github.com/de-tools/royalty-ledger/pkg/store/duckdb/journal"
	"github.com/de-tools/royalty-ledger/pkg/store/ledger"
	"github.com/lestrrat-go/backoff/v2"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators of one sync run
type Dependencies struct {
	Archive    archive.Archive
	Source     source.Source
	Normalizer *normalize.Normalizer
	Ledger     ledger.Store
	Journal    journal.Store // optional
	Retry      backoff.Policy
	Now        func() time.Time
}

type RunOptions struct {
	Period domain.Period // zero means the previous calendar month
	DryRun bool
}

// Runner drives one period through fetch-or-skip, normalize and reconcile-then-write
type Runner struct {
	deps Dependencies
}

func NewRunner(deps Dependencies) (*Runner, error) {
	switch {
	case deps.Archive == nil:
		return nil, domain.NewInvalidInputError("runner requires an archive", nil)
	case deps.Source == nil:
		return nil, domain.NewInvalidInputError("runner requires a report source", nil)
	case deps.Normalizer == nil:
		return nil, domain.NewInvalidInputError("runner requires a normalizer", nil)
	case deps.Ledger == nil:
		return nil, domain.NewInvalidInputError("runner requires a ledger store", nil)
	}
	if deps.Retry == nil {
		deps.Retry = DefaultRetryPolicy(3, time.Second, 30*time.Second)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{deps: deps}, nil
}

// DefaultRetryPolicy is exponential backoff with jitter, bounded by maxRetries
func DefaultRetryPolicy(maxRetries int, minInterval, maxInterval time.Duration) backoff.Policy {
	return backoff.Exponential(
		backoff.WithMinInterval(minInterval),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithJitterFactor(0.2),
		backoff.WithMaxRetries(maxRetries),
	)
}

// Run executes the sync state machine. It never panics on collaborator failures;
// the summary carries the final stage and error.
func (r *Runner) Run(ctx context.Context, opts RunOptions) domain.SyncSummary {
	s := domain.SyncSummary{
		Stage:     domain.StageStart,
		DryRun:    opts.DryRun,
		StartedAt: r.deps.Now(),
	}

	r.run(ctx, opts, &s)

	s.FinishedAt = r.deps.Now()
	if !opts.DryRun {
		r.journal(ctx, s)
	}
	return s
}

func (r *Runner) run(ctx context.Context, opts RunOptions, s *domain.SyncSummary) {
	p := opts.Period
	if p.IsZero() {
		var err error
		if p, err = period.Resolve(r.deps.Now()); err != nil {
			fail(s, err)
			return
		}
	} else if !p.Valid() {
		fail(s, domain.NewInvalidInputError(fmt.Sprintf("invalid period %d-%d", p.Year, p.Month), nil))
		return
	}
	s.Period = p
	s.Stage = domain.StagePeriodResolved

	logger := zerolog.Ctx(ctx).With().Str("period", p.Key()).Bool("dry_run", opts.DryRun).Logger()
	ctx = logger.WithContext(ctx)

	hit, err := r.deps.Archive.Has(ctx, p)
	if err != nil {
		fail(s, fmt.Errorf("check archive: %w", err))
		return
	}
	s.Stage = domain.StageArchiveChecked

	var raw domain.RawReport
	if hit {
		logger.Info().Msg("report already archived, skipping fetch")
		if raw, err = r.deps.Archive.Load(ctx, p); err != nil {
			fail(s, err)
			return
		}
		s.ArchiveHit = true
		s.Stage = domain.StageArchiveHit
	} else {
		raw, s.FetchAttempts, err = r.fetch(ctx, p)
		if err != nil {
			fail(s, err)
			return
		}
		if err := r.deps.Archive.Store(ctx, p, raw); err != nil {
			fail(s, fmt.Errorf("archive report: %w", err))
			return
		}
		s.Stage = domain.StageFetched
	}

	result, err := r.deps.Normalizer.Normalize(ctx, raw, p)
	if err != nil {
		fail(s, err)
		return
	}
	s.RowsNormalized = len(result.Rows)
	s.RowsSkipped = result.Skipped
	s.RowsMerged = result.Merged
	s.Stage = domain.StageNormalized

	// read right before planning; the sheet is shared with people editing it
	existing, err := r.deps.Ledger.Read(ctx, p)
	if err != nil {
		fail(s, fmt.Errorf("read ledger: %w", err))
		return
	}
	s.Stage = domain.StageLedgerRead

	if dups := reconcile.Duplicates(p, existing); len(dups) > 0 {
		for _, d := range dups {
			logger.Warn().Int("position", d.Position).Str("title", d.Title).Msg("ledger already holds a duplicate row")
		}
	}
	plan := reconcile.Plan(p, result.Rows, existing)
	s.Plan = plan
	s.Appended, s.Updated, s.Unchanged = reconcile.Summarize(plan, result.Rows)
	s.Stage = domain.StageReconciled

	if opts.DryRun || plan.Empty() {
		if plan.Empty() {
			logger.Info().Int("rows", len(result.Rows)).Msg("ledger already up to date")
		}
		s.Stage = domain.StageDone
		return
	}

	results := r.deps.Ledger.Apply(ctx, plan)
	s.Appended, s.Updated = 0, 0
	for _, res := range results {
		if !res.Success {
			s.Failures = append(s.Failures, res)
			continue
		}
		switch res.Action.Kind {
		case domain.ActionAppend:
			s.Appended++
		case domain.ActionUpdate:
			s.Updated++
		}
	}
	s.Stage = domain.StageWritten

	logger.Info().
		Int("appended", s.Appended).
		Int("updated", s.Updated).
		Int("unchanged", s.Unchanged).
		Int("failed", len(s.Failures)).
		Msg("ledger synced")
	s.Stage = domain.StageDone
}

// fetch calls the source, retrying only transient failures
func (r *Runner) fetch(ctx context.Context, p domain.Period) (domain.RawReport, int, error) {
	logger := zerolog.Ctx(ctx)

	attempts := 0
	var lastErr error
	b := r.deps.Retry.Start(ctx)
	for backoff.Continue(b) {
		attempts++
		raw, err := r.deps.Source.Fetch(ctx, p)
		if err == nil {
			logger.Info().Str("source", r.deps.Source.Name()).Int("attempt", attempts).Int("rows", len(raw.Rows)).Msg("fetched report")
			return raw, attempts, nil
		}
		if !domain.IsRetryable(err) {
			return domain.RawReport{}, attempts, err
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempts).Msg("report source unavailable, backing off")
	}

	if err := ctx.Err(); err != nil {
		return domain.RawReport{}, attempts, err
	}
	if lastErr == nil {
		lastErr = domain.NewSourceUnavailableError("no fetch attempt was made", nil)
	}
	return domain.RawReport{}, attempts, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

func (r *Runner) journal(ctx context.Context, s domain.SyncSummary) {
	if r.deps.Journal == nil {
		return
	}
	if _, err := r.deps.Journal.Record(ctx, adapters.MapSyncSummaryToStoreRun(s)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to journal sync run")
	}
}

func fail(s *domain.SyncSummary, err error) {
	s.FailedAt = s.Stage
	s.Stage = domain.StageFailed
	s.Err = err
}

// IsFatal reports whether err should abort a backfill instead of moving to the next period
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrAuthentication) || errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
