package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/period"
	"github.com/de-tools/royalty-ledger/pkg/services/reconcile"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPrefetchLimit bounds concurrent report fetches during a backfill
const DefaultPrefetchLimit = 3

type Controller interface {
	Sync(ctx context.Context, opts RunOptions) domain.SyncSummary
	Backfill(ctx context.Context, from, to domain.Period, dryRun bool) ([]domain.SyncSummary, error)
	Preview(ctx context.Context, p domain.Period) (domain.WritePlan, error)
}

type DefaultController struct {
	runner        *Runner
	prefetchLimit int
}

func NewController(runner *Runner, prefetchLimit int) *DefaultController {
	if prefetchLimit <= 0 {
		prefetchLimit = DefaultPrefetchLimit
	}
	return &DefaultController{runner: runner, prefetchLimit: prefetchLimit}
}

func (ctrl *DefaultController) Sync(ctx context.Context, opts RunOptions) domain.SyncSummary {
	return ctrl.runner.Run(ctx, opts)
}

// Backfill syncs every period in [from, to]. Missing reports are fetched in
// parallel first; ledger writes then happen one period at a time, oldest first.
// A fatal failure (credentials, cancellation) stops the remaining periods.
func (ctrl *DefaultController) Backfill(ctx context.Context, from, to domain.Period, dryRun bool) ([]domain.SyncSummary, error) {
	periods, err := period.Range(from, to)
	if err != nil {
		return nil, err
	}

	if err := ctrl.prefetch(ctx, periods); err != nil {
		return nil, err
	}

	summaries := make([]domain.SyncSummary, 0, len(periods))
	for _, p := range periods {
		s := ctrl.runner.Run(ctx, RunOptions{Period: p, DryRun: dryRun})
		summaries = append(summaries, s)
		if s.Err != nil && IsFatal(s.Err) {
			return summaries, fmt.Errorf("backfill stopped at %s: %w", p, s.Err)
		}
	}
	return summaries, nil
}

// prefetch archives the reports of periods not archived yet. Fetch failures are
// left for the sequential pass to report; only an authentication failure or
// cancellation aborts.
func (ctrl *DefaultController) prefetch(ctx context.Context, periods []domain.Period) error {
	deps := ctrl.runner.deps
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ctrl.prefetchLimit)

	for _, p := range periods {
		g.Go(func() error {
			logger := zerolog.Ctx(gctx).With().Str("period", p.Key()).Logger()
			lctx := logger.WithContext(gctx)

			hit, err := deps.Archive.Has(lctx, p)
			if err != nil {
				logger.Warn().Err(err).Msg("archive check failed during prefetch")
				return nil
			}
			if hit {
				return nil
			}

			raw, _, err := ctrl.runner.fetch(lctx, p)
			if err != nil {
				if errors.Is(err, domain.ErrAuthentication) || errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warn().Err(err).Msg("prefetch failed")
				return nil
			}
			if err := deps.Archive.Store(lctx, p, raw); err != nil {
				logger.Warn().Err(err).Msg("failed to archive prefetched report")
			}
			return nil
		})
	}
	return g.Wait()
}

// Preview plans an archived period against the current ledger without fetching
// or writing anything
func (ctrl *DefaultController) Preview(ctx context.Context, p domain.Period) (domain.WritePlan, error) {
	deps := ctrl.runner.deps
	if !p.Valid() {
		return domain.WritePlan{}, domain.NewInvalidInputError(fmt.Sprintf("invalid period %d-%d", p.Year, p.Month), nil)
	}

	raw, err := deps.Archive.Load(ctx, p)
	if err != nil {
		return domain.WritePlan{}, err
	}
	result, err := deps.Normalizer.Normalize(ctx, raw, p)
	if err != nil {
		return domain.WritePlan{}, err
	}
	existing, err := deps.Ledger.Read(ctx, p)
	if err != nil {
		return domain.WritePlan{}, err
	}
	return reconcile.Plan(p, result.Rows, existing), nil
}
