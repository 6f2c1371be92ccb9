package commands

import (
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/de-tools/royalty-ledger/pkg/services/workflow"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type SyncCmd struct {
	env    *Env
	period string
	dryRun bool
}

func NewSyncCmd(env *Env) *cobra.Command {
	sc := &SyncCmd{env: env}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch (or reuse) one month's report and reconcile it into the ledger",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.period, "period", "", "Period to sync as YYYY-MM (default is the previous month)")
	cmd.Flags().BoolVar(&sc.dryRun, "dry-run", false, "Compute the write plan without touching the ledger")

	return cmd
}

func (sc *SyncCmd) run(cmd *cobra.Command, _ []string) error {
	p, err := parseOptionalPeriod(sc.period)
	if err != nil {
		return err
	}
	return runSync(cmd, sc.env, p, sc.dryRun)
}

func runSync(cmd *cobra.Command, env *Env, p domain.Period, dryRun bool) error {
	ctx := cmd.Context()

	a, err := env.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close local database")
		}
	}()

	summary := a.Workflow.Sync(ctx, workflow.RunOptions{Period: p, DryRun: dryRun})
	if err := env.Reporter.Handle(summary); err != nil {
		return err
	}
	return summaryError(summary)
}

func summaryError(s domain.SyncSummary) error {
	switch {
	case s.Err != nil:
		return fmt.Errorf("sync %s failed: %w", s.Period, s.Err)
	case len(s.Failures) > 0:
		return fmt.Errorf("sync %s: %d ledger write(s) failed", s.Period, len(s.Failures))
	}
	return nil
}
