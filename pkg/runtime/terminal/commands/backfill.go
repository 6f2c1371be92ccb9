package commands

import (
	"fmt"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type BackfillCmd struct {
	env    *Env
	from   string
	to     string
	dryRun bool
}

func NewBackfillCmd(env *Env) *cobra.Command {
	bc := &BackfillCmd{env: env}
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Sync every month in a range, oldest first",
		Args:  cobra.NoArgs,
		RunE:  bc.run,
	}

	cmd.Flags().StringVar(&bc.from, "from", "", "First period as YYYY-MM")
	cmd.Flags().StringVar(&bc.to, "to", "", "Last period as YYYY-MM")
	cmd.Flags().BoolVar(&bc.dryRun, "dry-run", false, "Compute write plans without touching the ledger")

	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func (bc *BackfillCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, err := domain.ParsePeriod(bc.from)
	if err != nil {
		return err
	}
	to, err := domain.ParsePeriod(bc.to)
	if err != nil {
		return err
	}

	a, err := bc.env.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close local database")
		}
	}()

	summaries, runErr := a.Workflow.Backfill(ctx, from, to, bc.dryRun)
	failed := 0
	for _, s := range summaries {
		if err := bc.env.Reporter.Handle(s); err != nil {
			return err
		}
		if summaryError(s) != nil {
			failed++
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("backfill %s..%s: %d of %d period(s) failed", from, to, failed, len(summaries))
	}
	return nil
}
