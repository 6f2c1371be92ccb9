package commands

import (
	"github.com/spf13/cobra"
)

func NewPlanCmd(env *Env) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the ledger writes a sync would make, without making them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parseOptionalPeriod(period)
			if err != nil {
				return err
			}
			return runSync(cmd, env, p, true)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Period to plan as YYYY-MM (default is the previous month)")
	return cmd
}
