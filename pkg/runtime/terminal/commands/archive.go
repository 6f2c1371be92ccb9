package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewArchiveCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the local report archive",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := env.OpenArchive(ctx, env.Config)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close local database")
				}
			}()

			records, err := a.Archive.List(ctx)
			if err != nil {
				return err
			}
			return env.Reporter.Archive(records)
		},
	})
	return cmd
}
