package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/royalty-ledger/pkg/config"
	"github.com/de-tools/royalty-ledger/pkg/runtime/app"
	"github.com/de-tools/royalty-ledger/pkg/runtime/terminal/commands"
	"github.com/de-tools/royalty-ledger/pkg/runtime/terminal/export"
	"github.com/de-tools/royalty-ledger/pkg/services/vault"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// CLI represents the command-line interface
type CLI struct {
	env       *commands.Env
	logOutput io.Writer
	cfgPath   string
	rootCmd   *cobra.Command
}

// Options contain configuration for the CLI. Zero values select the real implementations.
type Options struct {
	Output      io.Writer
	LogOutput   io.Writer
	Input       io.Reader
	OpenApp     func(ctx context.Context, cfg *config.Config) (*app.App, error)
	OpenArchive func(ctx context.Context, cfg *config.Config) (*app.App, error)
	OpenVault   func(ctx context.Context, cfg *config.Config) (vault.Vault, error)
	ReadSecret  func() (string, error)
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.OpenApp == nil {
		opts.OpenApp = app.New
	}
	if opts.OpenArchive == nil {
		opts.OpenArchive = app.OpenArchive
	}
	if opts.OpenVault == nil {
		opts.OpenVault = app.NewVault
	}
	if opts.ReadSecret == nil {
		opts.ReadSecret = readPassword
	}

	cli := &CLI{
		env: &commands.Env{
			Reporter:    export.NewReporter(opts.Output),
			Output:      opts.Output,
			Input:       opts.Input,
			OpenApp:     opts.OpenApp,
			OpenArchive: opts.OpenArchive,
			OpenVault:   opts.OpenVault,
			ReadSecret:  opts.ReadSecret,
		},
		logOutput: opts.LogOutput,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) ExecuteContext(ctx context.Context, args ...string) error {
	if args != nil {
		cli.rootCmd.SetArgs(args)
	}
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "royalty-ledger",
		Short:             "Sync monthly royalty reports into the ledger",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.loadConfig,
	}
	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "",
		"Path to the configuration file (default is ./"+config.DefaultPath+" when present)")

	cmd.AddCommand(commands.NewSyncCmd(cli.env))
	cmd.AddCommand(commands.NewBackfillCmd(cli.env))
	cmd.AddCommand(commands.NewPlanCmd(cli.env))
	cmd.AddCommand(commands.NewArchiveCmd(cli.env))
	cmd.AddCommand(commands.NewCredentialsCmd(cli.env))
	cmd.AddCommand(commands.NewCatalogCmd(cli.env))

	return cmd
}

func (cli *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		return err
	}
	cli.env.Config = cfg

	logger := app.NewLogger(cfg.Log, cli.logOutput)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

func readPassword() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
