package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/spf13/cobra"
)

type CredentialsCmd struct {
	env      *Env
	username string
}

func NewCredentialsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the portal login stored in the vault",
	}

	cc := &CredentialsCmd{env: env}
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the portal username and password",
		Args:  cobra.NoArgs,
		RunE:  cc.set,
	}
	set.Flags().StringVar(&cc.username, "username", "", "Portal login e-mail (prompted when omitted)")
	cmd.AddCommand(set)

	return cmd
}

func (cc *CredentialsCmd) set(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	username := strings.TrimSpace(cc.username)
	if username == "" {
		fmt.Fprint(cc.env.Output, "Username: ")
		line, err := bufio.NewReader(cc.env.Input).ReadString('\n')
		if err != nil && line == "" {
			return domain.NewInvalidInputError("no username given", err)
		}
		username = strings.TrimSpace(line)
	}

	fmt.Fprint(cc.env.Output, "Password: ")
	secret, err := cc.env.ReadSecret()
	fmt.Fprintln(cc.env.Output)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	v, err := cc.env.OpenVault(ctx, cc.env.Config)
	if err != nil {
		return err
	}
	if err := v.Save(ctx, domain.Credentials{Username: username, Secret: secret}); err != nil {
		return err
	}

	fmt.Fprintf(cc.env.Output, "Credentials for %s stored.\n", username)
	return nil
}
