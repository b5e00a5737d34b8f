package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the access token",
		Example: `  # Keep the token for later commands
  export BOOKDESK_TOKEN=$(bookdesk login --email ada@example.com --password secret)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := flags.deps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.Auth.Login(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			token, _ := deps.Session.Token()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := flags.deps(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.Auth.Register(cmd.Context(), name, email, password); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			token, _ := deps.Session.Token()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	for _, f := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
