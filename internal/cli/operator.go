package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sungwon/newsletter/internal/auth"
	"github.com/sungwon/newsletter/internal/bootstrap"
)

// OperatorOptions holds flags for the operator create command.
type OperatorOptions struct {
	*RootOptions
	Username string
	Password string
}

// NewOperatorCommand creates the operator command.
func NewOperatorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperatorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operator accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an operator, or reset the password of an existing one",
		Long: `Create an operator account that can log in to the admin area.

If an operator with the same username already exists its password is
replaced. The password may also be supplied through the
NEWSLETTER_OPERATOR_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperatorCreate(cmd, opts)
		},
	}
	create.Flags().StringVar(&opts.Username, "username", "", "operator username (required)")
	create.Flags().StringVar(&opts.Password, "password", "", "operator password")
	_ = create.MarkFlagRequired("username")

	cmd.AddCommand(create)
	return cmd
}

func runOperatorCreate(cmd *cobra.Command, opts *OperatorOptions) error {
	password := opts.Password
	if password == "" {
		password = os.Getenv("NEWSLETTER_OPERATOR_PASSWORD")
	}
	if err := auth.ValidateNewPassword(password); err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return WrapExitError(ExitCommandError, "password must be between 12 and 128 characters", err)
		}
		return err
	}

	env, err := openEnvironment(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.db.Close()

	if err := bootstrap.SeedOperator(commandContext(cmd), env.db.Queries(), env.log, opts.Username, password); err != nil {
		return WrapExitError(ExitFailure, "failed to create operator", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"username": opts.Username})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "operator %q is ready\n", opts.Username)
	return nil
}
