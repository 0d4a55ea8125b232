package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sungwon/newsletter/internal/migrations"
)

// MigrateResult is the JSON output of the migrate commands.
type MigrateResult struct {
	Applied  []string `json:"applied,omitempty"`
	Reverted string   `json:"reverted,omitempty"`
}

// NewMigrateCommand creates the migrate command and its up/down children.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.db.Close()

			applied, err := migrations.Up(commandContext(cmd), env.db.Pool)
			if err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), MigrateResult{Applied: applied})
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd, opts)
			if err != nil {
				return err
			}
			defer env.db.Close()

			reverted, err := migrations.Down(commandContext(cmd), env.db.Pool)
			if err != nil {
				return WrapExitError(ExitFailure, "revert failed", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), MigrateResult{Reverted: reverted})
			}
			if reverted == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", reverted)
			return nil
		},
	})

	return cmd
}
