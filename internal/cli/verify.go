package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the ledger, address totals and leaderboard agree",
		Long: `Scan the whole store and check that the burn counter matches the number of
history entries, the totals match the history amounts, and every burner has
exactly one leaderboard entry at its current total.

Exits with status 1 on the first disagreement found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.burner.Verify(); err != nil {
				return WrapExitError(ExitFailure, "index is inconsistent", err)
			}
			return opts.formatter(cmd).Success(map[string]bool{"consistent": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Index is consistent")
			})
		},
	}
}
