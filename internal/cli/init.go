package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the burn counter and total in a new store",
		Long: `Create the burn counter and total burned scalars, both at zero.

Initializing a store twice is rejected and leaves it unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.burner.Initialize(cmd.Context()); err != nil {
				return err
			}
			return opts.formatter(cmd).Success(map[string]string{"store": s.burner.Store().Name()}, func(w io.Writer) {
				fmt.Fprintf(w, "Initialized %s store\n", s.burner.Store().Name())
			})
		},
	}
}
