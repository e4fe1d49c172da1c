package cli

import (
	"fmt"
	"io"

	"burnindex"

	"github.com/spf13/cobra"
)

// BurnOptions holds flags for the burn command.
type BurnOptions struct {
	*RootOptions
	From   string
	Amount string
	Units  uint64
}

type burnResult struct {
	SequenceID uint64 `json:"sequenceId"`
	Burner     string `json:"burner"`
	Amount     uint64 `json:"amount"`
	Total      uint64 `json:"addressTotal"`
}

// NewBurnCommand creates the burn command.
func NewBurnCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BurnOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "burn",
		Short: "Burn an amount on behalf of an address",
		Long: `Burn an amount on behalf of an address and print its sequence ID.

The amount is given either in display units (--amount 1.5) or in smallest
units (--units 1500000000).

Example:
  burnindex burn --from AU12abc... --amount 2.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurn(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "burner address (required)")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount in display units")
	cmd.Flags().Uint64Var(&opts.Units, "units", 0, "amount in smallest units")
	_ = cmd.MarkFlagRequired("from")
	cmd.MarkFlagsMutuallyExclusive("amount", "units")

	return cmd
}

func runBurn(opts *BurnOptions, cmd *cobra.Command) error {
	if len(opts.From) > burnindex.MaxIdentifierLen {
		return WrapExitError(ExitCommandError,
			fmt.Sprintf("--from is longer than %d bytes", burnindex.MaxIdentifierLen), nil)
	}
	amount := opts.Units
	if opts.Amount != "" {
		v, err := burnindex.ParseAmount(opts.Amount)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --amount", err)
		}
		amount = v
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireInitialized(s.burner); err != nil {
		return err
	}

	s.sink.Deposit(amount)
	seq, err := s.burner.Burn(cmd.Context(), burnindex.StaticCall{From: opts.From, Amount: amount})
	if err != nil {
		return err
	}
	total, err := s.burner.AddressBurned(opts.From)
	if err != nil {
		return err
	}

	res := burnResult{SequenceID: seq, Burner: opts.From, Amount: amount, Total: total}
	return opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Burn #%d: %s burned %s (total %s)\n",
			seq, opts.From, burnindex.FormatAmount(amount), burnindex.FormatAmount(total))
	})
}
