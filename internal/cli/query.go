package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"burnindex"

	"github.com/spf13/cobra"
)

type statsResult struct {
	burnindex.Stats
	TotalDisplay string `json:"totalBurnedDisplay"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show total burned and number of burns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.burner.Stats()
			if err != nil {
				return err
			}
			res := statsResult{Stats: st, TotalDisplay: burnindex.FormatAmount(st.TotalBurned)}
			return opts.formatter(cmd).Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Total burned: %s (%d units)\n", res.TotalDisplay, st.TotalBurned)
				fmt.Fprintf(w, "Burns:        %d\n", st.BurnCount)
			})
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent burns, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.burner.RecentHistory(limit)
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Success(entries, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tBURNER\tAMOUNT")
				for _, e := range entries {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", e.SequenceID, e.Burner, burnindex.FormatAmount(e.Amount))
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of burns to list")
	return cmd
}

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "List burners by cumulative amount burned, largest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.burner.Leaderboard(limit)
			if err != nil {
				return err
			}
			return opts.formatter(cmd).Success(entries, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tBURNER\tTOTAL")
				for _, e := range entries {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Rank, e.Burner, burnindex.FormatAmount(e.Total))
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of burners to list")
	return cmd
}

// NewAddressCommand creates the address command.
func NewAddressCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "address <burner>",
		Short: "Show the cumulative amount one address has burned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args[0]) > burnindex.MaxIdentifierLen {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("burner is longer than %d bytes", burnindex.MaxIdentifierLen), nil)
			}
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			total, err := s.burner.AddressBurned(args[0])
			if err != nil {
				return err
			}
			res := map[string]interface{}{"burner": args[0], "total": total}
			return opts.formatter(cmd).Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "%s burned %s (%d units)\n", args[0], burnindex.FormatAmount(total), total)
			})
		},
	}
}
