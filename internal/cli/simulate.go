package cli

import (
	"fmt"
	"io"
	"time"

	"burnindex"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Count       int
	Seed        int64
	Burners     int
	HotRatio    float64
	HotShare    float64
	Top         int
	ShowMetrics bool
}

type simulateResult struct {
	Burns       int                          `json:"burns"`
	Elapsed     string                       `json:"elapsed"`
	Stats       burnindex.Stats              `json:"stats"`
	Leaderboard []burnindex.LeaderboardEntry `json:"leaderboard"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}
	def := burnindex.DefaultBurnDistribution()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a generated burn workload and verify the index",
		Long: `Replay a deterministic burn workload against the store, then verify it.

An uninitialized store is initialized first. Combine with --in-memory to
benchmark a backend without touching disk.

Example:
  burnindex simulate --in-memory --backend badger --count 10000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 1000, "number of burns to generate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "workload seed")
	cmd.Flags().IntVar(&opts.Burners, "burners", def.Burners, "distinct burner addresses")
	cmd.Flags().Float64Var(&opts.HotRatio, "hot-ratio", def.HotRatio, "fraction of burners that are hot")
	cmd.Flags().Float64Var(&opts.HotShare, "hot-share", def.HotShare, "fraction of burns made by hot burners")
	cmd.Flags().IntVar(&opts.Top, "top", 5, "leaderboard entries to report")
	cmd.Flags().BoolVar(&opts.ShowMetrics, "metrics", false, "print burn metrics in Prometheus text format")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	m, err := burnindex.NewMetrics(reg)
	if err != nil {
		return err
	}
	s.burner.SetMetrics(m)

	ok, err := s.burner.IsInitialized()
	if err != nil {
		return err
	}
	if !ok {
		if err := s.burner.Initialize(cmd.Context()); err != nil {
			return err
		}
	}

	dist := burnindex.DefaultBurnDistribution()
	dist.Burners = opts.Burners
	dist.HotRatio = opts.HotRatio
	dist.HotShare = opts.HotShare
	calls := burnindex.GenerateBurnWorkload(opts.Count, opts.Seed, dist)

	start := time.Now()
	for i, call := range calls {
		s.sink.Deposit(call.Amount)
		if _, err := s.burner.Burn(cmd.Context(), call); err != nil {
			return errors.Wrapf(err, "burn %d of %d", i+1, len(calls))
		}
	}
	elapsed := time.Since(start)
	s.logger.Info("Simulation finished",
		zap.Int("burns", len(calls)),
		zap.Duration("elapsed", elapsed),
		zap.Uint64("sink_total", s.sink.Burned(s.cfg.SinkAddress)))

	if err := s.burner.Verify(); err != nil {
		return WrapExitError(ExitFailure, "index is inconsistent after simulation", err)
	}
	st, err := s.burner.Stats()
	if err != nil {
		return err
	}
	top, err := s.burner.Leaderboard(opts.Top)
	if err != nil {
		return err
	}

	res := simulateResult{Burns: len(calls), Elapsed: elapsed.String(), Stats: st, Leaderboard: top}
	if err := opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Replayed %d burns on %s in %s\n", len(calls), s.burner.Store().Name(), elapsed.Round(time.Millisecond))
		fmt.Fprintf(w, "Total burned: %s over %d burns\n", burnindex.FormatAmount(st.TotalBurned), st.BurnCount)
		for _, e := range top {
			fmt.Fprintf(w, "  #%d %s %s\n", e.Rank, e.Burner, burnindex.FormatAmount(e.Total))
		}
	}); err != nil {
		return err
	}

	if opts.ShowMetrics {
		return writeMetrics(reg, cmd.OutOrStdout())
	}
	return nil
}

func writeMetrics(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
