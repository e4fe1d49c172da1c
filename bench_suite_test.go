package burnindex

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"testing"
	"time"
)

// BenchConfig holds configuration for the backend comparison suite
type BenchConfig struct {
	NumBurns   int // burns replayed into each fresh store
	NumBurners int // distinct burner addresses
	QueryLimit int // limit passed to history and leaderboard queries
	NumQueries int // queries timed per run
	NumRuns    int // number of timing runs for statistics
}

// DefaultBenchConfig returns the suite defaults with BURNINDEX_BENCH_* overrides applied.
func DefaultBenchConfig() BenchConfig {
	config := BenchConfig{
		NumBurns:   5000,
		NumBurners: 200,
		QueryLimit: 50,
		NumQueries: 200,
		NumRuns:    5,
	}

	overrides := []struct {
		env string
		dst *int
	}{
		{"BURNINDEX_BENCH_BURNS", &config.NumBurns},
		{"BURNINDEX_BENCH_BURNERS", &config.NumBurners},
		{"BURNINDEX_BENCH_LIMIT", &config.QueryLimit},
		{"BURNINDEX_BENCH_QUERIES", &config.NumQueries},
		{"BURNINDEX_BENCH_RUNS", &config.NumRuns},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*o.dst = n
			}
		}
	}
	return config
}

// BenchSuite replays one generated workload against every backend.
type BenchSuite struct {
	config  BenchConfig
	calls   []StaticCall
	burners []string
	results *BenchResults
}

func NewBenchSuite(config BenchConfig) *BenchSuite {
	dist := DefaultBurnDistribution()
	dist.Burners = config.NumBurners
	calls := GenerateBurnWorkload(config.NumBurns, 12345, dist) // fixed seed for reproducibility

	burners := make([]string, 0, config.NumBurners)
	for b := range ExpectedTotals(calls) {
		burners = append(burners, b)
	}
	return &BenchSuite{
		config:  config,
		calls:   calls,
		burners: burners,
		results: NewBenchResults(),
	}
}

// RunAll executes every workload against every factory.
func (bs *BenchSuite) RunAll(tb testing.TB, factories map[string]StoreFactory) {
	fmt.Printf("Running burn index suite: burns=%d burners=%d limit=%d queries=%d runs=%d\n\n",
		bs.config.NumBurns, bs.config.NumBurners, bs.config.QueryLimit, bs.config.NumQueries, bs.config.NumRuns)

	for name, factory := range factories {
		fmt.Printf("Testing %s...\n", name)
		bs.runWorkload(tb, name, "Burn", factory, false, nil)
		bs.runWorkload(tb, name, "History", factory, true, func(b *Burner) {
			for i := 0; i < bs.config.NumQueries; i++ {
				if _, err := b.RecentHistory(bs.config.QueryLimit); err != nil {
					tb.Fatalf("RecentHistory failed: %v", err)
				}
			}
		})
		bs.runWorkload(tb, name, "Leaderboard", factory, true, func(b *Burner) {
			for i := 0; i < bs.config.NumQueries; i++ {
				if _, err := b.Leaderboard(bs.config.QueryLimit); err != nil {
					tb.Fatalf("Leaderboard failed: %v", err)
				}
			}
		})
		bs.runWorkload(tb, name, "AddressTotal", factory, true, func(b *Burner) {
			for _, burner := range bs.burners {
				if _, err := b.AddressBurned(burner); err != nil {
					tb.Fatalf("AddressBurned failed: %v", err)
				}
			}
		})
		bs.runWorkload(tb, name, "Verify", factory, true, func(b *Burner) {
			if err := b.Verify(); err != nil {
				tb.Fatalf("Verify failed: %v", err)
			}
		})
		fmt.Printf("  %s complete\n", name)
	}
}

// runWorkload times fn over NumRuns fresh stores. With populated set, the
// burns are replayed before timing starts; otherwise the replay is what gets
// timed.
func (bs *BenchSuite) runWorkload(tb testing.TB, backend, workload string, factory StoreFactory, populated bool, fn func(b *Burner)) {
	times := make([]time.Duration, 0, bs.config.NumRuns)
	allocs := make([]int64, 0, bs.config.NumRuns)
	bytes := make([]int64, 0, bs.config.NumRuns)

	for run := 0; run < bs.config.NumRuns; run++ {
		store, err := factory()
		if err != nil {
			tb.Fatalf("Failed to create %s store: %v", backend, err)
		}
		sink := NewHoldingSink()
		b := NewBurner(store, sink)
		if err := b.Initialize(context.Background()); err != nil {
			tb.Fatalf("Initialize failed: %v", err)
		}
		if populated {
			bs.populate(tb, b, sink)
		}

		var ms1, ms2 runtime.MemStats
		runtime.ReadMemStats(&ms1)
		start := time.Now()
		if populated {
			fn(b)
		} else {
			bs.populate(tb, b, sink)
		}
		elapsed := time.Since(start)
		runtime.ReadMemStats(&ms2)

		times = append(times, elapsed)
		allocs = append(allocs, int64(ms2.Mallocs-ms1.Mallocs))
		bytes = append(bytes, int64(ms2.TotalAlloc-ms1.TotalAlloc))
		store.Close()
	}

	minTime, medTime, maxTime := CalculateStats(times)
	bs.results.AddResult(BenchResult{
		Backend:     backend,
		Workload:    workload,
		TimeMin:     minTime,
		TimeMedian:  medTime,
		TimeMax:     maxTime,
		AllocsPerOp: CalculateMedianInt64(allocs),
		BytesPerOp:  CalculateMedianInt64(bytes),
	})
}

func (bs *BenchSuite) populate(tb testing.TB, b *Burner, sink *HoldingSink) {
	ctx := context.Background()
	for _, call := range bs.calls {
		sink.Deposit(call.Amount)
		if _, err := b.Burn(ctx, call); err != nil {
			tb.Fatalf("Burn failed: %v", err)
		}
	}
}

func (bs *BenchSuite) PrintResults(title string) {
	bs.results.PrintSummary(title)
}

// inMemoryFactories returns a fresh in-memory store factory per backend.
func inMemoryFactories() map[string]StoreFactory {
	return map[string]StoreFactory{
		"Pebble":  func() (KVStore, error) { return NewInMemoryPebbleStore() },
		"Badger":  func() (KVStore, error) { return NewInMemoryBadgerStore() },
		"LevelDB": func() (KVStore, error) { return NewInMemoryLevelDBStore() },
	}
}
