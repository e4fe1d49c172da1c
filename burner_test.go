package burnindex

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newBurnerOn initializes a Burner over store with a HoldingSink.
func newBurnerOn(tb testing.TB, store KVStore) (*Burner, *HoldingSink) {
	tb.Helper()
	sink := NewHoldingSink()
	b := NewBurner(store, sink)
	if err := b.Initialize(testContext()); err != nil {
		tb.Fatalf("Initialize failed: %v", err)
	}
	return b, sink
}

// burn deposits amount then burns it as from.
func burn(t *testing.T, b *Burner, sink *HoldingSink, from string, amount uint64) uint64 {
	t.Helper()
	sink.Deposit(amount)
	seq, err := b.Burn(testContext(), StaticCall{From: from, Amount: amount})
	require.NoError(t, err)
	return seq
}

// snapshot captures every externally visible value for before/after comparisons.
type snapshot struct {
	stats       Stats
	history     []HistoryEntry
	leaderboard []LeaderboardEntry
	totals      map[string]uint64
}

func takeSnapshot(t *testing.T, b *Burner, burners ...string) snapshot {
	t.Helper()
	var s snapshot
	var err error
	s.stats, err = b.Stats()
	require.NoError(t, err)
	s.history, err = b.RecentHistory(1000)
	require.NoError(t, err)
	s.leaderboard, err = b.Leaderboard(1000)
	require.NoError(t, err)
	s.totals = make(map[string]uint64)
	for _, id := range burners {
		s.totals[id], err = b.AddressBurned(id)
		require.NoError(t, err)
	}
	return s
}

func TestBurnScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)

		// first burn by A
		require.Equal(t, uint64(0), burn(t, b, sink, "A", 1_000_000_000))
		total, err := b.TotalBurned()
		require.NoError(t, err)
		require.Equal(t, uint64(1_000_000_000), total)
		count, err := b.BurnCount()
		require.NoError(t, err)
		require.Equal(t, uint64(1), count)
		addr, err := b.AddressBurned("A")
		require.NoError(t, err)
		require.Equal(t, uint64(1_000_000_000), addr)
		lb, err := b.Leaderboard(10)
		require.NoError(t, err)
		require.Equal(t, []LeaderboardEntry{{Rank: 1, Burner: "A", Total: 1_000_000_000}}, lb)

		// A burns again; the old leaderboard key goes away
		require.Equal(t, uint64(1), burn(t, b, sink, "A", 500_000_000))
		total, err = b.TotalBurned()
		require.NoError(t, err)
		require.Equal(t, uint64(1_500_000_000), total)
		addr, err = b.AddressBurned("A")
		require.NoError(t, err)
		require.Equal(t, uint64(1_500_000_000), addr)
		require.NoError(t, store.View(func(r KVReader) error {
			ok, err := r.Has(leaderboardKey(1_000_000_000, "A"))
			require.NoError(t, err)
			require.False(t, ok)
			return nil
		}))
		lb, err = b.Leaderboard(10)
		require.NoError(t, err)
		require.Equal(t, []LeaderboardEntry{{Rank: 1, Burner: "A", Total: 1_500_000_000}}, lb)

		// B overtakes A
		require.Equal(t, uint64(2), burn(t, b, sink, "B", 2_000_000_000))
		lb, err = b.Leaderboard(10)
		require.NoError(t, err)
		require.Equal(t, []LeaderboardEntry{
			{Rank: 1, Burner: "B", Total: 2_000_000_000},
			{Rank: 2, Burner: "A", Total: 1_500_000_000},
		}, lb)

		// raw per-burn amounts, newest first
		hist, err := b.RecentHistory(2)
		require.NoError(t, err)
		require.Equal(t, []HistoryEntry{
			{SequenceID: 2, Burner: "B", Amount: 2_000_000_000},
			{SequenceID: 1, Burner: "A", Amount: 500_000_000},
		}, hist)

		// zero amount is rejected without touching anything
		before := takeSnapshot(t, b, "A", "B")
		_, err = b.Burn(testContext(), StaticCall{From: "A", Amount: 0})
		require.True(t, errors.Is(err, ErrZeroAmount))
		require.Equal(t, before, takeSnapshot(t, b, "A", "B"))

		require.Equal(t, uint64(3_500_000_000), sink.Burned(DefaultSinkAddress))
		require.Zero(t, sink.Balance())
		require.NoError(t, b.Verify())
	})
}

func TestBurnWorkloadProperties(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)
		dist := DefaultBurnDistribution()
		dist.Burners = 12
		calls := GenerateBurnWorkload(400, 7, dist)
		expected := make(map[string]uint64)

		var lastCount, lastTotal uint64
		for i, call := range calls {
			prevTotal, err := b.AddressBurned(call.From)
			require.NoError(t, err)

			seq := burn(t, b, sink, call.From, call.Amount)
			require.Equal(t, uint64(i), seq)
			expected[call.From] += call.Amount

			st, err := b.Stats()
			require.NoError(t, err)
			require.Equal(t, lastCount+1, st.BurnCount)
			require.Equal(t, lastTotal+call.Amount, st.TotalBurned)
			lastCount, lastTotal = st.BurnCount, st.TotalBurned

			// the entry keyed on the pre-burn total is gone
			if prevTotal > 0 {
				require.NoError(t, store.View(func(r KVReader) error {
					ok, err := r.Has(leaderboardKey(prevTotal, call.From))
					require.NoError(t, err)
					require.False(t, ok)
					return nil
				}))
			}
		}

		require.Equal(t, SumAmounts(calls), lastTotal)
		for who, want := range expected {
			got, err := b.AddressBurned(who)
			require.NoError(t, err)
			require.Equal(t, want, got, who)
		}

		hist, err := b.RecentHistory(len(calls) + 10)
		require.NoError(t, err)
		require.Len(t, hist, len(calls))
		var sum uint64
		for i, e := range hist {
			if i > 0 {
				require.Less(t, e.SequenceID, hist[i-1].SequenceID)
			}
			sum += e.Amount
		}
		require.Equal(t, lastTotal, sum)

		lb, err := b.Leaderboard(100)
		require.NoError(t, err)
		require.Len(t, lb, len(expected))
		seen := make(map[string]bool)
		for i, e := range lb {
			require.Equal(t, i+1, e.Rank)
			require.False(t, seen[e.Burner], "duplicate leaderboard entry for %s", e.Burner)
			seen[e.Burner] = true
			require.Equal(t, expected[e.Burner], e.Total)
			if i > 0 {
				require.LessOrEqual(t, e.Total, lb[i-1].Total)
			}
		}

		require.NoError(t, b.Verify())
	})
}

func TestQueryLimits(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)
		for i, who := range []string{"A", "B", "C", "D"} {
			burn(t, b, sink, who, uint64(i+1)*100)
		}

		for _, limit := range []int{0, -1} {
			hist, err := b.RecentHistory(limit)
			require.NoError(t, err)
			require.Empty(t, hist)
			lb, err := b.Leaderboard(limit)
			require.NoError(t, err)
			require.Empty(t, lb)
		}

		lb, err := b.Leaderboard(2)
		require.NoError(t, err)
		require.Equal(t, []LeaderboardEntry{{1, "D", 400}, {2, "C", 300}}, lb)
		hist, err := b.RecentHistory(1)
		require.NoError(t, err)
		require.Equal(t, []HistoryEntry{{3, "D", 400}}, hist)
	})
}

func TestQueriesOnEmptyStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b := NewBurner(store, NewHoldingSink())

		st, err := b.Stats()
		require.NoError(t, err)
		require.Equal(t, Stats{}, st)
		addr, err := b.AddressBurned("nobody")
		require.NoError(t, err)
		require.Zero(t, addr)
		hist, err := b.RecentHistory(10)
		require.NoError(t, err)
		require.Empty(t, hist)
		require.NoError(t, b.Verify())
	})
}

func TestInitializeTwice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)
		burn(t, b, sink, "A", 10)

		err := b.Initialize(testContext())
		require.True(t, errors.Is(err, ErrAlreadyInitialized))

		st, err := b.Stats()
		require.NoError(t, err)
		require.Equal(t, Stats{TotalBurned: 10, BurnCount: 1}, st)
	})
}

func TestBurnBeforeInitialize(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		sink := NewHoldingSink()
		sink.Deposit(10)
		b := NewBurner(store, sink)

		ok, err := b.IsInitialized()
		require.NoError(t, err)
		require.False(t, ok)

		_, err = b.Burn(testContext(), StaticCall{From: "A", Amount: 10})
		require.True(t, errors.Is(err, ErrNotInitialized))
		require.Equal(t, uint64(10), sink.Balance())

		keys := 0
		require.NoError(t, store.View(func(r KVReader) error {
			for tag := burnCounterTag; tag <= leaderboardTag; tag++ {
				ks, err := r.KeysWithPrefix(tag.prefix(), 0)
				require.NoError(t, err)
				keys += len(ks)
			}
			return nil
		}))
		require.Zero(t, keys)
	})
}

func TestBurnRollsBackWhenSinkFails(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		ctrl := gomock.NewController(t)
		sink := NewMockValueSink(ctrl)
		b := NewBurner(store, sink)
		b.SetSinkAddress("AU1sink")
		require.NoError(t, b.Initialize(testContext()))

		sink.EXPECT().TransferValue(gomock.Any(), uint64(700), "AU1sink").Return(nil)
		seq, err := b.Burn(testContext(), StaticCall{From: "A", Amount: 700})
		require.NoError(t, err)
		require.Equal(t, uint64(0), seq)

		before := takeSnapshot(t, b, "A")
		transferErr := errors.New("sink unavailable")
		sink.EXPECT().TransferValue(gomock.Any(), uint64(300), "AU1sink").Return(transferErr)
		_, err = b.Burn(testContext(), StaticCall{From: "A", Amount: 300})
		require.Error(t, err)
		require.True(t, errors.Is(err, transferErr))
		require.Equal(t, before, takeSnapshot(t, b, "A"))

		// the next burn reuses the sequence ID the failed one never committed
		sink.EXPECT().TransferValue(gomock.Any(), uint64(300), "AU1sink").Return(nil)
		seq, err = b.Burn(testContext(), StaticCall{From: "A", Amount: 300})
		require.NoError(t, err)
		require.Equal(t, uint64(1), seq)
		require.NoError(t, b.Verify())
	})
}

func TestBurnInsufficientBalance(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)
		sink.Deposit(500)

		_, err := b.Burn(testContext(), StaticCall{From: "A", Amount: 1000})
		require.True(t, errors.Is(err, ErrInsufficientBalance))
		require.Equal(t, uint64(500), sink.Balance())

		st, err := b.Stats()
		require.NoError(t, err)
		require.Equal(t, Stats{}, st)
		lb, err := b.Leaderboard(10)
		require.NoError(t, err)
		require.Empty(t, lb)
	})
}

func TestBurnDetectsMissingLeaderboardEntry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)
		burn(t, b, sink, "A", 100)
		burn(t, b, sink, "B", 50)

		require.NoError(t, store.Update(func(w KVWriter) error {
			return w.Delete(leaderboardKey(100, "A"))
		}))
		require.True(t, errors.Is(b.Verify(), ErrConsistency))

		before := takeSnapshot(t, b, "A", "B")
		sink.Deposit(25)
		_, err := b.Burn(testContext(), StaticCall{From: "A", Amount: 25})
		require.True(t, errors.Is(err, ErrConsistency))
		require.True(t, errors.IsAssertionFailure(err))
		require.Equal(t, before, takeSnapshot(t, b, "A", "B"))

		// other burners are unaffected
		burn(t, b, sink, "B", 25)
	})
}

func TestVerifyDetectsCorruption(t *testing.T) {
	cases := map[string]func(w KVWriter) error{
		"counter drift": func(w KVWriter) error {
			return w.Set(counterKey(), EncodeUint64(5))
		},
		"total drift": func(w KVWriter) error {
			return w.Set(totalKey(), EncodeUint64(1))
		},
		"stale leaderboard entry": func(w KVWriter) error {
			return w.Set(leaderboardKey(10, "A"), nil)
		},
		"address total drift": func(w KVWriter) error {
			return w.Set(addressTotalKey("B"), EncodeUint64(1))
		},
		"malformed history key": func(w KVWriter) error {
			return w.Set([]byte{byte(historyTag), 0x01}, nil)
		},
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			store, err := NewInMemoryPebbleStore()
			require.NoError(t, err)
			defer store.Close()
			b, sink := newBurnerOn(t, store)
			burn(t, b, sink, "A", 10)
			burn(t, b, sink, "A", 20)
			burn(t, b, sink, "B", 5)
			require.NoError(t, b.Verify())

			require.NoError(t, store.Update(corrupt))
			err = b.Verify()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrConsistency) || errors.Is(err, ErrMalformedKey), "%v", err)
		})
	}
}

func TestConcurrentBurnsAreSerialized(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store KVStore) {
		b, sink := newBurnerOn(t, store)
		const workers, perWorker = 8, 25
		sink.Deposit(workers * perWorker * 3)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seqs []uint64
		)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				from := string(rune('A' + w%3))
				for i := 0; i < perWorker; i++ {
					seq, err := b.Burn(context.Background(), StaticCall{From: from, Amount: 3})
					if err != nil {
						t.Errorf("burn failed: %v", err)
						return
					}
					mu.Lock()
					seqs = append(seqs, seq)
					mu.Unlock()
				}
			}(w)
		}
		wg.Wait()

		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
		require.Len(t, seqs, workers*perWorker)
		for i, s := range seqs {
			require.Equal(t, uint64(i), s)
		}
		require.NoError(t, b.Verify())
	})
}

func TestBurnCanceledContext(t *testing.T) {
	store, err := NewInMemoryLevelDBStore()
	require.NoError(t, err)
	defer store.Close()
	b, sink := newBurnerOn(t, store)
	sink.Deposit(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Burn(ctx, StaticCall{From: "A", Amount: 10})
	require.True(t, errors.Is(err, context.Canceled))

	count, err := b.BurnCount()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestBurnLogsEvent(t *testing.T) {
	store, err := NewInMemoryBadgerStore()
	require.NoError(t, err)
	defer store.Close()
	b, sink := newBurnerOn(t, store)

	core, logs := observer.New(zapcore.InfoLevel)
	b.SetLogger(zap.New(core))
	burn(t, b, sink, "AU1burner", 1_500_000_000)

	entries := logs.FilterMessage("Burn").All()
	require.Len(t, entries, 1)
	event, ok := entries[0].ContextMap()["event"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, uint64(0), event["sequence_id"])
	require.Equal(t, "AU1burner", event["burner"])
	require.Equal(t, uint64(1_500_000_000), event["amount"])
	require.Equal(t, "1.5", event["amount_display"])

	_, err = b.Burn(testContext(), StaticCall{From: "AU1burner", Amount: 5})
	require.Error(t, err)
	require.Equal(t, 1, logs.FilterMessage("Burn aborted").Len())
}

func TestAddressBurnedUsesCache(t *testing.T) {
	store, err := NewInMemoryPebbleStore()
	require.NoError(t, err)
	defer store.Close()
	b, sink := newBurnerOn(t, store)
	cache := NewTotalCache(4)
	b.SetCache(cache)

	burn(t, b, sink, "A", 10)
	burn(t, b, sink, "A", 15)
	ver, total, ok := cache.GetWithVersion("A")
	require.True(t, ok)
	require.Equal(t, uint64(1), ver)
	require.Equal(t, uint64(25), total)

	got, err := b.AddressBurned("A")
	require.NoError(t, err)
	require.Equal(t, uint64(25), got)

	// a failed burn publishes nothing
	_, err = b.Burn(testContext(), StaticCall{From: "A", Amount: 99})
	require.Error(t, err)
	_, total, _ = cache.GetWithVersion("A")
	require.Equal(t, uint64(25), total)
}
