package burnindex

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

// HistoryEntry is one burn as recorded in the history family.
type HistoryEntry struct {
	SequenceID uint64 `json:"sequenceId" yaml:"sequenceId"`
	Burner     string `json:"burner" yaml:"burner"`
	Amount     uint64 `json:"amount" yaml:"amount"`
}

// LeaderboardEntry is one burner's position on the leaderboard. Rank starts
// at 1.
type LeaderboardEntry struct {
	Rank   int    `json:"rank" yaml:"rank"`
	Burner string `json:"burner" yaml:"burner"`
	Total  uint64 `json:"total" yaml:"total"`
}

// Stats is the pair of ledger scalars read from one view.
type Stats struct {
	TotalBurned uint64 `json:"totalBurned" yaml:"totalBurned"`
	BurnCount   uint64 `json:"burnCount" yaml:"burnCount"`
}

// TotalBurned returns the sum of every amount ever burned.
func (b *Burner) TotalBurned() (uint64, error) {
	var total uint64
	err := b.store.View(func(r KVReader) error {
		var err error
		total, _, err = readScalar(r, totalKey())
		return err
	})
	return total, err
}

// BurnCount returns the number of burns executed so far.
func (b *Burner) BurnCount() (uint64, error) {
	var count uint64
	err := b.store.View(func(r KVReader) error {
		var err error
		count, _, err = readScalar(r, counterKey())
		return err
	})
	return count, err
}

// Stats reads TotalBurned and BurnCount from the same snapshot.
func (b *Burner) Stats() (Stats, error) {
	var s Stats
	err := b.store.View(func(r KVReader) error {
		var err error
		if s.TotalBurned, _, err = readScalar(r, totalKey()); err != nil {
			return err
		}
		s.BurnCount, _, err = readScalar(r, counterKey())
		return err
	})
	return s, err
}

// AddressBurned returns everything burner has burned, or 0 if it never has.
func (b *Burner) AddressBurned(burner string) (uint64, error) {
	if total, ok := b.cache.Get(burner); ok {
		return total, nil
	}
	var total uint64
	err := b.store.View(func(r KVReader) error {
		var err error
		total, _, err = readAddressTotal(r, burner)
		return err
	})
	return total, err
}

// RecentHistory returns up to limit burns, newest first.
func (b *Burner) RecentHistory(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return []HistoryEntry{}, nil
	}
	var out []HistoryEntry
	err := b.store.View(func(r KVReader) error {
		keys, err := r.KeysWithPrefix(historyTag.prefix(), limit)
		if err != nil {
			return errors.Wrap(err, "failed to list history")
		}
		out = make([]HistoryEntry, 0, len(keys))
		for _, k := range keys {
			e, err := decodeHistoryKey(k)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Leaderboard returns up to limit burners ranked by cumulative total,
// largest first. Equal totals rank the shorter identifier first, then by
// identifier bytes, since the length byte precedes the identifier in the key.
func (b *Burner) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return []LeaderboardEntry{}, nil
	}
	var out []LeaderboardEntry
	err := b.store.View(func(r KVReader) error {
		keys, err := r.KeysWithPrefix(leaderboardTag.prefix(), limit)
		if err != nil {
			return errors.Wrap(err, "failed to list leaderboard")
		}
		out = make([]LeaderboardEntry, 0, len(keys))
		for i, k := range keys {
			burner, total, err := decodeLeaderboardKey(k)
			if err != nil {
				return err
			}
			out = append(out, LeaderboardEntry{Rank: i + 1, Burner: burner, Total: total})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Verify scans the history, address total and leaderboard families and checks
// that the scalars and per-burner totals agree with them. It returns the first
// disagreement found, marked with ErrConsistency.
func (b *Burner) Verify() error {
	return b.store.View(func(r KVReader) error {
		return verifyIndex(r)
	})
}

func verifyIndex(r KVReader) error {
	counter, _, err := readScalar(r, counterKey())
	if err != nil {
		return err
	}
	total, _, err := readScalar(r, totalKey())
	if err != nil {
		return err
	}

	var (
		entries  uint64
		sum      uint64
		perOwner = make(map[string]uint64)
		lastSeq  uint64
	)
	it, err := r.Iterator(historyTag.prefix())
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		e, err := decodeHistoryKey(it.Key())
		if err != nil {
			it.Close()
			return err
		}
		if entries > 0 && e.SequenceID >= lastSeq {
			it.Close()
			return consistencyViolation("history out of order: %d after %d", e.SequenceID, lastSeq)
		}
		lastSeq = e.SequenceID
		entries++
		sum += e.Amount
		perOwner[e.Burner] += e.Amount
	}
	if err := it.Close(); err != nil {
		return errors.Wrap(err, "history scan failed")
	}

	if counter != entries {
		return consistencyViolation("burn counter %d but %d history entries", counter, entries)
	}
	if total != sum {
		return consistencyViolation("total burned %d but history sums to %d", total, sum)
	}

	stored := make(map[string]uint64, len(perOwner))
	it, err = r.Iterator(addressTotalTag.prefix())
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		kr := readKey(it.Key(), addressTotalTag)
		burner := kr.readIdentifier()
		if err := kr.err(); err != nil {
			it.Close()
			return err
		}
		v, err := DecodeUint64(it.Value())
		if err != nil {
			it.Close()
			return consistencyViolation("address total for %q holds %d bytes", burner, len(it.Value()))
		}
		stored[burner] = v
	}
	if err := it.Close(); err != nil {
		return errors.Wrap(err, "address total scan failed")
	}
	for burner, want := range perOwner {
		if got := stored[burner]; got != want {
			return consistencyViolation("address total for %q is %d, history sums to %d", burner, got, want)
		}
	}
	for burner := range stored {
		if _, ok := perOwner[burner]; !ok {
			return consistencyViolation("address total for %q has no history", burner)
		}
	}

	ranked := make(map[string]bool, len(stored))
	var prevKey []byte
	it, err = r.Iterator(leaderboardTag.prefix())
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		k := it.Key()
		burner, lbTotal, err := decodeLeaderboardKey(k)
		if err != nil {
			it.Close()
			return err
		}
		if prevKey != nil && bytes.Compare(prevKey, k) >= 0 {
			it.Close()
			return consistencyViolation("leaderboard keys out of order at %q", burner)
		}
		prevKey = append(prevKey[:0], k...)
		if ranked[burner] {
			it.Close()
			return consistencyViolation("burner %q has more than one leaderboard entry", burner)
		}
		ranked[burner] = true
		if want, ok := stored[burner]; !ok || want != lbTotal {
			it.Close()
			return consistencyViolation("leaderboard ranks %q at %d, address total is %d", burner, lbTotal, want)
		}
	}
	if err := it.Close(); err != nil {
		return errors.Wrap(err, "leaderboard scan failed")
	}
	for burner := range stored {
		if !ranked[burner] {
			return consistencyViolation("burner %q missing from leaderboard", burner)
		}
	}
	return nil
}
