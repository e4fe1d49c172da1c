package burnindex

import (
	"github.com/cockroachdb/errors"
)

// rankedIndex keeps the per-burner totals and the leaderboard family in
// agreement. A burner's leaderboard key embeds its total, so changing the
// total means deleting the old key and inserting a new one.
type rankedIndex struct {
	rw KVWriter
}

// readAddressTotal returns the running total for burner; absent reads as zero.
func readAddressTotal(r KVReader, burner string) (total uint64, ok bool, err error) {
	return readScalar(r, addressTotalKey(burner))
}

// applyDelta adds delta to burner's total and re-keys its leaderboard entry.
// It returns the totals before and after.
func (x rankedIndex) applyDelta(burner string, delta uint64) (prev, next uint64, err error) {
	prev, seen, err := readAddressTotal(x.rw, burner)
	if err != nil {
		return 0, 0, err
	}
	if seen {
		oldKey := leaderboardKey(prev, burner)
		present, err := x.rw.Has(oldKey)
		if err != nil {
			return 0, 0, errors.Wrap(err, "failed to probe leaderboard entry")
		}
		if !present {
			return 0, 0, consistencyViolation(
				"burner %q has total %d but no matching leaderboard entry", burner, prev)
		}
		if err := x.rw.Delete(oldKey); err != nil {
			return 0, 0, errors.Wrap(err, "failed to remove stale leaderboard entry")
		}
	}

	next = prev + delta
	if err := x.rw.Set(addressTotalKey(burner), EncodeUint64(next)); err != nil {
		return 0, 0, errors.Wrapf(err, "failed to store total for %q", burner)
	}
	if err := x.rw.Set(leaderboardKey(next, burner), nil); err != nil {
		return 0, 0, errors.Wrapf(err, "failed to insert leaderboard entry for %q", burner)
	}
	return prev, next, nil
}
