package burnindex

import (
	"github.com/cockroachdb/errors"
)

// ledger owns the append-only history family and the two singleton scalars.
type ledger struct {
	rw KVWriter
}

// readScalar reads a singleton counter. An absent key reads as zero with
// ok=false.
func readScalar(r KVReader, key []byte) (v uint64, ok bool, err error) {
	raw, err := r.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err = DecodeUint64(raw)
	if err != nil {
		return 0, false, consistencyViolation("scalar %x holds %d bytes", key, len(raw))
	}
	return v, true, nil
}

// nextSequenceID increments BurnCounter and returns its previous value,
// which becomes the burn's immutable identifier. Call once per burn.
func (l ledger) nextSequenceID() (uint64, error) {
	counter, ok, err := readScalar(l.rw, counterKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotInitialized
	}
	if err := l.rw.Set(counterKey(), EncodeUint64(counter+1)); err != nil {
		return 0, errors.Wrap(err, "failed to store burn counter")
	}
	return counter, nil
}

// recordHistory writes the key-only history record for one burn. Writing the
// same arguments twice overwrites the same key.
func (l ledger) recordHistory(id uint64, burner string, amount uint64) error {
	if err := l.rw.Set(historyKey(id, burner, amount), nil); err != nil {
		return errors.Wrapf(err, "failed to record burn %d", id)
	}
	return nil
}

// addToTotal adds amount to TotalBurned and returns the new total.
func (l ledger) addToTotal(amount uint64) (uint64, error) {
	total, _, err := readScalar(l.rw, totalKey())
	if err != nil {
		return 0, err
	}
	total += amount
	if err := l.rw.Set(totalKey(), EncodeUint64(total)); err != nil {
		return 0, errors.Wrap(err, "failed to store total burned")
	}
	return total, nil
}
