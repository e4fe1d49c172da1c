package burnindex

import (
	"io"

	"github.com/cockroachdb/errors"
)

// ErrKeyNotFound is returned by KVReader.Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KVReader is the read side of the host key/value store. Keys are opaque
// byte strings ordered lexicographically; there is no other ordering or
// secondary index available.
type KVReader interface {
	// Has reports whether key is present
	Has(key []byte) (bool, error)

	// Get returns a copy of the value stored under key, or ErrKeyNotFound
	Get(key []byte) ([]byte, error)

	// KeysWithPrefix returns up to maxCount keys sharing prefix in ascending
	// byte order. A maxCount <= 0 returns every matching key.
	KeysWithPrefix(prefix []byte, maxCount int) ([][]byte, error)

	// Iterator returns an ascending iterator over keys sharing prefix
	Iterator(prefix []byte) (Iterator, error)
}

// KVWriter is a KVReader that can also mutate the store. A KVWriter is only
// valid inside the KVStore.Update callback that produced it.
type KVWriter interface {
	KVReader

	// Set stores value under key, overwriting any previous value
	Set(key, value []byte) error

	// Delete removes key; deleting an absent key is not an error
	Delete(key []byte) error
}

// KVStore defines the interface that all storage engines must satisfy.
type KVStore interface {
	// View runs fn against a consistent read-only view of the store
	View(fn func(r KVReader) error) error

	// Update runs fn inside a transaction. Every write made through the
	// KVWriter becomes visible atomically when fn returns nil; on error or
	// panic none of them do.
	Update(fn func(w KVWriter) error) error

	// Name returns a human-readable name for this store implementation
	Name() string

	// Close releases all resources
	io.Closer
}

// Iterator defines the interface for iterating over key-value pairs
type Iterator interface {
	// Valid returns true if the iterator is positioned at a valid key-value pair
	Valid() bool

	// Next advances the iterator to the next key-value pair
	Next()

	// Key returns the current key (caller should not modify)
	Key() []byte

	// Value returns the current value (caller should not modify)
	Value() []byte

	// Close releases iterator resources
	io.Closer
}

// StoreFactory is a function that creates a new store instance
type StoreFactory func() (KVStore, error)

// collectKeys drains it into copied keys, stopping after maxCount keys when
// maxCount is positive. The iterator is always closed.
func collectKeys(it Iterator, maxCount int) ([][]byte, error) {
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		if maxCount > 0 && len(keys) >= maxCount {
			break
		}
		k := it.Key()
		cp := make([]byte, len(k))
		copy(cp, k)
		keys = append(keys, cp)
	}
	return keys, it.Close()
}

// prefixEnd returns the next key after all keys with the given prefix
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff bytes
}
