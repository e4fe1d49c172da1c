package burnindex

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/bloom"
	"github.com/cockroachdb/pebble/v2/sstable"
	"github.com/cockroachdb/pebble/v2/vfs"
)

// PebbleStore implements KVStore on a Pebble database. Writes go through an
// indexed batch so reads inside Update see the transaction's own writes.
type PebbleStore struct {
	db            *pebble.DB
	dataDir       string
	removeOnClose bool
	writeOpts     *pebble.WriteOptions
}

// NewPebbleStore opens (or creates) a Pebble store at path. An empty path
// creates a temporary directory that is removed on Close.
func NewPebbleStore(path string) (*PebbleStore, error) {
	createdTemp := false
	if strings.TrimSpace(path) == "" {
		dir, err := os.MkdirTemp("", "burnindex-pebble-*")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create temp dir")
		}
		path = dir
		createdTemp = true
	}
	ps, err := openPebble(path, createPebbleOptions(parsePebbleCacheMB()))
	if err != nil {
		if createdTemp {
			_ = os.RemoveAll(path)
		}
		return nil, err
	}
	ps.removeOnClose = createdTemp
	return ps, nil
}

// NewInMemoryPebbleStore opens a Pebble store backed by an in-memory filesystem.
func NewInMemoryPebbleStore() (*PebbleStore, error) {
	opts := createPebbleOptions(8)
	opts.FS = vfs.NewMem()
	return openPebble("", opts)
}

func openPebble(path string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(path, opts)
	// The DB holds its own reference to the block cache.
	opts.Cache.Unref()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pebble at %q", path)
	}
	return &PebbleStore{db: db, dataDir: path, writeOpts: getSyncOption()}, nil
}

func (ps *PebbleStore) Name() string {
	return "Pebble"
}

func (ps *PebbleStore) View(fn func(r KVReader) error) error {
	snap := ps.db.NewSnapshot()
	defer snap.Close()
	return fn(pebbleReader{src: snap})
}

func (ps *PebbleStore) Update(fn func(w KVWriter) error) error {
	batch := ps.db.NewIndexedBatch()
	defer func() { _ = batch.Close() }()
	if err := fn(pebbleWriter{pebbleReader: pebbleReader{src: batch}, batch: batch}); err != nil {
		return err
	}
	if err := batch.Commit(ps.writeOpts); err != nil {
		return errors.Wrap(err, "pebble commit failed")
	}
	return nil
}

func (ps *PebbleStore) Close() error {
	err := ps.db.Close()
	if ps.removeOnClose && ps.dataDir != "" {
		_ = os.RemoveAll(ps.dataDir)
	}
	return err
}

// pebbleSource is satisfied by both *pebble.Snapshot and an indexed *pebble.Batch.
type pebbleSource interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

type pebbleReader struct {
	src pebbleSource
}

func (r pebbleReader) Has(key []byte) (bool, error) {
	_, err := r.Get(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r pebbleReader) Get(key []byte) ([]byte, error) {
	val, closer, err := r.src.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "pebble get failed")
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (r pebbleReader) Iterator(prefix []byte) (Iterator, error) {
	opts := &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
		KeyTypes:   pebble.IterKeyTypePointsOnly,
	}
	if f := familyFilterFor(prefix); f != nil {
		opts.PointKeyFilters = []pebble.BlockPropertyFilter{f}
	}
	it, err := r.src.NewIter(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pebble iterator")
	}
	it.First()
	return &pebbleIterator{it: it}, nil
}

func (r pebbleReader) KeysWithPrefix(prefix []byte, maxCount int) ([][]byte, error) {
	it, err := r.Iterator(prefix)
	if err != nil {
		return nil, err
	}
	return collectKeys(it, maxCount)
}

type pebbleWriter struct {
	pebbleReader
	batch *pebble.Batch
}

func (w pebbleWriter) Set(key, value []byte) error {
	return w.batch.Set(key, value, nil)
}

func (w pebbleWriter) Delete(key []byte) error {
	return w.batch.Delete(key, nil)
}

// pebbleIterator implements Iterator for Pebble
type pebbleIterator struct {
	it *pebble.Iterator
}

func (pi *pebbleIterator) Valid() bool   { return pi.it.Valid() }
func (pi *pebbleIterator) Next()         { pi.it.Next() }
func (pi *pebbleIterator) Key() []byte   { return pi.it.Key() }
func (pi *pebbleIterator) Value() []byte { return pi.it.Value() }
func (pi *pebbleIterator) Close() error  { return pi.it.Close() }

// Pebble configuration helpers

// createPebbleOptions creates Pebble options tuned for many small, key-only
// index records scanned by prefix.
func createPebbleOptions(cacheSizeMB int) *pebble.Options {
	cache := pebble.NewCache(int64(cacheSizeMB) << 20)
	opts := &pebble.Options{
		DisableWAL:                  false,
		MemTableSize:                64 << 20,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
		MemTableStopWritesThreshold: 4,
		LBaseMaxBytes:               64 << 20,
		BytesPerSync:                1 << 20,
		WALBytesPerSync:             1 << 20,
		MaxOpenFiles:                1000,
		Cache:                       cache,
		FormatMajorVersion:          pebble.FormatNewest,
	}
	opts.BlockPropertyCollectors = append(opts.BlockPropertyCollectors, newFamilyBlockCollector)
	opts.EnsureDefaults()

	// Allow env overrides for bloom bits and block sizes
	bloomBits := 10
	if v := strings.TrimSpace(os.Getenv("PEBBLE_BLOOM_BITS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			bloomBits = n
		}
	}
	blockKB := 32
	if v := strings.TrimSpace(os.Getenv("PEBBLE_BLOCK_KB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			blockKB = n
		}
	}
	policy := bloom.FilterPolicy(bloomBits)
	for i := range opts.Levels {
		opts.Levels[i].FilterPolicy = policy
		opts.Levels[i].Compression = func() *sstable.CompressionProfile { return sstable.NoCompression }
		opts.Levels[i].BlockSize = blockKB << 10
		opts.Levels[i].IndexBlockSize = blockKB << 10
	}
	return opts
}

// parsePebbleCacheMB parses PEBBLE_CACHE_MB; default 64MB
func parsePebbleCacheMB() int {
	v := strings.TrimSpace(os.Getenv("PEBBLE_CACHE_MB"))
	if v == "" {
		return 64
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return 64
}

// isPebbleSyncEnabled checks if Pebble sync is enabled (default true; a burn is irreversible)
func isPebbleSyncEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PEBBLE_SYNC")))
	switch v {
	case "0", "false", "no", "n":
		return false
	default:
		return true
	}
}

// Sync option helper
func getSyncOption() *pebble.WriteOptions {
	if isPebbleSyncEnabled() {
		return pebble.Sync
	}
	return pebble.NoSync
}
