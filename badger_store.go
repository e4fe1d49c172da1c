package burnindex

import (
	"bytes"
	"os"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// BadgerStore implements KVStore using Badger database
type BadgerStore struct {
	db      *badger.DB
	tempDir string
}

// NewBadgerStore opens (or creates) a Badger store at path. An empty path
// creates a temporary directory that is removed on Close.
func NewBadgerStore(path string) (*BadgerStore, error) {
	tempDir := ""
	if strings.TrimSpace(path) == "" {
		dir, err := os.MkdirTemp("", "burnindex-badger-*")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create temp dir")
		}
		path, tempDir = dir, dir
	}

	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR).
		WithValueThreshold(1024).
		WithCompression(options.None).
		WithNumCompactors(max(2, runtime.NumCPU()/2)).
		WithCompactL0OnClose(true).
		WithSyncWrites(true)

	db, err := badger.Open(opts)
	if err != nil {
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
		return nil, errors.Wrapf(err, "failed to open badger at %q", path)
	}
	return &BadgerStore{db: db, tempDir: tempDir}, nil
}

// NewInMemoryBadgerStore opens a Badger store that keeps everything in memory.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory badger")
	}
	return &BadgerStore{db: db}, nil
}

func (bs *BadgerStore) Name() string {
	return "Badger"
}

func (bs *BadgerStore) View(fn func(r KVReader) error) error {
	return bs.db.View(func(txn *badger.Txn) error {
		return fn(badgerTxn{txn: txn})
	})
}

// Update maps onto a read-write badger transaction, which is discarded
// unless fn succeeds.
func (bs *BadgerStore) Update(fn func(w KVWriter) error) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return fn(badgerTxn{txn: txn})
	})
}

func (bs *BadgerStore) Close() error {
	err := bs.db.Close()
	if bs.tempDir != "" {
		os.RemoveAll(bs.tempDir)
	}
	return err
}

// badgerTxn implements KVWriter over a badger transaction. Writes on a
// read-only transaction fail with badger.ErrReadOnlyTxn.
type badgerTxn struct {
	txn *badger.Txn
}

func (t badgerTxn) Has(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "badger get failed")
	}
	return item.ValueCopy(nil)
}

func (t badgerTxn) Iterator(prefix []byte) (Iterator, error) {
	opts := badger.IteratorOptions{Prefix: prefix, PrefetchValues: false}
	iter := t.txn.NewIterator(opts)
	iter.Rewind()
	return &BadgerIterator{iter: iter, prefix: prefix}, nil
}

func (t badgerTxn) KeysWithPrefix(prefix []byte, maxCount int) ([][]byte, error) {
	it, err := t.Iterator(prefix)
	if err != nil {
		return nil, err
	}
	return collectKeys(it, maxCount)
}

func (t badgerTxn) Set(key, value []byte) error {
	// badger retains the slices until commit
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	return t.txn.Set(k, v)
}

func (t badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(append([]byte(nil), key...))
}

// BadgerIterator implements Iterator for Badger
type BadgerIterator struct {
	iter   *badger.Iterator
	prefix []byte
}

func (bi *BadgerIterator) Valid() bool {
	return bi.iter.Valid() && bytes.HasPrefix(bi.iter.Item().Key(), bi.prefix)
}

func (bi *BadgerIterator) Next() {
	bi.iter.Next()
}

func (bi *BadgerIterator) Key() []byte {
	if !bi.Valid() {
		return nil
	}
	return bi.iter.Item().Key()
}

func (bi *BadgerIterator) Value() []byte {
	if !bi.Valid() {
		return nil
	}
	var result []byte
	bi.iter.Item().Value(func(val []byte) error {
		result = make([]byte, len(val))
		copy(result, val)
		return nil
	})
	return result
}

func (bi *BadgerIterator) Close() error {
	bi.iter.Close()
	return nil
}
