package burnindex

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore implements KVStore using LevelDB. Update runs inside a LevelDB
// transaction, which blocks other writers until it is committed or discarded.
type LevelDBStore struct {
	db      *leveldb.DB
	tempDir string
}

// NewLevelDBStore opens (or creates) a LevelDB store at path. An empty path
// creates a temporary directory that is removed on Close.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	tempDir := ""
	if strings.TrimSpace(path) == "" {
		dir, err := os.MkdirTemp("", "burnindex-leveldb-*")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create temp dir")
		}
		path, tempDir = dir, dir
	}
	db, err := leveldb.OpenFile(path, &opt.Options{NoSync: false})
	if err != nil {
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
		return nil, errors.Wrapf(err, "failed to open leveldb at %q", path)
	}
	return &LevelDBStore{db: db, tempDir: tempDir}, nil
}

// NewInMemoryLevelDBStore opens a LevelDB store over in-memory storage.
func NewInMemoryLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open in-memory leveldb")
	}
	return &LevelDBStore{db: db}, nil
}

func (ls *LevelDBStore) Name() string {
	return "LevelDB"
}

func (ls *LevelDBStore) View(fn func(r KVReader) error) error {
	snap, err := ls.db.GetSnapshot()
	if err != nil {
		return errors.Wrap(err, "failed to get leveldb snapshot")
	}
	defer snap.Release()
	return fn(levelDBReader{src: snap})
}

func (ls *LevelDBStore) Update(fn func(w KVWriter) error) error {
	tr, err := ls.db.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, "failed to open leveldb transaction")
	}
	committed := false
	defer func() {
		if !committed {
			tr.Discard()
		}
	}()
	if err := fn(levelDBWriter{levelDBReader: levelDBReader{src: tr}, tr: tr}); err != nil {
		return err
	}
	if err := tr.Commit(); err != nil {
		return errors.Wrap(err, "leveldb commit failed")
	}
	committed = true
	return nil
}

func (ls *LevelDBStore) Close() error {
	err := ls.db.Close()
	if ls.tempDir != "" {
		os.RemoveAll(ls.tempDir)
	}
	return err
}

// levelDBSource is satisfied by *leveldb.Snapshot and *leveldb.Transaction.
type levelDBSource interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type levelDBReader struct {
	src levelDBSource
}

func (r levelDBReader) Has(key []byte) (bool, error) {
	return r.src.Has(key, nil)
}

func (r levelDBReader) Get(key []byte) ([]byte, error) {
	val, err := r.src.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "leveldb get failed")
	}
	return val, nil
}

func (r levelDBReader) Iterator(prefix []byte) (Iterator, error) {
	it := r.src.NewIterator(util.BytesPrefix(prefix), nil)
	it.First()
	return &levelDBIterator{it: it}, nil
}

func (r levelDBReader) KeysWithPrefix(prefix []byte, maxCount int) ([][]byte, error) {
	it, err := r.Iterator(prefix)
	if err != nil {
		return nil, err
	}
	return collectKeys(it, maxCount)
}

type levelDBWriter struct {
	levelDBReader
	tr *leveldb.Transaction
}

func (w levelDBWriter) Set(key, value []byte) error {
	return w.tr.Put(key, value, nil)
}

func (w levelDBWriter) Delete(key []byte) error {
	return w.tr.Delete(key, nil)
}

// levelDBIterator implements Iterator for LevelDB
type levelDBIterator struct {
	it iterator.Iterator
}

func (li *levelDBIterator) Valid() bool   { return li.it.Valid() }
func (li *levelDBIterator) Next()         { li.it.Next() }
func (li *levelDBIterator) Key() []byte   { return li.it.Key() }
func (li *levelDBIterator) Value() []byte { return li.it.Value() }

func (li *levelDBIterator) Close() error {
	err := li.it.Error()
	li.it.Release()
	return err
}
