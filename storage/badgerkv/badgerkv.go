// Package badgerkv is the embedded storage.KeyValueStore backed by BadgerDB.
//
// Badger serializes writers through transactions and serves readers from
// snapshots, which gives the decision cache concurrent readers with one
// logical writer per key.
package badgerkv

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"xdao.co/ovm/storage"
)

// Config holds configuration for a BadgerDB-backed store.
type Config struct {
	// Dir is the directory for BadgerDB files. Ignored when InMemory is true.
	Dir string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *zap.Logger

	// GCInterval is how often to run value log garbage collection. 0 disables.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: synchronous writes and a
// five minute value log GC at a 50% discard ratio.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// zapLogger adapts zap onto badger's Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Store implements storage.KeyValueStore on a badger database.
type Store struct {
	db  *badger.DB
	gc  *gcRunner
	log *zap.Logger
}

var _ storage.KeyValueStore = (*Store)(nil)

// Open opens (creating if needed) a badger database.
// Caller must call Close when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badgerkv: dir is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("badgerkv: create directory %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	log := cfg.Logger
	if log != nil {
		opts = opts.WithLogger(zapLogger{s: log.Sugar()})
	} else {
		log = zap.NewNop()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open: %w", err)
	}

	s := &Store{db: db, log: log}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 0.5
		}
		s.gc = startGC(db, cfg.GCInterval, ratio, log)
	}
	return s, nil
}

// OpenInMemory opens an in-memory store. Data is lost when closed.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection (if running) and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return storage.ErrNotFound
	case errors.Is(err, badger.ErrDBClosed):
		return storage.ErrClosed
	case errors.Is(err, badger.ErrEmptyKey):
		return storage.ErrEmptyKey
	default:
		return err
	}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, storage.ErrEmptyKey
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, storage.ErrEmptyKey
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

func (s *Store) Put(key, value []byte) error {
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	v := append([]byte(nil), value...)
	return mapErr(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append([]byte(nil), key...), v)
	}))
}

func (s *Store) Delete(key []byte) error {
	if len(key) == 0 {
		return storage.ErrEmptyKey
	}
	return mapErr(s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}))
}

// Batch applies ops in one transaction, so either every op lands or none does.
func (s *Store) Batch(ops []storage.Op) error {
	for _, op := range ops {
		if len(op.Key) == 0 {
			return storage.ErrEmptyKey
		}
	}
	return mapErr(s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			key := append([]byte(nil), op.Key...)
			switch op.Kind {
			case storage.OpPut:
				if err := txn.Set(key, append([]byte(nil), op.Value...)); err != nil {
					return err
				}
			case storage.OpDelete:
				if err := txn.Delete(key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("badgerkv: unknown op kind %d", op.Kind)
			}
		}
		return nil
	}))
}

func (s *Store) Iterate(prefix []byte, visit func(key, value []byte) bool) ([]storage.KeyValue, error) {
	var out []storage.KeyValue
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !visit(k, v) {
				return nil
			}
			out = append(out, storage.KeyValue{Key: k, Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
