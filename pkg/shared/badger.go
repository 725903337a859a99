package shared

import (
	"context"
	"errors"
	"log"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
)

// Badger is a Store implementation backed by BadgerDB v4. Multiple clients of
// the same process share change notifications through badger's subscription
// machinery; the on-disk form lets state survive restarts.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	InMemory bool

	// Logger sets the badger logger. If nil, a quiet wrapper around the
	// standard log package is used.
	Logger badger.Logger
}

// NewBadger creates a new BadgerDB-backed Store.
func NewBadger(bopts BadgerOptions) (*Badger, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("shared: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if bopts.Logger != nil {
		dbOpts = dbOpts.WithLogger(bopts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) Watch(ctx context.Context, key string) (<-chan Event, error) {
	ch := make(chan Event, 1)
	matches := []pb.Match{{Prefix: []byte(key)}}

	go func() {
		defer close(ch)
		err := b.db.Subscribe(ctx, func(list *badger.KVList) error {
			for _, kv := range list.Kv {
				if string(kv.Key) != key {
					continue
				}
				val := make([]byte, len(kv.Value))
				copy(val, kv.Value)
				push(ch, Event{Key: key, Value: val})
			}
			return nil
		}, matches)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[shared] watch %s ended: %v", key, err)
		}
	}()
	return ch, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// quietLogger wraps the standard log package for badger, suppressing debug
// and info level messages.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
