package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Badger persists entities in an embedded badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database at dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger: nilSafe(logger).Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func (b *Badger) Get(_ context.Context, kind string, id []byte) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(kind, id))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", kind, err)
	}
	return out, true, nil
}

func (b *Badger) Put(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			if err := txn.Set(Key(rec.Kind, rec.ID), rec.Data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %d records: %w", len(records), err)
	}
	return nil
}

func nilSafe(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }
