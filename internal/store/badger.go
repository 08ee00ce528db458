package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// schemaVersion is bumped whenever the key layout changes. Opening a
// database checks the stored version and migrates forward; a database from
// a newer build is refused rather than silently mangled.
const schemaVersion = 1

var schemaKey = []byte("sys:schema")

// DB is the Badger-backed storage engine.
type DB struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ Store = (*DB)(nil)

// Open opens (creating if needed) the Badger database at path and runs
// schema initialization. Opening is idempotent: an already-initialized
// database passes through untouched.
func Open(path string, logger *slog.Logger) (*DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	d := &DB{db: db, logger: logger}

	if err := d.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("badger database opened", "path", path)
	}

	return d, nil
}

// migrate checks the stored schema version and brings it up to date.
func (d *DB) migrate() error {
	return d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(schemaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			if d.logger != nil {
				d.logger.Info("initializing database schema", "version", schemaVersion)
			}
			return txn.Set(schemaKey, []byte(strconv.Itoa(schemaVersion)))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var stored int
		err = item.Value(func(val []byte) error {
			v, parseErr := strconv.Atoi(string(val))
			if parseErr != nil {
				return fmt.Errorf("corrupt schema version %q: %w", val, parseErr)
			}
			stored = v
			return nil
		})
		if err != nil {
			return err
		}

		if stored > schemaVersion {
			return fmt.Errorf("%w: found v%d, supported v%d", ErrSchemaTooNew, stored, schemaVersion)
		}
		if stored < schemaVersion {
			// Stepwise migrations land here when v2 exists.
			if d.logger != nil {
				d.logger.Info("migrating database schema", "from", stored, "to", schemaVersion)
			}
			return txn.Set(schemaKey, []byte(strconv.Itoa(schemaVersion)))
		}
		return nil
	})
}

// Get returns the raw record, or ErrNotFound.
func (d *DB) Get(ctx context.Context, c Collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	var record []byte
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = txnGet(txn, c, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetAll streams every record in the collection in primary-key order.
func (d *DB) GetAll(ctx context.Context, c Collection) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if !c.Valid() {
			yield(nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c))
			return
		}

		_ = d.db.View(func(txn *badger.Txn) error {
			prefix := recordPrefix(c)
			defer releaseKey(prefix)

			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				// Check context cancellation
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				// Skip index entries, which share the collection prefix.
				key := it.Item().Key()
				if bytes.HasPrefix(key[len(prefix):], []byte("idx:")) {
					continue
				}

				record, err := it.Item().ValueCopy(nil)
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(record, nil) {
					return nil // Consumer stopped early
				}
			}
			return nil
		})
	}
}

// GetAllByIndex streams records matching an index key in index-key order.
// Entries pointing at records that no longer exist are skipped.
func (d *DB) GetAllByIndex(ctx context.Context, c Collection, idx Index, key string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if !c.Valid() {
			yield(nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c))
			return
		}
		if !c.HasIndex(idx) {
			yield(nil, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, idx, c))
			return
		}

		_ = d.db.View(func(txn *badger.Txn) error {
			prefix := indexPrefix(c, idx, key)
			defer releaseKey(prefix)

			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				// The entry value is the record id.
				idVal, err := it.Item().ValueCopy(nil)
				if err != nil {
					yield(nil, err)
					return err
				}

				record, err := txnGet(txn, c, string(idVal))
				if errors.Is(err, ErrNotFound) {
					continue // dangling entry
				}
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(record, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// Put writes a record and refreshes its index entries in one transaction.
func (d *DB) Put(ctx context.Context, c Collection, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txnPut(txn, c, record)
	})
}

// Delete removes a record and its index entries. Deleting an absent record
// is a no-op.
func (d *DB) Delete(ctx context.Context, c Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txnDelete(txn, c, id)
	})
}

// Clear removes every record and index entry in the collection.
func (d *DB) Clear(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txnClear(txn, c)
	})
}

// Update runs fn inside a single read-write transaction.
func (d *DB) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

// Close closes the underlying database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger db: %w", err)
	}
	if d.logger != nil {
		d.logger.Info("badger database closed")
	}
	return nil
}
