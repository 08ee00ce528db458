// Package sqlite provides a SQLite-backed implementation of the storage
// engine. It stores records the same way the Badger backend does, as raw
// JSON keyed by collection and id, with denormalized columns standing in
// for the key-prefix indexes.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/novelcompanionapp/companion-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store provides SQLite-backed persistence for the Novel Companion server.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool to 1 writer (SQLite limitation).
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	// Run schema migration.
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &Store{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("sqlite database opened", "path", path)
	}

	return s, nil
}

// migrate checks the stored schema version and brings it up to date.
func (s *Store) migrate() error {
	var stored int
	err := s.db.QueryRow(`SELECT version FROM schema_info LIMIT 1`).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if stored > schemaVersion {
		return fmt.Errorf("%w: found v%d, supported v%d", store.ErrSchemaTooNew, stored, schemaVersion)
	}
	if stored < schemaVersion {
		if _, err := s.db.Exec(`UPDATE schema_info SET version = ?`, schemaVersion); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

// Get returns the raw record, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, c store.Collection, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return getRecord(ctx, s.db, c, id)
}

// GetAll streams every record in the collection in primary-key order.
func (s *Store) GetAll(ctx context.Context, c store.Collection) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if !c.Valid() {
			yield(nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, c))
			return
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT data FROM records WHERE collection = ? ORDER BY id`, string(c))
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", c, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				yield(nil, err)
				return
			}
			if !yield(data, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// GetAllByIndex streams records matching an index key. An empty key scans
// the whole index in index-key order, which for by-updated means oldest
// first.
func (s *Store) GetAllByIndex(ctx context.Context, c store.Collection, idx store.Index, key string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if !c.Valid() {
			yield(nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, c))
			return
		}
		if !c.HasIndex(idx) {
			yield(nil, fmt.Errorf("%w: %s on %s", store.ErrUnknownIndex, idx, c))
			return
		}

		query, args := indexQuery(c, idx, key)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("query %s by %s: %w", c, idx, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				yield(nil, err)
				return
			}
			if !yield(data, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Put writes a record and refreshes its denormalized index columns.
func (s *Store) Put(ctx context.Context, c store.Collection, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return putRecord(ctx, s.db, c, record)
}

// Delete removes a record. Deleting an absent record is a no-op.
func (s *Store) Delete(ctx context.Context, c store.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return deleteRecord(ctx, s.db, c, id)
}

// Clear removes every record in the collection.
func (s *Store) Clear(ctx context.Context, c store.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return clearCollection(ctx, s.db, c)
}

// Update runs fn inside a single database transaction.
func (s *Store) Update(ctx context.Context, fn func(store.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqliteTxn{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("sqlite database closed")
	}
	return nil
}

// indexQuery builds the SELECT for an index scan. The result ordering
// mirrors the Badger key order: grouped scans sort by index key then id.
func indexQuery(c store.Collection, idx store.Index, key string) (string, []any) {
	column := "novel_id"
	if idx == store.IndexByUpdated {
		column = "updated_at"
	}

	if key == "" {
		return fmt.Sprintf(
			`SELECT data FROM records WHERE collection = ? AND %s != '' ORDER BY %s, id`,
			column, column,
		), []any{string(c)}
	}
	return fmt.Sprintf(
		`SELECT data FROM records WHERE collection = ? AND %s = ? ORDER BY id`,
		column,
	), []any{string(c), key}
}
