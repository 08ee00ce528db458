package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/novelcompanionapp/companion-server/internal/store"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// the record helpers serve both the top-level operations and transactions.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqliteTxn adapts a *sql.Tx to the Txn interface. The context from the
// enclosing Update call rides along because the interface methods do not
// take one.
type sqliteTxn struct {
	ctx context.Context
	tx  *sql.Tx
}

var _ store.Txn = (*sqliteTxn)(nil)

func (t *sqliteTxn) Get(c store.Collection, id string) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return getRecord(t.ctx, t.tx, c, id)
}

func (t *sqliteTxn) List(c store.Collection, idx store.Index, key string) ([][]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	if !c.HasIndex(idx) {
		return nil, fmt.Errorf("%w: %s on %s", store.ErrUnknownIndex, idx, c)
	}

	query, args := indexQuery(c, idx, key)
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", c, idx, err)
	}
	defer rows.Close()

	var records [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		records = append(records, data)
	}
	return records, rows.Err()
}

func (t *sqliteTxn) Put(c store.Collection, record []byte) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return putRecord(t.ctx, t.tx, c, record)
}

func (t *sqliteTxn) Delete(c store.Collection, id string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return deleteRecord(t.ctx, t.tx, c, id)
}

func (t *sqliteTxn) Clear(c store.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, c)
	}
	return clearCollection(t.ctx, t.tx, c)
}

func getRecord(ctx context.Context, q querier, c store.Collection, id string) ([]byte, error) {
	var data []byte
	err := q.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`,
		string(c), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, c, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	return data, nil
}

func putRecord(ctx context.Context, q querier, c store.Collection, record []byte) error {
	meta, err := store.ProbeRecord(record)
	if err != nil {
		return err
	}

	updatedAt := ""
	if !meta.UpdatedAt.IsZero() {
		updatedAt = store.EncodeTimestamp(meta.UpdatedAt)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO records (collection, id, novel_id, updated_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			novel_id = excluded.novel_id,
			updated_at = excluded.updated_at,
			data = excluded.data`,
		string(c), meta.ID, meta.NovelID, updatedAt, record,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c, meta.ID, err)
	}
	return nil
}

func deleteRecord(ctx context.Context, q querier, c store.Collection, id string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`,
		string(c), id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, id, err)
	}
	return nil
}

func clearCollection(ctx context.Context, q querier, c store.Collection) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ?`,
		string(c),
	)
	if err != nil {
		return fmt.Errorf("clear %s: %w", c, err)
	}
	return nil
}
