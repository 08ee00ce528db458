package service

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/novelcompanionapp/companion-server/internal/store"
)

// The storage engine deals in raw JSON; these helpers move typed domain
// records across that boundary.

func decodeRecord[T any](raw []byte) (*T, error) {
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func encodeRecord(rec any) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return raw, nil
}

// getRecord fetches and decodes one record. Absence is not an error: the
// caller receives (nil, nil) and decides what absence means.
func getRecord[T any](ctx context.Context, s store.Store, c store.Collection, id string) (*T, error) {
	raw, err := s.Get(ctx, c, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord[T](raw)
}

// listRecords collects and decodes an index scan.
func listRecords[T any](ctx context.Context, s store.Store, c store.Collection, idx store.Index, key string) ([]*T, error) {
	var records []*T
	for raw, err := range s.GetAllByIndex(ctx, c, idx, key) {
		if err != nil {
			return nil, err
		}
		rec, decodeErr := decodeRecord[T](raw)
		if decodeErr != nil {
			return nil, decodeErr
		}
		records = append(records, rec)
	}
	return records, nil
}

// txnGet is getRecord inside a transaction, with the same nil-for-absent
// contract.
func txnGet[T any](tx store.Txn, c store.Collection, id string) (*T, error) {
	raw, err := tx.Get(c, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord[T](raw)
}

// txnPut encodes and writes a record inside a transaction.
func txnPut(tx store.Txn, c store.Collection, rec any) error {
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return tx.Put(c, raw)
}

// txnList collects and decodes an index scan inside a transaction.
func txnList[T any](tx store.Txn, c store.Collection, idx store.Index, key string) ([]*T, error) {
	rows, err := tx.List(c, idx, key)
	if err != nil {
		return nil, err
	}
	records := make([]*T, 0, len(rows))
	for _, raw := range rows {
		rec, decodeErr := decodeRecord[T](raw)
		if decodeErr != nil {
			return nil, decodeErr
		}
		records = append(records, rec)
	}
	return records, nil
}
