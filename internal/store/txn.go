package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// badgerTxn adapts a *badger.Txn to the Txn interface so multi-record
// mutations commit or fail as one unit.
type badgerTxn struct {
	txn *badger.Txn
}

var _ Txn = (*badgerTxn)(nil)

func (t *badgerTxn) Get(c Collection, id string) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return txnGet(t.txn, c, id)
}

func (t *badgerTxn) List(c Collection, idx Index, key string) ([][]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	if !c.HasIndex(idx) {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, idx, c)
	}
	return txnList(t.txn, c, idx, key)
}

func (t *badgerTxn) Put(c Collection, record []byte) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return txnPut(t.txn, c, record)
}

func (t *badgerTxn) Delete(c Collection, id string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return txnDelete(t.txn, c, id)
}

func (t *badgerTxn) Clear(c Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return txnClear(t.txn, c)
}

// txnGet fetches a record inside txn, mapping Badger's not-found to ours.
func txnGet(txn *badger.Txn, c Collection, id string) ([]byte, error) {
	key := recordKey(c, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}

	return item.ValueCopy(nil)
}

// txnPut writes a record and keeps its index entries in step. When the
// record replaces an existing one, the old entries are removed first so an
// updatedAt change never leaves a stale by-updated entry behind.
func txnPut(txn *badger.Txn, c Collection, record []byte) error {
	meta, err := ProbeRecord(record)
	if err != nil {
		return err
	}

	old, err := txnGet(txn, c, meta.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if old != nil {
		oldMeta, probeErr := ProbeRecord(old)
		if probeErr == nil {
			if err := deleteIndexEntries(txn, c, oldMeta); err != nil {
				return err
			}
		}
	}

	if err := txn.Set(appendRecordKey(nil, c, meta.ID), record); err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", c, meta.ID, err)
	}
	return writeIndexEntries(txn, c, meta)
}

// txnDelete removes a record and its index entries. Absent records are a
// no-op so deletes stay idempotent.
func txnDelete(txn *badger.Txn, c Collection, id string) error {
	record, err := txnGet(txn, c, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if meta, probeErr := ProbeRecord(record); probeErr == nil {
		if err := deleteIndexEntries(txn, c, meta); err != nil {
			return err
		}
	}

	if err := txn.Delete(appendRecordKey(nil, c, id)); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	return nil
}

// txnClear deletes everything under the collection prefix, records and
// index entries alike. Keys are collected first because Badger allows only
// one live iterator per read-write transaction.
func txnClear(txn *badger.Txn, c Collection) error {
	prefix := recordPrefix(c)
	defer releaseKey(prefix)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	var keys [][]byte
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", c, err)
		}
	}
	return nil
}

// txnList collects records matching an index key, skipping dangling
// entries the same way the streaming read does.
func txnList(txn *badger.Txn, c Collection, idx Index, key string) ([][]byte, error) {
	prefix := indexPrefix(c, idx, key)
	defer releaseKey(prefix)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = true

	var ids []string
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		idVal, err := it.Item().ValueCopy(nil)
		if err != nil {
			it.Close()
			return nil, err
		}
		ids = append(ids, string(idVal))
	}
	it.Close()

	records := make([][]byte, 0, len(ids))
	for _, id := range ids {
		record, err := txnGet(txn, c, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// writeIndexEntries adds the entries the collection's indexes derive from
// the record metadata. Entry values carry the record id.
func writeIndexEntries(txn *badger.Txn, c Collection, meta RecordMeta) error {
	for _, idx := range c.Indexes() {
		key, ok := indexEntryKey(idx, meta)
		if !ok {
			continue
		}
		if err := txn.Set(appendIndexKey(nil, c, idx, key, meta.ID), []byte(meta.ID)); err != nil {
			return fmt.Errorf("failed to index %s/%s on %s: %w", c, meta.ID, idx, err)
		}
	}
	return nil
}

// deleteIndexEntries removes the entries derived from the record metadata.
func deleteIndexEntries(txn *badger.Txn, c Collection, meta RecordMeta) error {
	for _, idx := range c.Indexes() {
		key, ok := indexEntryKey(idx, meta)
		if !ok {
			continue
		}
		if err := txn.Delete(appendIndexKey(nil, c, idx, key, meta.ID)); err != nil {
			return fmt.Errorf("failed to deindex %s/%s on %s: %w", c, meta.ID, idx, err)
		}
	}
	return nil
}
