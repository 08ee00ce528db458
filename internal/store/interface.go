// Package store defines the storage engine contract for the Novel Companion
// and provides the Badger-backed implementation. Records cross the boundary
// as raw JSON; the engine only peeks at the handful of fields it needs for
// keys and secondary indexes.
package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"iter"
	"time"
)

// Collection names the five record buckets.
type Collection string

// The collections, in the order bulk imports write them.
const (
	CollectionImages     Collection = "images"
	CollectionNovels     Collection = "novels"
	CollectionCharacters Collection = "characters"
	CollectionPlaces     Collection = "places"
	CollectionNotes      Collection = "notes"
)

// AllCollections returns every collection in import order.
func AllCollections() []Collection {
	return []Collection{CollectionImages, CollectionNovels, CollectionCharacters, CollectionPlaces, CollectionNotes}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionImages, CollectionNovels, CollectionCharacters, CollectionPlaces, CollectionNotes:
		return true
	default:
		return false
	}
}

// Index names a secondary index.
type Index string

const (
	// IndexByUpdated orders records by their updatedAt timestamp, ascending.
	IndexByUpdated Index = "by-updated"
	// IndexByNovel groups records by their owning novel.
	IndexByNovel Index = "by-novel"
)

// Indexes returns the secondary indexes maintained for a collection.
// Images are opaque blobs and carry none.
func (c Collection) Indexes() []Index {
	switch c {
	case CollectionNovels:
		return []Index{IndexByUpdated}
	case CollectionCharacters, CollectionPlaces, CollectionNotes:
		return []Index{IndexByUpdated, IndexByNovel}
	default:
		return nil
	}
}

// HasIndex reports whether the collection maintains the given index.
func (c Collection) HasIndex(idx Index) bool {
	for _, have := range c.Indexes() {
		if have == idx {
			return true
		}
	}
	return false
}

// Store is the engine contract. Both the Badger and SQLite backends satisfy
// it, and everything above this layer is backend-agnostic. A Store handle is
// constructed once at startup and injected; implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the raw record, or ErrNotFound.
	Get(ctx context.Context, c Collection, id string) ([]byte, error)

	// GetAll streams every record in the collection in primary-key order.
	GetAll(ctx context.Context, c Collection) iter.Seq2[[]byte, error]

	// GetAllByIndex streams records matching an index key, in index-key
	// order. An empty key scans the whole index, which for IndexByUpdated
	// yields records oldest-first.
	GetAllByIndex(ctx context.Context, c Collection, idx Index, key string) iter.Seq2[[]byte, error]

	// Put writes a record, deriving its id and index entries from the
	// record itself. Existing index entries are replaced atomically.
	Put(ctx context.Context, c Collection, record []byte) error

	// Delete removes a record and its index entries. Deleting an absent
	// record is a no-op.
	Delete(ctx context.Context, c Collection, id string) error

	// Clear removes every record and index entry in the collection.
	Clear(ctx context.Context, c Collection) error

	// Update runs fn inside a single transaction. If fn returns an error
	// nothing it did is applied.
	Update(ctx context.Context, fn func(Txn) error) error

	// Close releases the underlying database.
	Close() error
}

// Txn exposes the engine operations inside a transaction. Multi-record
// mutations (cascading deletes, bulk imports) go through here so they commit
// or fail as a unit.
type Txn interface {
	Get(c Collection, id string) ([]byte, error)
	List(c Collection, idx Index, key string) ([][]byte, error)
	Put(c Collection, record []byte) error
	Delete(c Collection, id string) error
	Clear(c Collection) error
}

// RecordMeta is the slice of a record the engine needs for key derivation
// and index maintenance. Unknown fields in the record are ignored.
type RecordMeta struct {
	ID        string    `json:"id"`
	NovelID   string    `json:"novelId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProbeRecord decodes just the meta fields from a raw record.
// Returns ErrInvalidRecord when the record has no id.
func ProbeRecord(record []byte) (RecordMeta, error) {
	var meta RecordMeta
	if err := json.Unmarshal(record, &meta); err != nil {
		return RecordMeta{}, fmt.Errorf("probe record: %w", err)
	}
	if meta.ID == "" {
		return RecordMeta{}, ErrInvalidRecord
	}
	return meta, nil
}

// indexEntryKey returns the key portion of an index entry for a record, and
// whether the record belongs in the index at all. Records without the
// indexed field (an image in by-updated, say) simply have no entry.
func indexEntryKey(idx Index, meta RecordMeta) (string, bool) {
	switch idx {
	case IndexByUpdated:
		if meta.UpdatedAt.IsZero() {
			return "", false
		}
		return EncodeTimestamp(meta.UpdatedAt), true
	case IndexByNovel:
		if meta.NovelID == "" {
			return "", false
		}
		return meta.NovelID, true
	default:
		return "", false
	}
}
