package backup

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// Mode determines how an import treats existing data.
type Mode string

const (
	// ModeOverwrite wipes all five collections before writing the document.
	ModeOverwrite Mode = "overwrite"

	// ModeMerge writes the document over existing data: colliding ids are
	// replaced, everything else is left alone.
	ModeMerge Mode = "merge"
)

// Valid reports whether the mode is recognized.
func (m Mode) Valid() bool {
	switch m {
	case ModeOverwrite, ModeMerge:
		return true
	default:
		return false
	}
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	Mode   Mode         `json:"mode"`
	Counts EntityCounts `json:"counts"`
}

// Importer writes backup documents into the store.
type Importer struct {
	store  store.Store
	logger *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(s store.Store, logger *slog.Logger) *Importer {
	return &Importer{store: s, logger: logger}
}

// Import applies a document in a single transaction. Images land first so
// the entity records referencing them never precede their targets; no
// referential check is enforced beyond that ordering. Any failure rolls the
// whole import back.
func (i *Importer) Import(ctx context.Context, doc *Document, mode Mode) (*ImportResult, error) {
	if !mode.Valid() {
		return nil, domainerrors.Validationf("unknown import mode %q", mode)
	}
	// A hand-built document gets the same presence check as a decoded one.
	if doc == nil || doc.Version == "" || doc.Novels == nil {
		return nil, ErrInvalidDocument
	}

	err := i.store.Update(ctx, func(tx store.Txn) error {
		if mode == ModeOverwrite {
			for _, c := range store.AllCollections() {
				if err := tx.Clear(c); err != nil {
					return fmt.Errorf("clear %s: %w", c, err)
				}
			}
		}

		for _, imageID := range slices.Sorted(maps.Keys(doc.Images)) {
			image := &domain.Image{ID: imageID, Data: doc.Images[imageID]}
			if err := putRecord(tx, store.CollectionImages, image); err != nil {
				return err
			}
		}
		if err := putAll(tx, store.CollectionNovels, doc.Novels); err != nil {
			return err
		}
		if err := putAll(tx, store.CollectionCharacters, doc.Characters); err != nil {
			return err
		}
		if err := putAll(tx, store.CollectionPlaces, doc.Places); err != nil {
			return err
		}
		return putAll(tx, store.CollectionNotes, doc.Notes)
	})
	if err != nil {
		return nil, fmt.Errorf("import backup: %w", err)
	}

	counts := doc.Counts()
	i.logger.Info("backup imported",
		"mode", mode,
		"novels", counts.Novels,
		"characters", counts.Characters,
		"places", counts.Places,
		"notes", counts.Notes,
		"images", counts.Images,
	)

	return &ImportResult{Mode: mode, Counts: counts}, nil
}

func putAll[T any](tx store.Txn, c store.Collection, records []*T) error {
	for _, record := range records {
		if err := putRecord(tx, c, record); err != nil {
			return err
		}
	}
	return nil
}

func putRecord(tx store.Txn, c store.Collection, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", c, err)
	}
	if err := tx.Put(c, raw); err != nil {
		return fmt.Errorf("write %s record: %w", c, err)
	}
	return nil
}
