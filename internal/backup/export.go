package backup

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// Exporter snapshots the whole store into a Document.
type Exporter struct {
	store  store.Store
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(s store.Store, logger *slog.Logger) *Exporter {
	return &Exporter{store: s, logger: logger}
}

// Export reads every entity and the images they reference into a fresh
// document. Entities come out in updatedAt order, image ids sorted, so the
// same store state always produces the same document apart from exportedAt.
func (e *Exporter) Export(ctx context.Context) (*Document, error) {
	novels, err := exportAll[domain.Novel](ctx, e.store, store.CollectionNovels)
	if err != nil {
		return nil, err
	}
	characters, err := exportAll[domain.Character](ctx, e.store, store.CollectionCharacters)
	if err != nil {
		return nil, err
	}
	places, err := exportAll[domain.Place](ctx, e.store, store.CollectionPlaces)
	if err != nil {
		return nil, err
	}
	notes, err := exportAll[domain.Note](ctx, e.store, store.CollectionNotes)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version:    FormatVersion,
		ExportedAt: Millis{time.Now()},
		Novels:     novels,
		Characters: characters,
		Places:     places,
		Notes:      notes,
		Images:     make(map[string]string),
	}

	// Only images something points at travel with the backup. An id whose
	// data has already vanished is dropped rather than failing the export.
	for _, imageID := range referencedImageIDs(novels, characters, places) {
		raw, err := e.store.Get(ctx, store.CollectionImages, imageID)
		if err != nil {
			if domainerrors.Is(err, store.ErrNotFound) {
				e.logger.Debug("skipping missing image", "image_id", imageID)
				continue
			}
			return nil, fmt.Errorf("export image %s: %w", imageID, err)
		}
		var image domain.Image
		if err := json.Unmarshal(raw, &image); err != nil {
			return nil, fmt.Errorf("decode image %s: %w", imageID, err)
		}
		doc.Images[imageID] = image.Data
	}

	counts := doc.Counts()
	e.logger.Info("store exported",
		"novels", counts.Novels,
		"characters", counts.Characters,
		"places", counts.Places,
		"notes", counts.Notes,
		"images", counts.Images,
	)

	return doc, nil
}

func exportAll[T any](ctx context.Context, s store.Store, c store.Collection) ([]*T, error) {
	out := make([]*T, 0)
	for raw, err := range s.GetAllByIndex(ctx, c, store.IndexByUpdated, "") {
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", c, err)
		}
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", c, err)
		}
		out = append(out, &record)
	}
	return out, nil
}

// referencedImageIDs collects every image id the entities point at: each
// character and place images entry plus each novel's cover, deduplicated and
// sorted.
func referencedImageIDs(novels []*domain.Novel, characters []*domain.Character, places []*domain.Place) []string {
	seen := make(map[string]struct{})
	for _, novel := range novels {
		if novel.CoverImage != "" {
			seen[novel.CoverImage] = struct{}{}
		}
	}
	for _, character := range characters {
		for _, imageID := range character.Images {
			if imageID != "" {
				seen[imageID] = struct{}{}
			}
		}
	}
	for _, place := range places {
		for _, imageID := range place.Images {
			if imageID != "" {
				seen[imageID] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
