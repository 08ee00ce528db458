package backup_test

import (
	"context"
	"encoding/json/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

func collectIDs(t *testing.T, s store.Store, c store.Collection) []string {
	t.Helper()
	var ids []string
	for raw, err := range s.GetAll(context.Background(), c) {
		require.NoError(t, err)
		meta, err := store.ProbeRecord(raw)
		require.NoError(t, err)
		ids = append(ids, meta.ID)
	}
	return ids
}

// Export into a fresh store and back out again: the second export must carry
// the same records as the first.
func TestImporter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newTestStore(t)
	seedStore(t, source)

	doc, err := backup.NewExporter(source, testLogger()).Export(ctx)
	require.NoError(t, err)

	target := newTestStore(t)
	result, err := backup.NewImporter(target, testLogger()).Import(ctx, doc, backup.ModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, backup.ModeOverwrite, result.Mode)
	assert.Equal(t, backup.EntityCounts{Novels: 1, Characters: 2, Places: 1, Notes: 1, Images: 3}, result.Counts)

	rebuilt, err := backup.NewExporter(target, testLogger()).Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, doc.Novels, rebuilt.Novels)
	assert.Equal(t, doc.Characters, rebuilt.Characters)
	assert.Equal(t, doc.Places, rebuilt.Places)
	assert.Equal(t, doc.Notes, rebuilt.Notes)
	assert.Equal(t, doc.Images, rebuilt.Images)
}

func TestImporter_Overwrite_ClearsExistingData(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStore(t, s)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	doc := &backup.Document{
		Version: backup.FormatVersion,
		Novels: []*domain.Novel{
			{Tracked: tracked("nvl-hobbit", at), Title: "The Hobbit"},
		},
	}

	_, err := backup.NewImporter(s, testLogger()).Import(ctx, doc, backup.ModeOverwrite)
	require.NoError(t, err)

	assert.Equal(t, []string{"nvl-hobbit"}, collectIDs(t, s, store.CollectionNovels))
	assert.Empty(t, collectIDs(t, s, store.CollectionCharacters))
	assert.Empty(t, collectIDs(t, s, store.CollectionPlaces))
	assert.Empty(t, collectIDs(t, s, store.CollectionNotes))
	assert.Empty(t, collectIDs(t, s, store.CollectionImages))
}

func TestImporter_Merge_OverlaysAndKeeps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStore(t, s)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	doc := &backup.Document{
		Version: backup.FormatVersion,
		Novels: []*domain.Novel{
			// Collides with the seeded novel: the document wins.
			{Tracked: tracked("nvl-dune", at), Title: "Dune (revised)"},
			{Tracked: tracked("nvl-hobbit", at), Title: "The Hobbit"},
		},
		Characters: []*domain.Character{
			{Tracked: tracked("chr-bilbo", at), NovelID: "nvl-hobbit", Name: "Bilbo"},
		},
		Images: map[string]string{"img-map": "map-data"},
	}

	_, err := backup.NewImporter(s, testLogger()).Import(ctx, doc, backup.ModeMerge)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"nvl-dune", "nvl-hobbit"}, collectIDs(t, s, store.CollectionNovels))

	raw, err := s.Get(ctx, store.CollectionNovels, "nvl-dune")
	require.NoError(t, err)
	var dune domain.Novel
	require.NoError(t, json.Unmarshal(raw, &dune))
	assert.Equal(t, "Dune (revised)", dune.Title)

	// Pre-existing records the document never mentions are untouched.
	assert.ElementsMatch(t, []string{"chr-paul", "chr-leto", "chr-bilbo"},
		collectIDs(t, s, store.CollectionCharacters))
	assert.ElementsMatch(t, []string{"img-cover", "img-paul", "img-arrakeen", "img-map"},
		collectIDs(t, s, store.CollectionImages))
	assert.ElementsMatch(t, []string{"plc-arrakeen"}, collectIDs(t, s, store.CollectionPlaces))
	assert.ElementsMatch(t, []string{"note-spice"}, collectIDs(t, s, store.CollectionNotes))
}

func TestImporter_ImportedImagesAreReadable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc := &backup.Document{
		Version: backup.FormatVersion,
		Novels:  []*domain.Novel{},
		Images:  map[string]string{"img-map": "map-data"},
	}
	_, err := backup.NewImporter(s, testLogger()).Import(ctx, doc, backup.ModeMerge)
	require.NoError(t, err)

	raw, err := s.Get(ctx, store.CollectionImages, "img-map")
	require.NoError(t, err)
	var image domain.Image
	require.NoError(t, json.Unmarshal(raw, &image))
	assert.Equal(t, "map-data", image.Data)
}

func TestImporter_RejectsUnknownMode(t *testing.T) {
	s := newTestStore(t)
	doc := &backup.Document{Version: backup.FormatVersion, Novels: []*domain.Novel{}}

	_, err := backup.NewImporter(s, testLogger()).Import(context.Background(), doc, backup.Mode("replace"))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}

func TestImporter_RejectsPartialDocument(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	tests := []struct {
		name string
		doc  *backup.Document
	}{
		{"nil document", nil},
		{"no version", &backup.Document{Novels: []*domain.Novel{}}},
		{"nil novels", &backup.Document{Version: backup.FormatVersion}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := backup.NewImporter(s, testLogger()).Import(context.Background(), tt.doc, backup.ModeOverwrite)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, backup.ErrInvalidDocument), "got %v", err)
		})
	}

	// Nothing was cleared by the rejected overwrite attempts.
	assert.ElementsMatch(t, []string{"nvl-dune"}, collectIDs(t, s, store.CollectionNovels))
	assert.Len(t, collectIDs(t, s, store.CollectionCharacters), 2)
}

// A document that fails the decode boundary never touches the store.
func TestImport_InvalidDocumentLeavesStoreUntouched(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	before := collectIDs(t, s, store.CollectionNovels)

	_, err := backup.DecodeDocument([]byte(`{"characters": []}`))
	require.Error(t, err)

	assert.Equal(t, before, collectIDs(t, s, store.CollectionNovels))
	assert.Len(t, collectIDs(t, s, store.CollectionCharacters), 2)
	assert.Len(t, collectIDs(t, s, store.CollectionImages), 3)
}
