package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/sse"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

func TestCharacterService_Create(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")

	character, err := svc.characters.Create(ctx, CreateCharacterInput{
		NovelID:     novel.ID,
		Name:        "Paul Atreides",
		Description: "Heir of House Atreides",
		Tags:        []domain.Tag{domain.TagMC},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, character.ID)
	assert.Equal(t, novel.ID, character.NovelID)
	assert.True(t, character.CreatedAt.Equal(character.UpdatedAt))
	assert.NotNil(t, character.Images, "slices are normalized, never nil")
	assert.NotNil(t, character.LinkedCharacterIDs)
	assert.NotNil(t, character.LinkedPlaceIDs)
}

func TestCharacterService_Create_Validation(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")

	tests := []struct {
		name  string
		input CreateCharacterInput
	}{
		{"empty name", CreateCharacterInput{NovelID: novel.ID, Name: "  "}},
		{"missing novel id", CreateCharacterInput{Name: "Paul"}},
		{"unknown tag", CreateCharacterInput{NovelID: novel.ID, Name: "Paul", Tags: []domain.Tag{"sidekick"}}},
		{"nonexistent novel", CreateCharacterInput{NovelID: "nvl-missing", Name: "Paul"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.characters.Create(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)
		})
	}

	// A rejected create writes nothing.
	characters, err := svc.characters.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, characters)
}

func TestCharacterService_ListByNovel(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	dune := createTestNovel(t, svc, "Dune")
	hobbit := createTestNovel(t, svc, "The Hobbit")

	paul := createTestCharacter(t, svc, CreateCharacterInput{NovelID: dune.ID, Name: "Paul"})
	leto := createTestCharacter(t, svc, CreateCharacterInput{NovelID: dune.ID, Name: "Leto"})
	createTestCharacter(t, svc, CreateCharacterInput{NovelID: hobbit.ID, Name: "Bilbo"})

	// Touch Paul so he lists after Leto.
	_, err := svc.characters.Update(ctx, paul.ID, domain.CharacterPatch{Description: strPtr("Muad'Dib")})
	require.NoError(t, err)

	characters, err := svc.characters.ListByNovel(ctx, dune.ID)
	require.NoError(t, err)
	require.Len(t, characters, 2)
	assert.Equal(t, leto.ID, characters[0].ID)
	assert.Equal(t, paul.ID, characters[1].ID)

	empty, err := svc.characters.ListByNovel(ctx, "nvl-missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCharacterService_Update(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")
	character := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: novel.ID,
		Name:    "Paul",
		Tags:    []domain.Tag{domain.TagMC},
	})

	updated, err := svc.characters.Update(ctx, character.ID, domain.CharacterPatch{
		Name: strPtr("Muad'Dib"),
		Tags: &[]domain.Tag{domain.TagMC, domain.TagMentor},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, character.ID, updated.ID)
	assert.Equal(t, "Muad'Dib", updated.Name)
	assert.Equal(t, []domain.Tag{domain.TagMC, domain.TagMentor}, updated.Tags)
	assert.Equal(t, novel.ID, updated.NovelID, "unpatched ownership stays put")
	assert.True(t, updated.UpdatedAt.After(character.UpdatedAt))
}

func TestCharacterService_Update_Validation(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")
	character := createTestCharacter(t, svc, CreateCharacterInput{NovelID: novel.ID, Name: "Paul"})

	_, err := svc.characters.Update(ctx, character.ID, domain.CharacterPatch{
		Tags: &[]domain.Tag{"sidekick"},
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	_, err = svc.characters.Update(ctx, character.ID, domain.CharacterPatch{
		NovelID: strPtr("nvl-missing"),
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	// Neither rejected patch left a mark.
	got, err := svc.characters.Get(ctx, character.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(character.UpdatedAt))
}

func TestCharacterService_Update_Absent(t *testing.T) {
	svc := setupTestServices(t)

	updated, err := svc.characters.Update(context.Background(), "chr-missing", domain.CharacterPatch{
		Name: strPtr("Nobody"),
	})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestCharacterService_Delete_RemovesOwnedImages(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")
	img := saveTestImage(t, svc, "data:image/png;base64,cGF1bA==")
	keeper := saveTestImage(t, svc, "data:image/png;base64,a2VlcA==")

	character := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: novel.ID, Name: "Paul", Images: []string{img.ID},
	})

	require.NoError(t, svc.characters.Delete(ctx, character.ID))

	got, err := svc.characters.Get(ctx, character.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.store.Get(ctx, store.CollectionImages, img.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "owned image goes with the character")

	other, err := svc.images.Get(ctx, keeper.ID)
	require.NoError(t, err)
	assert.NotNil(t, other, "unrelated images survive")
}

func TestCharacterService_Delete_Absent(t *testing.T) {
	svc := setupTestServices(t)

	require.NoError(t, svc.characters.Delete(context.Background(), "chr-missing"))
}

// The linked-id scrub covers every sibling in the novel, leaves other
// novels alone, and refreshes updatedAt only on characters it touched.
func TestCharacterService_Delete_ScrubsLinkedIDs(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	dune := createTestNovel(t, svc, "Dune")
	hobbit := createTestNovel(t, svc, "The Hobbit")

	target := createTestCharacter(t, svc, CreateCharacterInput{NovelID: dune.ID, Name: "Duncan"})
	linkedA := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: dune.ID, Name: "Paul", LinkedCharacterIDs: []string{target.ID},
	})
	linkedB := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: dune.ID, Name: "Leto", LinkedCharacterIDs: []string{target.ID, linkedA.ID},
	})
	unlinked := createTestCharacter(t, svc, CreateCharacterInput{NovelID: dune.ID, Name: "Gurney"})
	// Same link id in another novel stays dangling rather than scrubbed.
	foreign := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: hobbit.ID, Name: "Bilbo", LinkedCharacterIDs: []string{target.ID},
	})

	require.NoError(t, svc.characters.Delete(ctx, target.ID))

	gotA, err := svc.characters.Get(ctx, linkedA.ID)
	require.NoError(t, err)
	assert.Empty(t, gotA.LinkedCharacterIDs)
	assert.True(t, gotA.UpdatedAt.After(linkedA.UpdatedAt), "scrubbed characters get a fresh updatedAt")

	gotB, err := svc.characters.Get(ctx, linkedB.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{linkedA.ID}, gotB.LinkedCharacterIDs, "other links survive the scrub")

	gotUnlinked, err := svc.characters.Get(ctx, unlinked.ID)
	require.NoError(t, err)
	assert.True(t, gotUnlinked.UpdatedAt.Equal(unlinked.UpdatedAt), "untouched characters keep their updatedAt")

	gotForeign, err := svc.characters.Get(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{target.ID}, gotForeign.LinkedCharacterIDs,
		"cross-novel references are out of scrub scope and read paths tolerate them dangling")
}

func TestCharacterService_Delete_Events(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	novel := createTestNovel(t, svc, "Dune")
	target := createTestCharacter(t, svc, CreateCharacterInput{NovelID: novel.ID, Name: "Duncan"})
	createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: novel.ID, Name: "Paul", LinkedCharacterIDs: []string{target.ID},
	})

	emitter := &captureEmitter{}
	svc.characters.SetEventEmitter(emitter)

	require.NoError(t, svc.characters.Delete(ctx, target.ID))

	// One delete for the target, one update for the scrubbed sibling.
	assert.Equal(t, []sse.EventType{
		sse.EventCharacterDeleted,
		sse.EventCharacterUpdated,
	}, emitter.types())
}

// Scenario from the product brief: Paul is deleted and Leto's link to him
// disappears with a refreshed timestamp.
func TestCharacterService_LinkedCharacterLifecycle(t *testing.T) {
	svc := setupTestServices(t)
	ctx := context.Background()

	dune := createTestNovel(t, svc, "Dune")
	t0 := dune.CreatedAt
	assert.True(t, dune.CreatedAt.Equal(dune.UpdatedAt))

	paul := createTestCharacter(t, svc, CreateCharacterInput{NovelID: dune.ID, Name: "Paul"})
	leto := createTestCharacter(t, svc, CreateCharacterInput{
		NovelID: dune.ID, Name: "Leto", LinkedCharacterIDs: []string{paul.ID},
	})
	require.Equal(t, []string{paul.ID}, leto.LinkedCharacterIDs)

	require.NoError(t, svc.characters.Delete(ctx, paul.ID))

	gone, err := svc.characters.Get(ctx, paul.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "Paul is gone from the store")

	gotLeto, err := svc.characters.Get(ctx, leto.ID)
	require.NoError(t, err)
	require.NotNil(t, gotLeto)
	assert.Empty(t, gotLeto.LinkedCharacterIDs, "Leto no longer links to Paul")
	assert.NotNil(t, gotLeto.LinkedCharacterIDs, "scrub leaves an empty list, not null")
	assert.True(t, gotLeto.UpdatedAt.After(t0), "the scrub advanced Leto past the novel's creation time")
	assert.True(t, gotLeto.UpdatedAt.After(leto.UpdatedAt))
}
