package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/sse"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// setupTestStore opens a throwaway storage engine for one test.
func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	db, err := store.Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testServices bundles every service wired to one shared store, the way
// the running application wires them.
type testServices struct {
	store      store.Store
	novels     *NovelService
	characters *CharacterService
	places     *PlaceService
	notes      *NoteService
	images     *ImageService
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	st := setupTestStore(t)
	logger := slog.New(slog.DiscardHandler)
	return &testServices{
		store:      st,
		novels:     NewNovelService(st, logger),
		characters: NewCharacterService(st, logger),
		places:     NewPlaceService(st, logger),
		notes:      NewNoteService(st, logger),
		images:     NewImageService(st, logger),
	}
}

func createTestNovel(t *testing.T, svc *testServices, title string) *domain.Novel {
	t.Helper()

	novel, err := svc.novels.Create(context.Background(), CreateNovelInput{Title: title})
	require.NoError(t, err)
	require.NotNil(t, novel)
	return novel
}

func createTestCharacter(t *testing.T, svc *testServices, input CreateCharacterInput) *domain.Character {
	t.Helper()

	character, err := svc.characters.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, character)
	return character
}

func saveTestImage(t *testing.T, svc *testServices, data string) *domain.Image {
	t.Helper()

	image, err := svc.images.Save(context.Background(), data)
	require.NoError(t, err)
	require.NotNil(t, image)
	return image
}

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (e *captureEmitter) Emit(event any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev, ok := event.(sse.Event); ok {
		e.events = append(e.events, ev)
	}
}

func (e *captureEmitter) types() []sse.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.EventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}
