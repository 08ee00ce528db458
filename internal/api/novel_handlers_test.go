package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/service"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// novelTestServer wraps the API server for novel testing.
type novelTestServer struct {
	*Server
	api     humatest.TestAPI
	cleanup func()
}

// setupNovelTestServer creates a test server with only the novel routes.
func setupNovelTestServer(t *testing.T) *novelTestServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "companion-novel-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.Open(filepath.Join(tmpDir, "db"), logger)
	require.NoError(t, err)

	services := &Services{
		Novel: service.NewNovelService(st, logger),
	}

	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("Novel Companion API Test", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:    st,
		services: services,
		router:   router,
		api:      api,
		logger:   logger,
	}

	s.registerNovelRoutes()

	testAPI := humatest.Wrap(t, api)

	cleanup := func() {
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return &novelTestServer{Server: s, api: testAPI, cleanup: cleanup}
}

// === Tests ===

func TestListNovels_EmptyInitially(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/v1/novels")
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ListNovelsResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	assert.True(t, envelope.Success)
	assert.Empty(t, envelope.Data.Novels)
}

func TestCreateNovel_Success(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{
		"title":  "The Starlit Sea",
		"author": "Mira Voss",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Create failed: %s", resp.Body.String())

	var envelope testEnvelope[NovelResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, "The Starlit Sea", envelope.Data.Title)
	assert.Equal(t, "Mira Voss", envelope.Data.Author)
	assert.False(t, envelope.Data.CreatedAt.IsZero())
	assert.False(t, envelope.Data.UpdatedAt.IsZero())
}

func TestCreateNovel_MissingTitle(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{
		"author": "Mira Voss",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCreateNovel_TitleTooLong(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{
		"title": strings.Repeat("x", 501),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var envelope testEnvelope[struct{}]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)
	assert.False(t, envelope.Success)
}

func TestGetNovel_Success(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{"title": "Ash and Ember"})
	require.Equal(t, http.StatusOK, resp.Code)

	var created testEnvelope[NovelResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &created)
	require.NoError(t, err)

	resp = ts.api.Get("/api/v1/novels/" + created.Data.ID)
	assert.Equal(t, http.StatusOK, resp.Code)

	var fetched testEnvelope[NovelResponse]
	err = json.Unmarshal(resp.Body.Bytes(), &fetched)
	require.NoError(t, err)

	assert.Equal(t, created.Data.ID, fetched.Data.ID)
	assert.Equal(t, "Ash and Ember", fetched.Data.Title)
}

func TestGetNovel_NotFound(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Get("/api/v1/novels/novel_doesnotexist")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	var envelope testEnvelope[struct{}]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Error, "not found")
}

func TestUpdateNovel_PartialPatch(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{
		"title":  "Working Title",
		"author": "Anonymous",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var created testEnvelope[NovelResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &created)
	require.NoError(t, err)

	// Patch only the author; the title must survive.
	resp = ts.api.Patch("/api/v1/novels/"+created.Data.ID, map[string]any{
		"author": "Mira Voss",
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	var updated testEnvelope[NovelResponse]
	err = json.Unmarshal(resp.Body.Bytes(), &updated)
	require.NoError(t, err)

	assert.Equal(t, "Working Title", updated.Data.Title)
	assert.Equal(t, "Mira Voss", updated.Data.Author)
	assert.True(t, updated.Data.UpdatedAt.After(created.Data.UpdatedAt))
}

func TestUpdateNovel_NotFound(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Patch("/api/v1/novels/novel_doesnotexist", map[string]any{
		"title": "New Title",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteNovel_Success(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{"title": "Short Lived"})
	require.Equal(t, http.StatusOK, resp.Code)

	var created testEnvelope[NovelResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &created)
	require.NoError(t, err)

	resp = ts.api.Delete("/api/v1/novels/" + created.Data.ID)
	assert.Equal(t, http.StatusOK, resp.Code)

	var deleted testEnvelope[MessageResponse]
	err = json.Unmarshal(resp.Body.Bytes(), &deleted)
	require.NoError(t, err)
	assert.Equal(t, "Novel deleted", deleted.Data.Message)

	// Gone afterwards.
	resp = ts.api.Get("/api/v1/novels/" + created.Data.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteNovel_Idempotent(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	// Deleting a novel that never existed still succeeds.
	resp := ts.api.Delete("/api/v1/novels/novel_doesnotexist")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestListNovels_NewestFirst(t *testing.T) {
	ts := setupNovelTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/novels", map[string]any{"title": "First Created"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/novels", map[string]any{"title": "Second Created"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/novels")
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ListNovelsResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	require.Len(t, envelope.Data.Novels, 2)
	assert.Equal(t, "Second Created", envelope.Data.Novels[0].Title)
	assert.Equal(t, "First Created", envelope.Data.Novels[1].Title)
}
