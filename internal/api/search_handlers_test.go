package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/search"
	"github.com/novelcompanionapp/companion-server/internal/service"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// searchTestServer wraps the API server for search testing.
type searchTestServer struct {
	*Server
	api     humatest.TestAPI
	cleanup func()
}

// setupSearchTestServer creates a test server with a real Bleve index and
// only the search route registered. Entity services get the search service
// as their indexer, so fixtures created through them are searchable
// immediately.
func setupSearchTestServer(t *testing.T) *searchTestServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "companion-search-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.Open(filepath.Join(tmpDir, "db"), logger)
	require.NoError(t, err)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "search"),
		Logger:   logger,
	})
	require.NoError(t, err)

	searchService := service.NewSearchService(index, st, logger)

	novelService := service.NewNovelService(st, logger)
	novelService.SetSearchIndexer(searchService)
	characterService := service.NewCharacterService(st, logger)
	characterService.SetSearchIndexer(searchService)
	placeService := service.NewPlaceService(st, logger)
	placeService.SetSearchIndexer(searchService)
	noteService := service.NewNoteService(st, logger)
	noteService.SetSearchIndexer(searchService)

	services := &Services{
		Novel:     novelService,
		Character: characterService,
		Place:     placeService,
		Note:      noteService,
		Search:    searchService,
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

	s.registerSearchRoutes()

	testAPI := humatest.Wrap(t, api)

	cleanup := func() {
		_ = index.Close()
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return &searchTestServer{Server: s, api: testAPI, cleanup: cleanup}
}

// seedSearchFixtures creates two novels and one character, place, and note
// under the first. Returns the first novel, whose id scopes the dependents.
func seedSearchFixtures(t *testing.T, ts *searchTestServer) *domain.Novel {
	t.Helper()
	ctx := context.Background()

	novelA, err := ts.services.Novel.Create(ctx, service.CreateNovelInput{
		Title:  "The Starlit Sea",
		Author: "Mira Voss",
	})
	require.NoError(t, err)

	_, err = ts.services.Character.Create(ctx, service.CreateCharacterInput{
		NovelID:     novelA.ID,
		Name:        "Captain Elara Voss",
		Description: "First mate turned captain.",
		Tags:        []domain.Tag{domain.TagMC},
	})
	require.NoError(t, err)

	_, err = ts.services.Place.Create(ctx, service.CreatePlaceInput{
		NovelID:     novelA.ID,
		Name:        "Harbor of Glass",
		Description: "Port city of mirrored towers.",
	})
	require.NoError(t, err)

	_, err = ts.services.Note.Create(ctx, service.CreateNoteInput{
		NovelID: novelA.ID,
		Title:   "Chapter 3 outline",
		Content: "Elara discovers the forged map.",
	})
	require.NoError(t, err)

	_, err = ts.services.Novel.Create(ctx, service.CreateNovelInput{
		Title:  "Crown of Cinders",
		Author: "Dale Harbor",
	})
	require.NoError(t, err)

	return novelA
}

func searchFor(t *testing.T, ts *searchTestServer, path string) SearchResponse {
	t.Helper()

	resp := ts.api.Get(path)
	require.Equal(t, http.StatusOK, resp.Code, "Search failed: %s", resp.Body.String())

	var envelope testEnvelope[SearchResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)
	require.True(t, envelope.Success)

	return envelope.Data
}

// === Tests ===

func TestSearch_EmptyQueryBrowsesAll(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	result := searchFor(t, ts, "/api/v1/search")

	assert.Equal(t, int64(5), result.Total)
	assert.Len(t, result.Hits, 5)
	for _, hit := range result.Hits {
		assert.NotEmpty(t, hit.ID)
		assert.NotEmpty(t, hit.Type)
		assert.NotEmpty(t, hit.Name)
	}
}

func TestSearch_MatchesAcrossTypes(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	// "voss" appears in the first novel's author and the character's name.
	result := searchFor(t, ts, "/api/v1/search?q=voss")

	assert.Equal(t, "voss", result.Query)
	assert.Equal(t, int64(2), result.Total)
	require.Len(t, result.Hits, 2)

	types := make(map[string]bool)
	for _, hit := range result.Hits {
		types[hit.Type] = true
		assert.Positive(t, hit.Score)
	}
	assert.True(t, types["novel"])
	assert.True(t, types["character"])
}

func TestSearch_TypeFilter(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	novelA := seedSearchFixtures(t, ts)

	result := searchFor(t, ts, "/api/v1/search?q=voss&types=character")

	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "character", result.Hits[0].Type)
	assert.Equal(t, "Captain Elara Voss", result.Hits[0].Name)
	assert.Equal(t, novelA.ID, result.Hits[0].NovelID)
	assert.Equal(t, []string{"mc"}, result.Hits[0].Tags)
}

func TestSearch_NovelScope(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	novelA := seedSearchFixtures(t, ts)

	// Unscoped, "harbor" reaches the place and the second novel's author.
	result := searchFor(t, ts, "/api/v1/search?q=harbor")
	assert.Equal(t, int64(2), result.Total)

	// Scoped to the first novel only its own entities remain.
	result = searchFor(t, ts, "/api/v1/search?q=harbor&novelId="+novelA.ID)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "place", result.Hits[0].Type)
	assert.Equal(t, "Harbor of Glass", result.Hits[0].Name)
}

func TestSearch_TagFilter(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	// "elara" matches the character by name and the note by content.
	result := searchFor(t, ts, "/api/v1/search?q=elara")
	assert.Equal(t, int64(2), result.Total)

	// Only the character carries the mc tag.
	result = searchFor(t, ts, "/api/v1/search?q=elara&tags=mc")
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "character", result.Hits[0].Type)
	assert.Contains(t, result.Hits[0].Tags, "mc")
}

func TestSearch_Facets(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	result := searchFor(t, ts, "/api/v1/search?q=voss")

	require.NotNil(t, result.Facets)
	typeCounts := make(map[string]int)
	for _, facet := range result.Facets.Types {
		typeCounts[facet.Value] = facet.Count
	}
	assert.Equal(t, 1, typeCounts["novel"])
	assert.Equal(t, 1, typeCounts["character"])
}

func TestSearch_FacetsDisabled(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	result := searchFor(t, ts, "/api/v1/search?q=voss&facets=false")

	assert.Nil(t, result.Facets)
}

func TestSearch_Highlights(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	result := searchFor(t, ts, "/api/v1/search?q=voss")

	var characterHit *SearchHitResult
	for i := range result.Hits {
		if result.Hits[i].Type == "character" {
			characterHit = &result.Hits[i]
		}
	}
	require.NotNil(t, characterHit)
	require.NotEmpty(t, characterHit.Highlights)
	assert.Contains(t, characterHit.Highlights["name"], "<mark>")
}

func TestSearch_HighlightsDisabled(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	result := searchFor(t, ts, "/api/v1/search?q=voss&highlight=false")

	for _, hit := range result.Hits {
		assert.Empty(t, hit.Highlights)
	}
}

func TestSearch_Pagination(t *testing.T) {
	ts := setupSearchTestServer(t)
	defer ts.cleanup()
	seedSearchFixtures(t, ts)

	// The character outscores the novel: its name matches directly.
	first := searchFor(t, ts, "/api/v1/search?q=voss&limit=1")
	assert.Equal(t, int64(2), first.Total)
	require.Len(t, first.Hits, 1)
	assert.Equal(t, "character", first.Hits[0].Type)

	second := searchFor(t, ts, "/api/v1/search?q=voss&limit=1&offset=1")
	assert.Equal(t, int64(2), second.Total)
	require.Len(t, second.Hits, 1)
	assert.Equal(t, "novel", second.Hits[0].Type)
	assert.NotEqual(t, first.Hits[0].ID, second.Hits[0].ID)
}
