package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelcompanionapp/companion-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search workspace",
		Description: "Full-text search across novels, characters, places, and notes",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the workspace.
type SearchInput struct {
	Query     string `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
	Types     string `query:"types" validate:"omitempty,max=100" doc:"Comma-separated types to search (novel,character,place,note). Omit for all."`
	NovelID   string `query:"novelId" validate:"omitempty,max=100" doc:"Restrict results to one novel's entities"`
	Tags      string `query:"tags" validate:"omitempty,max=200" doc:"Comma-separated character tags to filter by"`
	Limit     int    `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max results (default 20)"`
	Offset    int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset (default 0)"`
	SortBy    string `query:"sort" validate:"omitempty,oneof=relevance name recent" doc:"Sort key: relevance, name, or recent"`
	SortOrder string `query:"order" validate:"omitempty,oneof=asc desc" doc:"Sort direction"`
	Facets    bool   `query:"facets" default:"true" doc:"Include facet counts in response"`
	Highlight bool   `query:"highlight" default:"true" doc:"Include highlighted match fragments"`
}

// SearchHitResult contains a single search result.
type SearchHitResult struct {
	ID         string            `json:"id" doc:"Entity ID"`
	Type       string            `json:"type" doc:"Type: novel, character, place, or note"`
	Score      float64           `json:"score" doc:"Search relevance score"`
	Name       string            `json:"name" doc:"Display name (title for novels and notes)"`
	Author     string            `json:"author,omitempty" doc:"Author name (for novels)"`
	NovelID    string            `json:"novelId,omitempty" doc:"Owning novel ID (for dependents)"`
	Tags       []string          `json:"tags,omitempty" doc:"Role tags (for characters)"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchFacetsResponse contains facet counts for filtering.
type SearchFacetsResponse struct {
	Types []FacetCount `json:"types,omitempty" doc:"Type facets"`
	Tags  []FacetCount `json:"tags,omitempty" doc:"Tag facets"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string                `json:"query" doc:"Original search query"`
	Total  int64                 `json:"total" doc:"Total matches"`
	TookMs int64                 `json:"tookMs" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult     `json:"hits" doc:"Search results"`
	Facets *SearchFacetsResponse `json:"facets,omitempty" doc:"Facet counts for filtering"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	s.logger.Debug("search request received",
		"query", input.Query,
		"types", input.Types,
		"novel_id", input.NovelID,
	)

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.NovelID = input.NovelID
	params.IncludeFacets = input.Facets
	params.Highlight = input.Highlight
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Offset > 0 {
		params.Offset = input.Offset
	}
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		params.SortOrder = input.SortOrder
	}

	// Parse types - comma-separated string to slice
	if input.Types != "" {
		for t := range strings.SplitSeq(input.Types, ",") {
			switch strings.TrimSpace(t) {
			case "novel":
				params.Types = append(params.Types, string(search.DocTypeNovel))
			case "character":
				params.Types = append(params.Types, string(search.DocTypeCharacter))
			case "place":
				params.Types = append(params.Types, string(search.DocTypePlace))
			case "note":
				params.Types = append(params.Types, string(search.DocTypeNote))
			}
		}
	}

	// Tag filter - parse comma-separated tags
	if input.Tags != "" {
		for tag := range strings.SplitSeq(input.Tags, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", input.Query)
		return nil, err
	}

	s.logger.Debug("search completed",
		"query", input.Query,
		"total", result.Total,
		"hits", len(result.Hits),
		"took_ms", result.TookMs,
	)

	resp := SearchResponse{
		Query:  result.Query,
		Total:  int64(result.Total), //nolint:gosec // Safe: total count won't exceed int64
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, 0, len(result.Hits)),
	}

	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits = append(resp.Hits, SearchHitResult{
			ID:         hit.ID,
			Type:       string(hit.Type),
			Score:      hit.Score,
			Name:       hit.Name,
			Author:     hit.Author,
			NovelID:    hit.NovelID,
			Tags:       hit.Tags,
			Highlights: hit.Highlights,
		})
	}

	if input.Facets {
		resp.Facets = &SearchFacetsResponse{
			Types: mapFacetCounts(result.Facets.Types),
			Tags:  mapFacetCounts(result.Facets.Tags),
		}
	}

	return &SearchOutput{Body: resp}, nil
}

// === Mappers ===

func mapFacetCounts(counts []search.FacetCount) []FacetCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]FacetCount, len(counts))
	for i, c := range counts {
		out[i] = FacetCount{Value: c.Value, Count: c.Count}
	}
	return out
}
