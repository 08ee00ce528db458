package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

func (s *Server) registerNovelRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNovels",
		Method:      http.MethodGet,
		Path:        "/api/v1/novels",
		Summary:     "List novels",
		Description: "Returns all novels, most recently updated first",
		Tags:        []string{"Novels"},
	}, s.handleListNovels)

	huma.Register(s.api, huma.Operation{
		OperationID: "createNovel",
		Method:      http.MethodPost,
		Path:        "/api/v1/novels",
		Summary:     "Create novel",
		Description: "Creates a new novel",
		Tags:        []string{"Novels"},
	}, s.handleCreateNovel)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNovel",
		Method:      http.MethodGet,
		Path:        "/api/v1/novels/{id}",
		Summary:     "Get novel",
		Description: "Returns a novel by ID",
		Tags:        []string{"Novels"},
	}, s.handleGetNovel)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNovel",
		Method:      http.MethodPatch,
		Path:        "/api/v1/novels/{id}",
		Summary:     "Update novel",
		Description: "Applies a partial update to a novel",
		Tags:        []string{"Novels"},
	}, s.handleUpdateNovel)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteNovel",
		Method:      http.MethodDelete,
		Path:        "/api/v1/novels/{id}",
		Summary:     "Delete novel",
		Description: "Deletes a novel and everything that belongs to it",
		Tags:        []string{"Novels"},
	}, s.handleDeleteNovel)
}

// === DTOs ===

type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

type MessageOutput struct {
	Body MessageResponse
}

type NovelResponse struct {
	ID         string    `json:"id" doc:"Novel ID"`
	Title      string    `json:"title" doc:"Novel title"`
	Author     string    `json:"author,omitempty" doc:"Author name"`
	CoverImage string    `json:"coverImage,omitempty" doc:"Cover image ID"`
	CreatedAt  time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt  time.Time `json:"updatedAt" doc:"Last update time"`
}

type ListNovelsResponse struct {
	Novels []NovelResponse `json:"novels" doc:"List of novels"`
}

type ListNovelsOutput struct {
	Body ListNovelsResponse
}

type CreateNovelRequest struct {
	Title      string `json:"title" validate:"required,max=500" doc:"Novel title"`
	Author     string `json:"author,omitempty" validate:"omitempty,max=200" doc:"Author name"`
	CoverImage string `json:"coverImage,omitempty" doc:"Cover image ID"`
}

type CreateNovelInput struct {
	Body CreateNovelRequest
}

type NovelOutput struct {
	Body NovelResponse
}

type GetNovelInput struct {
	ID string `path:"id" doc:"Novel ID"`
}

type UpdateNovelRequest struct {
	Title      *string `json:"title,omitempty" doc:"Novel title"`
	Author     *string `json:"author,omitempty" doc:"Author name"`
	CoverImage *string `json:"coverImage,omitempty" doc:"Cover image ID"`
}

type UpdateNovelInput struct {
	ID   string `path:"id" doc:"Novel ID"`
	Body UpdateNovelRequest
}

type DeleteNovelInput struct {
	ID string `path:"id" doc:"Novel ID"`
}

// === Handlers ===

func (s *Server) handleListNovels(ctx context.Context, _ *struct{}) (*ListNovelsOutput, error) {
	novels, err := s.services.Novel.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]NovelResponse, len(novels))
	for i, n := range novels {
		resp[i] = mapNovelResponse(n)
	}
	// The service lists oldest first; the shelf wants fresh work on top.
	slices.Reverse(resp)

	return &ListNovelsOutput{Body: ListNovelsResponse{Novels: resp}}, nil
}

func (s *Server) handleCreateNovel(ctx context.Context, input *CreateNovelInput) (*NovelOutput, error) {
	novel, err := s.services.Novel.Create(ctx, service.CreateNovelInput{
		Title:      input.Body.Title,
		Author:     input.Body.Author,
		CoverImage: input.Body.CoverImage,
	})
	if err != nil {
		return nil, err
	}

	return &NovelOutput{Body: mapNovelResponse(novel)}, nil
}

func (s *Server) handleGetNovel(ctx context.Context, input *GetNovelInput) (*NovelOutput, error) {
	novel, err := s.services.Novel.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if novel == nil {
		return nil, huma.Error404NotFound("novel not found")
	}

	return &NovelOutput{Body: mapNovelResponse(novel)}, nil
}

func (s *Server) handleUpdateNovel(ctx context.Context, input *UpdateNovelInput) (*NovelOutput, error) {
	novel, err := s.services.Novel.Update(ctx, input.ID, domain.NovelPatch{
		Title:      input.Body.Title,
		Author:     input.Body.Author,
		CoverImage: input.Body.CoverImage,
	})
	if err != nil {
		return nil, err
	}
	if novel == nil {
		return nil, huma.Error404NotFound("novel not found")
	}

	return &NovelOutput{Body: mapNovelResponse(novel)}, nil
}

func (s *Server) handleDeleteNovel(ctx context.Context, input *DeleteNovelInput) (*MessageOutput, error) {
	if err := s.services.Novel.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Novel deleted"}}, nil
}

// === Mappers ===

func mapNovelResponse(n *domain.Novel) NovelResponse {
	return NovelResponse{
		ID:         n.ID,
		Title:      n.Title,
		Author:     n.Author,
		CoverImage: n.CoverImage,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}
