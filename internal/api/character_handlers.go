package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

func (s *Server) registerCharacterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCharacters",
		Method:      http.MethodGet,
		Path:        "/api/v1/characters",
		Summary:     "List characters",
		Description: "Returns all characters across all novels",
		Tags:        []string{"Characters"},
	}, s.handleListCharacters)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNovelCharacters",
		Method:      http.MethodGet,
		Path:        "/api/v1/novels/{novelId}/characters",
		Summary:     "List novel characters",
		Description: "Returns the characters that belong to a novel",
		Tags:        []string{"Characters"},
	}, s.handleListNovelCharacters)

	huma.Register(s.api, huma.Operation{
		OperationID: "createCharacter",
		Method:      http.MethodPost,
		Path:        "/api/v1/characters",
		Summary:     "Create character",
		Description: "Creates a new character in a novel",
		Tags:        []string{"Characters"},
	}, s.handleCreateCharacter)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCharacter",
		Method:      http.MethodGet,
		Path:        "/api/v1/characters/{id}",
		Summary:     "Get character",
		Description: "Returns a character by ID",
		Tags:        []string{"Characters"},
	}, s.handleGetCharacter)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCharacter",
		Method:      http.MethodPatch,
		Path:        "/api/v1/characters/{id}",
		Summary:     "Update character",
		Description: "Applies a partial update to a character",
		Tags:        []string{"Characters"},
	}, s.handleUpdateCharacter)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCharacter",
		Method:      http.MethodDelete,
		Path:        "/api/v1/characters/{id}",
		Summary:     "Delete character",
		Description: "Deletes a character, its images, and links pointing at it",
		Tags:        []string{"Characters"},
	}, s.handleDeleteCharacter)
}

// === DTOs ===

type CharacterResponse struct {
	ID                 string    `json:"id" doc:"Character ID"`
	NovelID            string    `json:"novelId" doc:"Owning novel ID"`
	Name               string    `json:"name" doc:"Character name"`
	Description        string    `json:"description,omitempty" doc:"Free-form description"`
	Images             []string  `json:"images" doc:"Gallery image IDs"`
	Tags               []string  `json:"tags" doc:"Role tags"`
	LinkedCharacterIDs []string  `json:"linkedCharacterIds" doc:"Linked character IDs"`
	LinkedPlaceIDs     []string  `json:"linkedPlaceIds" doc:"Linked place IDs"`
	CreatedAt          time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt          time.Time `json:"updatedAt" doc:"Last update time"`
}

type ListCharactersResponse struct {
	Characters []CharacterResponse `json:"characters" doc:"List of characters"`
}

type ListCharactersOutput struct {
	Body ListCharactersResponse
}

type ListNovelCharactersInput struct {
	NovelID string `path:"novelId" doc:"Novel ID"`
}

type CreateCharacterRequest struct {
	NovelID            string   `json:"novelId" validate:"required" doc:"Owning novel ID"`
	Name               string   `json:"name" validate:"required,max=200" doc:"Character name"`
	Description        string   `json:"description,omitempty" doc:"Free-form description"`
	Images             []string `json:"images,omitempty" doc:"Gallery image IDs"`
	Tags               []string `json:"tags,omitempty" doc:"Role tags"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds,omitempty" doc:"Linked character IDs"`
	LinkedPlaceIDs     []string `json:"linkedPlaceIds,omitempty" doc:"Linked place IDs"`
}

type CreateCharacterInput struct {
	Body CreateCharacterRequest
}

type CharacterOutput struct {
	Body CharacterResponse
}

type GetCharacterInput struct {
	ID string `path:"id" doc:"Character ID"`
}

type UpdateCharacterRequest struct {
	NovelID            *string   `json:"novelId,omitempty" doc:"Owning novel ID"`
	Name               *string   `json:"name,omitempty" doc:"Character name"`
	Description        *string   `json:"description,omitempty" doc:"Free-form description"`
	Images             *[]string `json:"images,omitempty" doc:"Gallery image IDs"`
	Tags               *[]string `json:"tags,omitempty" doc:"Role tags"`
	LinkedCharacterIDs *[]string `json:"linkedCharacterIds,omitempty" doc:"Linked character IDs"`
	LinkedPlaceIDs     *[]string `json:"linkedPlaceIds,omitempty" doc:"Linked place IDs"`
}

type UpdateCharacterInput struct {
	ID   string `path:"id" doc:"Character ID"`
	Body UpdateCharacterRequest
}

type DeleteCharacterInput struct {
	ID string `path:"id" doc:"Character ID"`
}

// === Handlers ===

func (s *Server) handleListCharacters(ctx context.Context, _ *struct{}) (*ListCharactersOutput, error) {
	characters, err := s.services.Character.List(ctx)
	if err != nil {
		return nil, err
	}

	return &ListCharactersOutput{Body: ListCharactersResponse{Characters: mapCharacterResponses(characters)}}, nil
}

func (s *Server) handleListNovelCharacters(ctx context.Context, input *ListNovelCharactersInput) (*ListCharactersOutput, error) {
	characters, err := s.services.Character.ListByNovel(ctx, input.NovelID)
	if err != nil {
		return nil, err
	}

	return &ListCharactersOutput{Body: ListCharactersResponse{Characters: mapCharacterResponses(characters)}}, nil
}

func (s *Server) handleCreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CharacterOutput, error) {
	character, err := s.services.Character.Create(ctx, service.CreateCharacterInput{
		NovelID:            input.Body.NovelID,
		Name:               input.Body.Name,
		Description:        input.Body.Description,
		Images:             input.Body.Images,
		Tags:               toDomainTags(input.Body.Tags),
		LinkedCharacterIDs: input.Body.LinkedCharacterIDs,
		LinkedPlaceIDs:     input.Body.LinkedPlaceIDs,
	})
	if err != nil {
		return nil, err
	}

	return &CharacterOutput{Body: mapCharacterResponse(character)}, nil
}

func (s *Server) handleGetCharacter(ctx context.Context, input *GetCharacterInput) (*CharacterOutput, error) {
	character, err := s.services.Character.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, huma.Error404NotFound("character not found")
	}

	return &CharacterOutput{Body: mapCharacterResponse(character)}, nil
}

func (s *Server) handleUpdateCharacter(ctx context.Context, input *UpdateCharacterInput) (*CharacterOutput, error) {
	patch := domain.CharacterPatch{
		NovelID:            input.Body.NovelID,
		Name:               input.Body.Name,
		Description:        input.Body.Description,
		Images:             input.Body.Images,
		LinkedCharacterIDs: input.Body.LinkedCharacterIDs,
		LinkedPlaceIDs:     input.Body.LinkedPlaceIDs,
	}
	if input.Body.Tags != nil {
		tags := toDomainTags(*input.Body.Tags)
		patch.Tags = &tags
	}

	character, err := s.services.Character.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, err
	}
	if character == nil {
		return nil, huma.Error404NotFound("character not found")
	}

	return &CharacterOutput{Body: mapCharacterResponse(character)}, nil
}

func (s *Server) handleDeleteCharacter(ctx context.Context, input *DeleteCharacterInput) (*MessageOutput, error) {
	if err := s.services.Character.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Character deleted"}}, nil
}

// === Mappers ===

func mapCharacterResponse(c *domain.Character) CharacterResponse {
	return CharacterResponse{
		ID:                 c.ID,
		NovelID:            c.NovelID,
		Name:               c.Name,
		Description:        c.Description,
		Images:             c.Images,
		Tags:               fromDomainTags(c.Tags),
		LinkedCharacterIDs: c.LinkedCharacterIDs,
		LinkedPlaceIDs:     c.LinkedPlaceIDs,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func mapCharacterResponses(characters []*domain.Character) []CharacterResponse {
	resp := make([]CharacterResponse, len(characters))
	for i, c := range characters {
		resp[i] = mapCharacterResponse(c)
	}
	return resp
}

func toDomainTags(tags []string) []domain.Tag {
	if tags == nil {
		return nil
	}
	out := make([]domain.Tag, len(tags))
	for i, t := range tags {
		out[i] = domain.Tag(t)
	}
	return out
}

func fromDomainTags(tags []domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
