package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

func (s *Server) registerPlaceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/places",
		Summary:     "List places",
		Description: "Returns all places across all novels",
		Tags:        []string{"Places"},
	}, s.handleListPlaces)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNovelPlaces",
		Method:      http.MethodGet,
		Path:        "/api/v1/novels/{novelId}/places",
		Summary:     "List novel places",
		Description: "Returns the places that belong to a novel",
		Tags:        []string{"Places"},
	}, s.handleListNovelPlaces)

	huma.Register(s.api, huma.Operation{
		OperationID: "createPlace",
		Method:      http.MethodPost,
		Path:        "/api/v1/places",
		Summary:     "Create place",
		Description: "Creates a new place in a novel",
		Tags:        []string{"Places"},
	}, s.handleCreatePlace)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlace",
		Method:      http.MethodGet,
		Path:        "/api/v1/places/{id}",
		Summary:     "Get place",
		Description: "Returns a place by ID",
		Tags:        []string{"Places"},
	}, s.handleGetPlace)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePlace",
		Method:      http.MethodPatch,
		Path:        "/api/v1/places/{id}",
		Summary:     "Update place",
		Description: "Applies a partial update to a place",
		Tags:        []string{"Places"},
	}, s.handleUpdatePlace)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePlace",
		Method:      http.MethodDelete,
		Path:        "/api/v1/places/{id}",
		Summary:     "Delete place",
		Description: "Deletes a place, its images, and links pointing at it",
		Tags:        []string{"Places"},
	}, s.handleDeletePlace)
}

// === DTOs ===

type PlaceResponse struct {
	ID                 string    `json:"id" doc:"Place ID"`
	NovelID            string    `json:"novelId" doc:"Owning novel ID"`
	Name               string    `json:"name" doc:"Place name"`
	Description        string    `json:"description,omitempty" doc:"Free-form description"`
	Images             []string  `json:"images" doc:"Gallery image IDs"`
	LinkedCharacterIDs []string  `json:"linkedCharacterIds" doc:"Linked character IDs"`
	CreatedAt          time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt          time.Time `json:"updatedAt" doc:"Last update time"`
}

type ListPlacesResponse struct {
	Places []PlaceResponse `json:"places" doc:"List of places"`
}

type ListPlacesOutput struct {
	Body ListPlacesResponse
}

type ListNovelPlacesInput struct {
	NovelID string `path:"novelId" doc:"Novel ID"`
}

type CreatePlaceRequest struct {
	NovelID            string   `json:"novelId" validate:"required" doc:"Owning novel ID"`
	Name               string   `json:"name" validate:"required,max=200" doc:"Place name"`
	Description        string   `json:"description,omitempty" doc:"Free-form description"`
	Images             []string `json:"images,omitempty" doc:"Gallery image IDs"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds,omitempty" doc:"Linked character IDs"`
}

type CreatePlaceInput struct {
	Body CreatePlaceRequest
}

type PlaceOutput struct {
	Body PlaceResponse
}

type GetPlaceInput struct {
	ID string `path:"id" doc:"Place ID"`
}

type UpdatePlaceRequest struct {
	NovelID            *string   `json:"novelId,omitempty" doc:"Owning novel ID"`
	Name               *string   `json:"name,omitempty" doc:"Place name"`
	Description        *string   `json:"description,omitempty" doc:"Free-form description"`
	Images             *[]string `json:"images,omitempty" doc:"Gallery image IDs"`
	LinkedCharacterIDs *[]string `json:"linkedCharacterIds,omitempty" doc:"Linked character IDs"`
}

type UpdatePlaceInput struct {
	ID   string `path:"id" doc:"Place ID"`
	Body UpdatePlaceRequest
}

type DeletePlaceInput struct {
	ID string `path:"id" doc:"Place ID"`
}

// === Handlers ===

func (s *Server) handleListPlaces(ctx context.Context, _ *struct{}) (*ListPlacesOutput, error) {
	places, err := s.services.Place.List(ctx)
	if err != nil {
		return nil, err
	}

	return &ListPlacesOutput{Body: ListPlacesResponse{Places: mapPlaceResponses(places)}}, nil
}

func (s *Server) handleListNovelPlaces(ctx context.Context, input *ListNovelPlacesInput) (*ListPlacesOutput, error) {
	places, err := s.services.Place.ListByNovel(ctx, input.NovelID)
	if err != nil {
		return nil, err
	}

	return &ListPlacesOutput{Body: ListPlacesResponse{Places: mapPlaceResponses(places)}}, nil
}

func (s *Server) handleCreatePlace(ctx context.Context, input *CreatePlaceInput) (*PlaceOutput, error) {
	place, err := s.services.Place.Create(ctx, service.CreatePlaceInput{
		NovelID:            input.Body.NovelID,
		Name:               input.Body.Name,
		Description:        input.Body.Description,
		Images:             input.Body.Images,
		LinkedCharacterIDs: input.Body.LinkedCharacterIDs,
	})
	if err != nil {
		return nil, err
	}

	return &PlaceOutput{Body: mapPlaceResponse(place)}, nil
}

func (s *Server) handleGetPlace(ctx context.Context, input *GetPlaceInput) (*PlaceOutput, error) {
	place, err := s.services.Place.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, huma.Error404NotFound("place not found")
	}

	return &PlaceOutput{Body: mapPlaceResponse(place)}, nil
}

func (s *Server) handleUpdatePlace(ctx context.Context, input *UpdatePlaceInput) (*PlaceOutput, error) {
	place, err := s.services.Place.Update(ctx, input.ID, domain.PlacePatch{
		NovelID:            input.Body.NovelID,
		Name:               input.Body.Name,
		Description:        input.Body.Description,
		Images:             input.Body.Images,
		LinkedCharacterIDs: input.Body.LinkedCharacterIDs,
	})
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, huma.Error404NotFound("place not found")
	}

	return &PlaceOutput{Body: mapPlaceResponse(place)}, nil
}

func (s *Server) handleDeletePlace(ctx context.Context, input *DeletePlaceInput) (*MessageOutput, error) {
	if err := s.services.Place.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Place deleted"}}, nil
}

// === Mappers ===

func mapPlaceResponse(p *domain.Place) PlaceResponse {
	return PlaceResponse{
		ID:                 p.ID,
		NovelID:            p.NovelID,
		Name:               p.Name,
		Description:        p.Description,
		Images:             p.Images,
		LinkedCharacterIDs: p.LinkedCharacterIDs,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func mapPlaceResponses(places []*domain.Place) []PlaceResponse {
	resp := make([]PlaceResponse, len(places))
	for i, p := range places {
		resp[i] = mapPlaceResponse(p)
	}
	return resp
}
