package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

func (s *Server) registerNoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List notes",
		Description: "Returns all notes across all novels",
		Tags:        []string{"Notes"},
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNovelNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/novels/{novelId}/notes",
		Summary:     "List novel notes",
		Description: "Returns the notes that belong to a novel",
		Tags:        []string{"Notes"},
	}, s.handleListNovelNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "createNote",
		Method:      http.MethodPost,
		Path:        "/api/v1/notes",
		Summary:     "Create note",
		Description: "Creates a new note in a novel",
		Tags:        []string{"Notes"},
	}, s.handleCreateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Get note",
		Description: "Returns a note by ID",
		Tags:        []string{"Notes"},
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPatch,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Update note",
		Description: "Applies a partial update to a note",
		Tags:        []string{"Notes"},
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteNote",
		Method:      http.MethodDelete,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Delete note",
		Description: "Deletes a note",
		Tags:        []string{"Notes"},
	}, s.handleDeleteNote)
}

// === DTOs ===

type NoteResponse struct {
	ID                 string    `json:"id" doc:"Note ID"`
	NovelID            string    `json:"novelId" doc:"Owning novel ID"`
	Title              string    `json:"title" doc:"Note title"`
	Content            string    `json:"content,omitempty" doc:"Note body"`
	LinkedCharacterIDs []string  `json:"linkedCharacterIds" doc:"Linked character IDs"`
	LinkedPlaceIDs     []string  `json:"linkedPlaceIds" doc:"Linked place IDs"`
	CreatedAt          time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt          time.Time `json:"updatedAt" doc:"Last update time"`
}

type ListNotesResponse struct {
	Notes []NoteResponse `json:"notes" doc:"List of notes"`
}

type ListNotesOutput struct {
	Body ListNotesResponse
}

type ListNovelNotesInput struct {
	NovelID string `path:"novelId" doc:"Novel ID"`
}

type CreateNoteRequest struct {
	NovelID            string   `json:"novelId" validate:"required" doc:"Owning novel ID"`
	Title              string   `json:"title" validate:"required,max=500" doc:"Note title"`
	Content            string   `json:"content,omitempty" doc:"Note body"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds,omitempty" doc:"Linked character IDs"`
	LinkedPlaceIDs     []string `json:"linkedPlaceIds,omitempty" doc:"Linked place IDs"`
}

type CreateNoteInput struct {
	Body CreateNoteRequest
}

type NoteOutput struct {
	Body NoteResponse
}

type GetNoteInput struct {
	ID string `path:"id" doc:"Note ID"`
}

type UpdateNoteRequest struct {
	NovelID            *string   `json:"novelId,omitempty" doc:"Owning novel ID"`
	Title              *string   `json:"title,omitempty" doc:"Note title"`
	Content            *string   `json:"content,omitempty" doc:"Note body"`
	LinkedCharacterIDs *[]string `json:"linkedCharacterIds,omitempty" doc:"Linked character IDs"`
	LinkedPlaceIDs     *[]string `json:"linkedPlaceIds,omitempty" doc:"Linked place IDs"`
}

type UpdateNoteInput struct {
	ID   string `path:"id" doc:"Note ID"`
	Body UpdateNoteRequest
}

type DeleteNoteInput struct {
	ID string `path:"id" doc:"Note ID"`
}

// === Handlers ===

func (s *Server) handleListNotes(ctx context.Context, _ *struct{}) (*ListNotesOutput, error) {
	notes, err := s.services.Note.List(ctx)
	if err != nil {
		return nil, err
	}

	return &ListNotesOutput{Body: ListNotesResponse{Notes: mapNoteResponses(notes)}}, nil
}

func (s *Server) handleListNovelNotes(ctx context.Context, input *ListNovelNotesInput) (*ListNotesOutput, error) {
	notes, err := s.services.Note.ListByNovel(ctx, input.NovelID)
	if err != nil {
		return nil, err
	}

	return &ListNotesOutput{Body: ListNotesResponse{Notes: mapNoteResponses(notes)}}, nil
}

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*NoteOutput, error) {
	note, err := s.services.Note.Create(ctx, service.CreateNoteInput{
		NovelID:            input.Body.NovelID,
		Title:              input.Body.Title,
		Content:            input.Body.Content,
		LinkedCharacterIDs: input.Body.LinkedCharacterIDs,
		LinkedPlaceIDs:     input.Body.LinkedPlaceIDs,
	})
	if err != nil {
		return nil, err
	}

	return &NoteOutput{Body: mapNoteResponse(note)}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *GetNoteInput) (*NoteOutput, error) {
	note, err := s.services.Note.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, huma.Error404NotFound("note not found")
	}

	return &NoteOutput{Body: mapNoteResponse(note)}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	note, err := s.services.Note.Update(ctx, input.ID, domain.NotePatch{
		NovelID:            input.Body.NovelID,
		Title:              input.Body.Title,
		Content:            input.Body.Content,
		LinkedCharacterIDs: input.Body.LinkedCharacterIDs,
		LinkedPlaceIDs:     input.Body.LinkedPlaceIDs,
	})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, huma.Error404NotFound("note not found")
	}

	return &NoteOutput{Body: mapNoteResponse(note)}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *DeleteNoteInput) (*MessageOutput, error) {
	if err := s.services.Note.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Note deleted"}}, nil
}

// === Mappers ===

func mapNoteResponse(n *domain.Note) NoteResponse {
	return NoteResponse{
		ID:                 n.ID,
		NovelID:            n.NovelID,
		Title:              n.Title,
		Content:            n.Content,
		LinkedCharacterIDs: n.LinkedCharacterIDs,
		LinkedPlaceIDs:     n.LinkedPlaceIDs,
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          n.UpdatedAt,
	}
}

func mapNoteResponses(notes []*domain.Note) []NoteResponse {
	resp := make([]NoteResponse, len(notes))
	for i, n := range notes {
		resp[i] = mapNoteResponse(n)
	}
	return resp
}
