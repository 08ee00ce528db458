package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/id"
	"github.com/novelcompanionapp/companion-server/internal/sse"
	"github.com/novelcompanionapp/companion-server/internal/store"
	"github.com/novelcompanionapp/companion-server/internal/validation"
)

// NoteService manages notes. Notes own no images, so their delete removes
// only the record itself.
type NoteService struct {
	store     store.Store
	logger    *slog.Logger
	emitter   EventEmitter
	indexer   SearchIndexer
	validator *validation.Validator
}

// NewNoteService creates a new note service.
func NewNoteService(store store.Store, logger *slog.Logger) *NoteService {
	return &NoteService{
		store:     store,
		logger:    logger,
		emitter:   NewNoopEmitter(),
		indexer:   NewNoopSearchIndexer(),
		validator: validation.New(),
	}
}

// SetEventEmitter sets the emitter used to broadcast note events.
func (s *NoteService) SetEventEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// SetSearchIndexer sets the indexer used to keep search in sync.
func (s *NoteService) SetSearchIndexer(indexer SearchIndexer) {
	s.indexer = indexer
}

// CreateNoteInput carries the caller-settable fields for a new note.
type CreateNoteInput struct {
	NovelID            string   `json:"novelId" validate:"required"`
	Title              string   `json:"title" validate:"required,max=500"`
	Content            string   `json:"content"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds"`
	LinkedPlaceIDs     []string `json:"linkedPlaceIds"`
}

// List returns all notes across all novels ordered by updatedAt ascending.
func (s *NoteService) List(ctx context.Context) ([]*domain.Note, error) {
	return listRecords[domain.Note](ctx, s.store, store.CollectionNotes, store.IndexByUpdated, "")
}

// ListByNovel returns a novel's notes ordered by updatedAt ascending.
func (s *NoteService) ListByNovel(ctx context.Context, novelID string) ([]*domain.Note, error) {
	notes, err := listRecords[domain.Note](ctx, s.store, store.CollectionNotes, store.IndexByNovel, novelID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(notes, func(a, b *domain.Note) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return notes, nil
}

// Get returns a note by id, or (nil, nil) when absent.
func (s *NoteService) Get(ctx context.Context, noteID string) (*domain.Note, error) {
	return getRecord[domain.Note](ctx, s.store, store.CollectionNotes, noteID)
}

// Create persists a new note under an existing novel and returns it with
// id and timestamps assigned.
func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, domainerrors.Validation("note title is required")
	}

	noteID, err := id.Generate(id.PrefixNote)
	if err != nil {
		return nil, fmt.Errorf("generate note ID: %w", err)
	}

	note := &domain.Note{
		NovelID:            input.NovelID,
		Title:              input.Title,
		Content:            input.Content,
		LinkedCharacterIDs: input.LinkedCharacterIDs,
		LinkedPlaceIDs:     input.LinkedPlaceIDs,
	}
	note.ID = noteID
	note.InitTimestamps()
	note.EnsureSlices()

	err = s.store.Update(ctx, func(tx store.Txn) error {
		novel, err := txnGet[domain.Novel](tx, store.CollectionNovels, input.NovelID)
		if err != nil {
			return err
		}
		if novel == nil {
			return domainerrors.Validationf("novel %s does not exist", input.NovelID)
		}
		return txnPut(tx, store.CollectionNotes, note)
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.Info("note created",
		"note_id", noteID,
		"novel_id", input.NovelID,
		"title", note.Title,
	)

	s.emitter.Emit(sse.NewNoteCreatedEvent(note))
	s.indexNote(ctx, note)

	return note, nil
}

// Update applies a patch to a note. Absent notes return (nil, nil) with no
// side effects; the id cannot be changed by a patch.
func (s *NoteService) Update(ctx context.Context, noteID string, patch domain.NotePatch) (*domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var note *domain.Note
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Note](tx, store.CollectionNotes, noteID)
		if err != nil || existing == nil {
			return err
		}

		if patch.NovelID != nil && *patch.NovelID != existing.NovelID {
			novel, err := txnGet[domain.Novel](tx, store.CollectionNovels, *patch.NovelID)
			if err != nil {
				return err
			}
			if novel == nil {
				return domainerrors.Validationf("novel %s does not exist", *patch.NovelID)
			}
		}

		patch.Apply(existing)
		existing.Touch()

		if err := txnPut(tx, store.CollectionNotes, existing); err != nil {
			return err
		}
		note = existing
		return nil
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	if note == nil {
		return nil, nil
	}

	s.logger.Info("note updated", "note_id", noteID)

	s.emitter.Emit(sse.NewNoteUpdatedEvent(note))
	s.indexNote(ctx, note)

	return note, nil
}

// Delete removes a note. Deleting an absent note is a no-op.
func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var novelID string
	var res *cascadeResult
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Note](tx, store.CollectionNotes, noteID)
		if err != nil || existing == nil {
			return err
		}
		novelID = existing.NovelID
		res, err = cascadeDelete(tx, store.CollectionNotes, noteID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if res == nil {
		return nil
	}

	s.logger.Info("note deleted", "note_id", noteID, "novel_id", novelID)

	s.emitter.Emit(sse.NewNoteDeletedEvent(noteID, novelID))
	if err := s.indexer.DeleteNote(ctx, noteID); err != nil {
		s.logger.Warn("failed to remove note from search index", "note_id", noteID, "error", err)
	}

	return nil
}

func (s *NoteService) indexNote(ctx context.Context, note *domain.Note) {
	if err := s.indexer.IndexNote(ctx, note); err != nil {
		s.logger.Warn("failed to index note", "note_id", note.ID, "error", err)
	}
}
