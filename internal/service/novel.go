package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	domainerrors "github.com/novelcompanionapp/companion-server/internal/errors"
	"github.com/novelcompanionapp/companion-server/internal/id"
	"github.com/novelcompanionapp/companion-server/internal/sse"
	"github.com/novelcompanionapp/companion-server/internal/store"
	"github.com/novelcompanionapp/companion-server/internal/validation"
)

// NovelService manages the novel collection and the cascade that removes a
// novel's dependents with it.
type NovelService struct {
	store     store.Store
	logger    *slog.Logger
	emitter   EventEmitter
	indexer   SearchIndexer
	validator *validation.Validator
}

// NewNovelService creates a new novel service.
func NewNovelService(store store.Store, logger *slog.Logger) *NovelService {
	return &NovelService{
		store:     store,
		logger:    logger,
		emitter:   NewNoopEmitter(),
		indexer:   NewNoopSearchIndexer(),
		validator: validation.New(),
	}
}

// SetEventEmitter sets the emitter used to broadcast novel events.
func (s *NovelService) SetEventEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// SetSearchIndexer sets the indexer used to keep search in sync.
func (s *NovelService) SetSearchIndexer(indexer SearchIndexer) {
	s.indexer = indexer
}

// CreateNovelInput carries the caller-settable fields for a new novel.
// Ids and timestamps are assigned by the service.
type CreateNovelInput struct {
	Title      string `json:"title" validate:"required,max=500"`
	Author     string `json:"author" validate:"omitempty,max=200"`
	CoverImage string `json:"coverImage"`
}

// List returns all novels ordered by updatedAt ascending, oldest first.
// Callers wanting most-recently-touched first reverse the slice.
func (s *NovelService) List(ctx context.Context) ([]*domain.Novel, error) {
	return listRecords[domain.Novel](ctx, s.store, store.CollectionNovels, store.IndexByUpdated, "")
}

// Get returns a novel by id, or (nil, nil) when absent.
func (s *NovelService) Get(ctx context.Context, novelID string) (*domain.Novel, error) {
	return getRecord[domain.Novel](ctx, s.store, store.CollectionNovels, novelID)
}

// Create persists a new novel and returns it with id and timestamps
// assigned.
func (s *NovelService) Create(ctx context.Context, input CreateNovelInput) (*domain.Novel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, domainerrors.Validation("novel title is required")
	}

	novelID, err := id.Generate(id.PrefixNovel)
	if err != nil {
		return nil, fmt.Errorf("generate novel ID: %w", err)
	}

	novel := &domain.Novel{
		Title:      input.Title,
		Author:     input.Author,
		CoverImage: input.CoverImage,
	}
	novel.ID = novelID
	novel.InitTimestamps()

	raw, err := encodeRecord(novel)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, store.CollectionNovels, raw); err != nil {
		return nil, fmt.Errorf("create novel: %w", err)
	}

	s.logger.Info("novel created",
		"novel_id", novelID,
		"title", novel.Title,
	)

	s.emitter.Emit(sse.NewNovelCreatedEvent(novel))
	s.indexNovel(ctx, novel)

	return novel, nil
}

// Update applies a patch to a novel. Absent novels return (nil, nil) with
// no side effects; the id cannot be changed by a patch.
func (s *NovelService) Update(ctx context.Context, novelID string, patch domain.NovelPatch) (*domain.Novel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var novel *domain.Novel
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Novel](tx, store.CollectionNovels, novelID)
		if err != nil || existing == nil {
			return err
		}

		patch.Apply(existing)
		existing.Touch()

		if err := txnPut(tx, store.CollectionNovels, existing); err != nil {
			return err
		}
		novel = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update novel: %w", err)
	}
	if novel == nil {
		return nil, nil
	}

	s.logger.Info("novel updated", "novel_id", novelID)

	s.emitter.Emit(sse.NewNovelUpdatedEvent(novel))
	s.indexNovel(ctx, novel)

	return novel, nil
}

// Delete removes a novel together with its characters, places, notes, and
// their images in one transaction. The cover image is a loose reference
// and survives. Deleting an absent novel is a no-op.
func (s *NovelService) Delete(ctx context.Context, novelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var res *cascadeResult
	err := s.store.Update(ctx, func(tx store.Txn) error {
		var err error
		res, err = cascadeDelete(tx, store.CollectionNovels, novelID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete novel: %w", err)
	}
	if res == nil {
		return nil
	}

	characters := res.count(store.CollectionCharacters)
	places := res.count(store.CollectionPlaces)
	notes := res.count(store.CollectionNotes)

	s.logger.Info("novel deleted",
		"novel_id", novelID,
		"characters", characters,
		"places", places,
		"notes", notes,
		"images", res.Images,
	)

	s.emitter.Emit(sse.NewNovelDeletedEvent(novelID, characters, places, notes, res.Images))
	s.deindexCascade(ctx, res)

	return nil
}

func (s *NovelService) indexNovel(ctx context.Context, novel *domain.Novel) {
	if err := s.indexer.IndexNovel(ctx, novel); err != nil {
		s.logger.Warn("failed to index novel", "novel_id", novel.ID, "error", err)
	}
}

// deindexCascade drops every record a cascade removed from the search
// index. Failures are logged and skipped so search never blocks a delete.
func (s *NovelService) deindexCascade(ctx context.Context, res *cascadeResult) {
	drop := func(err error, kind, recordID string) {
		if err != nil {
			s.logger.Warn("failed to remove "+kind+" from search index", "id", recordID, "error", err)
		}
	}
	for _, novelID := range res.Deleted[store.CollectionNovels] {
		drop(s.indexer.DeleteNovel(ctx, novelID), "novel", novelID)
	}
	for _, characterID := range res.Deleted[store.CollectionCharacters] {
		drop(s.indexer.DeleteCharacter(ctx, characterID), "character", characterID)
	}
	for _, placeID := range res.Deleted[store.CollectionPlaces] {
		drop(s.indexer.DeletePlace(ctx, placeID), "place", placeID)
	}
	for _, noteID := range res.Deleted[store.CollectionNotes] {
		drop(s.indexer.DeleteNote(ctx, noteID), "note", noteID)
	}
}
