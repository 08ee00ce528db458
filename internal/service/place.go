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

// PlaceService manages places and their owned images.
type PlaceService struct {
	store     store.Store
	logger    *slog.Logger
	emitter   EventEmitter
	indexer   SearchIndexer
	validator *validation.Validator
}

// NewPlaceService creates a new place service.
func NewPlaceService(store store.Store, logger *slog.Logger) *PlaceService {
	return &PlaceService{
		store:     store,
		logger:    logger,
		emitter:   NewNoopEmitter(),
		indexer:   NewNoopSearchIndexer(),
		validator: validation.New(),
	}
}

// SetEventEmitter sets the emitter used to broadcast place events.
func (s *PlaceService) SetEventEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// SetSearchIndexer sets the indexer used to keep search in sync.
func (s *PlaceService) SetSearchIndexer(indexer SearchIndexer) {
	s.indexer = indexer
}

// CreatePlaceInput carries the caller-settable fields for a new place.
type CreatePlaceInput struct {
	NovelID            string   `json:"novelId" validate:"required"`
	Name               string   `json:"name" validate:"required,max=200"`
	Description        string   `json:"description"`
	Images             []string `json:"images"`
	LinkedCharacterIDs []string `json:"linkedCharacterIds"`
}

// List returns all places across all novels ordered by updatedAt ascending.
func (s *PlaceService) List(ctx context.Context) ([]*domain.Place, error) {
	return listRecords[domain.Place](ctx, s.store, store.CollectionPlaces, store.IndexByUpdated, "")
}

// ListByNovel returns a novel's places ordered by updatedAt ascending.
func (s *PlaceService) ListByNovel(ctx context.Context, novelID string) ([]*domain.Place, error) {
	places, err := listRecords[domain.Place](ctx, s.store, store.CollectionPlaces, store.IndexByNovel, novelID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(places, func(a, b *domain.Place) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return places, nil
}

// Get returns a place by id, or (nil, nil) when absent.
func (s *PlaceService) Get(ctx context.Context, placeID string) (*domain.Place, error) {
	return getRecord[domain.Place](ctx, s.store, store.CollectionPlaces, placeID)
}

// Create persists a new place under an existing novel and returns it with
// id and timestamps assigned.
func (s *PlaceService) Create(ctx context.Context, input CreatePlaceInput) (*domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, domainerrors.Validation("place name is required")
	}

	placeID, err := id.Generate(id.PrefixPlace)
	if err != nil {
		return nil, fmt.Errorf("generate place ID: %w", err)
	}

	place := &domain.Place{
		NovelID:            input.NovelID,
		Name:               input.Name,
		Description:        input.Description,
		Images:             input.Images,
		LinkedCharacterIDs: input.LinkedCharacterIDs,
	}
	place.ID = placeID
	place.InitTimestamps()
	place.EnsureSlices()

	err = s.store.Update(ctx, func(tx store.Txn) error {
		novel, err := txnGet[domain.Novel](tx, store.CollectionNovels, input.NovelID)
		if err != nil {
			return err
		}
		if novel == nil {
			return domainerrors.Validationf("novel %s does not exist", input.NovelID)
		}
		return txnPut(tx, store.CollectionPlaces, place)
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create place: %w", err)
	}

	s.logger.Info("place created",
		"place_id", placeID,
		"novel_id", input.NovelID,
		"name", place.Name,
	)

	s.emitter.Emit(sse.NewPlaceCreatedEvent(place))
	s.indexPlace(ctx, place)

	return place, nil
}

// Update applies a patch to a place. Absent places return (nil, nil) with
// no side effects; the id cannot be changed by a patch.
func (s *PlaceService) Update(ctx context.Context, placeID string, patch domain.PlacePatch) (*domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var place *domain.Place
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Place](tx, store.CollectionPlaces, placeID)
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

		if err := txnPut(tx, store.CollectionPlaces, existing); err != nil {
			return err
		}
		place = existing
		return nil
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("update place: %w", err)
	}
	if place == nil {
		return nil, nil
	}

	s.logger.Info("place updated", "place_id", placeID)

	s.emitter.Emit(sse.NewPlaceUpdatedEvent(place))
	s.indexPlace(ctx, place)

	return place, nil
}

// Delete removes a place and its owned images in one transaction.
// Deleting an absent place is a no-op.
func (s *PlaceService) Delete(ctx context.Context, placeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var novelID string
	var res *cascadeResult
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Place](tx, store.CollectionPlaces, placeID)
		if err != nil || existing == nil {
			return err
		}
		novelID = existing.NovelID
		res, err = cascadeDelete(tx, store.CollectionPlaces, placeID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	if res == nil {
		return nil
	}

	s.logger.Info("place deleted",
		"place_id", placeID,
		"novel_id", novelID,
		"images", res.Images,
	)

	s.emitter.Emit(sse.NewPlaceDeletedEvent(placeID, novelID))
	if err := s.indexer.DeletePlace(ctx, placeID); err != nil {
		s.logger.Warn("failed to remove place from search index", "place_id", placeID, "error", err)
	}

	return nil
}

func (s *PlaceService) indexPlace(ctx context.Context, place *domain.Place) {
	if err := s.indexer.IndexPlace(ctx, place); err != nil {
		s.logger.Warn("failed to index place", "place_id", place.ID, "error", err)
	}
}
