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

// CharacterService manages characters, their owned images, and the
// advisory links between characters of the same novel.
type CharacterService struct {
	store     store.Store
	logger    *slog.Logger
	emitter   EventEmitter
	indexer   SearchIndexer
	validator *validation.Validator
}

// NewCharacterService creates a new character service.
func NewCharacterService(store store.Store, logger *slog.Logger) *CharacterService {
	return &CharacterService{
		store:     store,
		logger:    logger,
		emitter:   NewNoopEmitter(),
		indexer:   NewNoopSearchIndexer(),
		validator: validation.New(),
	}
}

// SetEventEmitter sets the emitter used to broadcast character events.
func (s *CharacterService) SetEventEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

// SetSearchIndexer sets the indexer used to keep search in sync.
func (s *CharacterService) SetSearchIndexer(indexer SearchIndexer) {
	s.indexer = indexer
}

// CreateCharacterInput carries the caller-settable fields for a new
// character.
type CreateCharacterInput struct {
	NovelID            string       `json:"novelId" validate:"required"`
	Name               string       `json:"name" validate:"required,max=200"`
	Description        string       `json:"description"`
	Images             []string     `json:"images"`
	Tags               []domain.Tag `json:"tags"`
	LinkedCharacterIDs []string     `json:"linkedCharacterIds"`
	LinkedPlaceIDs     []string     `json:"linkedPlaceIds"`
}

// List returns all characters across all novels ordered by updatedAt
// ascending.
func (s *CharacterService) List(ctx context.Context) ([]*domain.Character, error) {
	return listRecords[domain.Character](ctx, s.store, store.CollectionCharacters, store.IndexByUpdated, "")
}

// ListByNovel returns a novel's characters ordered by updatedAt ascending.
func (s *CharacterService) ListByNovel(ctx context.Context, novelID string) ([]*domain.Character, error) {
	characters, err := listRecords[domain.Character](ctx, s.store, store.CollectionCharacters, store.IndexByNovel, novelID)
	if err != nil {
		return nil, err
	}
	// The by-novel index groups without ordering, so sort here.
	slices.SortFunc(characters, func(a, b *domain.Character) int {
		if c := a.UpdatedAt.Compare(b.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return characters, nil
}

// Get returns a character by id, or (nil, nil) when absent.
func (s *CharacterService) Get(ctx context.Context, characterID string) (*domain.Character, error) {
	return getRecord[domain.Character](ctx, s.store, store.CollectionCharacters, characterID)
}

// Create persists a new character under an existing novel and returns it
// with id and timestamps assigned.
func (s *CharacterService) Create(ctx context.Context, input CreateCharacterInput) (*domain.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, domainerrors.Validation("character name is required")
	}
	if err := domain.ValidateTags(input.Tags); err != nil {
		return nil, domainerrors.Validationf("invalid character tags: %v", err)
	}

	characterID, err := id.Generate(id.PrefixCharacter)
	if err != nil {
		return nil, fmt.Errorf("generate character ID: %w", err)
	}

	character := &domain.Character{
		NovelID:            input.NovelID,
		Name:               input.Name,
		Description:        input.Description,
		Images:             input.Images,
		Tags:               input.Tags,
		LinkedCharacterIDs: input.LinkedCharacterIDs,
		LinkedPlaceIDs:     input.LinkedPlaceIDs,
	}
	character.ID = characterID
	character.InitTimestamps()
	character.EnsureSlices()

	// The novel-existence check and the write share a transaction so the
	// novel cannot vanish between them.
	err = s.store.Update(ctx, func(tx store.Txn) error {
		novel, err := txnGet[domain.Novel](tx, store.CollectionNovels, input.NovelID)
		if err != nil {
			return err
		}
		if novel == nil {
			return domainerrors.Validationf("novel %s does not exist", input.NovelID)
		}
		return txnPut(tx, store.CollectionCharacters, character)
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create character: %w", err)
	}

	s.logger.Info("character created",
		"character_id", characterID,
		"novel_id", input.NovelID,
		"name", character.Name,
	)

	s.emitter.Emit(sse.NewCharacterCreatedEvent(character))
	s.indexCharacter(ctx, character)

	return character, nil
}

// Update applies a patch to a character. Absent characters return
// (nil, nil) with no side effects; the id cannot be changed by a patch.
func (s *CharacterService) Update(ctx context.Context, characterID string, patch domain.CharacterPatch) (*domain.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if patch.Tags != nil {
		if err := domain.ValidateTags(*patch.Tags); err != nil {
			return nil, domainerrors.Validationf("invalid character tags: %v", err)
		}
	}

	var character *domain.Character
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Character](tx, store.CollectionCharacters, characterID)
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

		if err := txnPut(tx, store.CollectionCharacters, existing); err != nil {
			return err
		}
		character = existing
		return nil
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("update character: %w", err)
	}
	if character == nil {
		return nil, nil
	}

	s.logger.Info("character updated", "character_id", characterID)

	s.emitter.Emit(sse.NewCharacterUpdatedEvent(character))
	s.indexCharacter(ctx, character)

	return character, nil
}

// Delete removes a character and its owned images in one transaction, then
// scrubs the deleted id from every same-novel character's
// linkedCharacterIds as a separate pass. The scrub runs after the primary
// delete commits; if it fails, the delete stays committed, the error
// propagates, and rerunning leaves the same end state. Deleting an absent
// character is a no-op.
func (s *CharacterService) Delete(ctx context.Context, characterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var novelID string
	var res *cascadeResult
	err := s.store.Update(ctx, func(tx store.Txn) error {
		existing, err := txnGet[domain.Character](tx, store.CollectionCharacters, characterID)
		if err != nil || existing == nil {
			return err
		}
		novelID = existing.NovelID
		res, err = cascadeDelete(tx, store.CollectionCharacters, characterID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete character: %w", err)
	}
	if res == nil {
		return nil
	}

	s.logger.Info("character deleted",
		"character_id", characterID,
		"novel_id", novelID,
		"images", res.Images,
	)

	s.emitter.Emit(sse.NewCharacterDeletedEvent(characterID, novelID))
	if err := s.indexer.DeleteCharacter(ctx, characterID); err != nil {
		s.logger.Warn("failed to remove character from search index", "character_id", characterID, "error", err)
	}

	if err := s.scrubLinkedReferences(ctx, characterID, novelID); err != nil {
		return fmt.Errorf("clean up character links: %w", err)
	}
	return nil
}

// scrubLinkedReferences removes characterID from the linkedCharacterIds of
// every remaining character in the novel, refreshing updatedAt on each one
// it touches. Links are advisory, so a crash before this pass leaves a
// dangling id that read paths tolerate until the next scrub.
func (s *CharacterService) scrubLinkedReferences(ctx context.Context, characterID, novelID string) error {
	var touched []*domain.Character
	err := s.store.Update(ctx, func(tx store.Txn) error {
		touched = touched[:0]
		siblings, err := txnList[domain.Character](tx, store.CollectionCharacters, store.IndexByNovel, novelID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if !sibling.RemoveLinkedCharacter(characterID) {
				continue
			}
			sibling.Touch()
			if err := txnPut(tx, store.CollectionCharacters, sibling); err != nil {
				return err
			}
			touched = append(touched, sibling)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(touched) > 0 {
		s.logger.Info("character links cleaned",
			"character_id", characterID,
			"novel_id", novelID,
			"characters_updated", len(touched),
		)
	}
	for _, sibling := range touched {
		s.emitter.Emit(sse.NewCharacterUpdatedEvent(sibling))
		s.indexCharacter(ctx, sibling)
	}
	return nil
}

func (s *CharacterService) indexCharacter(ctx context.Context, character *domain.Character) {
	if err := s.indexer.IndexCharacter(ctx, character); err != nil {
		s.logger.Warn("failed to index character", "character_id", character.ID, "error", err)
	}
}
