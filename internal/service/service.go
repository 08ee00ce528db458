// Package service provides the business logic layer for managing novels,
// characters, places, notes, and their images.
package service

import (
	"context"

	"github.com/novelcompanionapp/companion-server/internal/domain"
)

// EventEmitter is the interface services use to broadcast changes.
// Services emit events after the storage transaction commits, so a client
// that reacts to an event always sees the new state.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer is the interface for updating the search index.
// Services use this to keep search in sync without depending on the search
// implementation. Index failures are logged, never propagated, so a broken
// index cannot block a mutation.
type SearchIndexer interface {
	IndexNovel(ctx context.Context, novel *domain.Novel) error
	DeleteNovel(ctx context.Context, novelID string) error
	IndexCharacter(ctx context.Context, character *domain.Character) error
	DeleteCharacter(ctx context.Context, characterID string) error
	IndexPlace(ctx context.Context, place *domain.Place) error
	DeletePlace(ctx context.Context, placeID string) error
	IndexNote(ctx context.Context, note *domain.Note) error
	DeleteNote(ctx context.Context, noteID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexNovel(context.Context, *domain.Novel) error         { return nil }
func (NoopSearchIndexer) DeleteNovel(context.Context, string) error               { return nil }
func (NoopSearchIndexer) IndexCharacter(context.Context, *domain.Character) error { return nil }
func (NoopSearchIndexer) DeleteCharacter(context.Context, string) error           { return nil }
func (NoopSearchIndexer) IndexPlace(context.Context, *domain.Place) error         { return nil }
func (NoopSearchIndexer) DeletePlace(context.Context, string) error               { return nil }
func (NoopSearchIndexer) IndexNote(context.Context, *domain.Note) error           { return nil }
func (NoopSearchIndexer) DeleteNote(context.Context, string) error                { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}
