package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/novelcompanionapp/companion-server/internal/domain"
	"github.com/novelcompanionapp/companion-server/internal/search"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// SearchService bridges the search index and the data store. It satisfies
// SearchIndexer, so the entity services keep the index current as they
// mutate records, and it serves queries and full reindexes.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a query across every indexed entity.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexNovel indexes a single novel. Called on create and update.
func (s *SearchService) IndexNovel(_ context.Context, novel *domain.Novel) error {
	if err := s.index.IndexDocument(search.NovelToDocument(novel)); err != nil {
		return fmt.Errorf("index novel: %w", err)
	}
	s.logger.Debug("indexed novel", "novel_id", novel.ID, "title", novel.Title)
	return nil
}

// DeleteNovel removes a novel from the index.
func (s *SearchService) DeleteNovel(_ context.Context, novelID string) error {
	return s.index.DeleteDocument(novelID)
}

// IndexCharacter indexes a single character.
func (s *SearchService) IndexCharacter(_ context.Context, character *domain.Character) error {
	if err := s.index.IndexDocument(search.CharacterToDocument(character)); err != nil {
		return fmt.Errorf("index character: %w", err)
	}
	s.logger.Debug("indexed character", "character_id", character.ID, "name", character.Name)
	return nil
}

// DeleteCharacter removes a character from the index.
func (s *SearchService) DeleteCharacter(_ context.Context, characterID string) error {
	return s.index.DeleteDocument(characterID)
}

// IndexPlace indexes a single place.
func (s *SearchService) IndexPlace(_ context.Context, place *domain.Place) error {
	if err := s.index.IndexDocument(search.PlaceToDocument(place)); err != nil {
		return fmt.Errorf("index place: %w", err)
	}
	s.logger.Debug("indexed place", "place_id", place.ID, "name", place.Name)
	return nil
}

// DeletePlace removes a place from the index.
func (s *SearchService) DeletePlace(_ context.Context, placeID string) error {
	return s.index.DeleteDocument(placeID)
}

// IndexNote indexes a single note.
func (s *SearchService) IndexNote(_ context.Context, note *domain.Note) error {
	if err := s.index.IndexDocument(search.NoteToDocument(note)); err != nil {
		return fmt.Errorf("index note: %w", err)
	}
	s.logger.Debug("indexed note", "note_id", note.ID, "title", note.Title)
	return nil
}

// DeleteNote removes a note from the index.
func (s *SearchService) DeleteNote(_ context.Context, noteID string) error {
	return s.index.DeleteDocument(noteID)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// ReindexAll drops the index and rebuilds it from every record in the
// store. Heavy relative to everything else here, but a personal datastore
// stays small enough that blocking briefly is fine.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	s.logger.Info("starting full reindex")

	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	var docs []*search.Document

	novels, err := listRecords[domain.Novel](ctx, s.store, store.CollectionNovels, store.IndexByUpdated, "")
	if err != nil {
		return fmt.Errorf("list novels: %w", err)
	}
	for _, novel := range novels {
		docs = append(docs, search.NovelToDocument(novel))
	}

	characters, err := listRecords[domain.Character](ctx, s.store, store.CollectionCharacters, store.IndexByUpdated, "")
	if err != nil {
		return fmt.Errorf("list characters: %w", err)
	}
	for _, character := range characters {
		docs = append(docs, search.CharacterToDocument(character))
	}

	places, err := listRecords[domain.Place](ctx, s.store, store.CollectionPlaces, store.IndexByUpdated, "")
	if err != nil {
		return fmt.Errorf("list places: %w", err)
	}
	for _, place := range places {
		docs = append(docs, search.PlaceToDocument(place))
	}

	notes, err := listRecords[domain.Note](ctx, s.store, store.CollectionNotes, store.IndexByUpdated, "")
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	for _, note := range notes {
		docs = append(docs, search.NoteToDocument(note))
	}

	if len(docs) > 0 {
		if err := s.index.IndexDocuments(docs); err != nil {
			return fmt.Errorf("index documents: %w", err)
		}
	}

	total, _ := s.index.DocumentCount()
	s.logger.Info("full reindex complete", "documents", total)

	return nil
}
