package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/novelcompanionapp/companion-server/internal/config"
	"github.com/novelcompanionapp/companion-server/internal/logger"
	"github.com/novelcompanionapp/companion-server/internal/search"
	"github.com/novelcompanionapp/companion-server/internal/service"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Storage.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.SearchIndex, storeHandle.Store, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index when the store holds
// records, which happens after an index mapping bump or a deleted index
// directory. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := searchService.DocumentCount()
	if docCount > 0 {
		return
	}

	// Check whether any searchable records exist
	ctx := context.Background()
	searchable := []store.Collection{
		store.CollectionNovels,
		store.CollectionCharacters,
		store.CollectionPlaces,
		store.CollectionNotes,
	}
	hasRecords := false
	for _, c := range searchable {
		for _, err := range storeHandle.GetAll(ctx, c) {
			if err == nil {
				hasRecords = true
			}
			break
		}
		if hasRecords {
			break
		}
	}
	if !hasRecords {
		return
	}

	log.Info("Search index is empty but records exist, triggering initial reindex")

	go func() {
		reindexCtx := context.Background()
		if err := searchService.ReindexAll(reindexCtx); err != nil {
			log.Error("Initial search reindex failed", "error", err)
		} else {
			count, _ := searchService.DocumentCount()
			log.Info("Initial search reindex completed", "documents", count)
		}
	}()
}
