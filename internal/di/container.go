// Package di provides dependency injection configuration for the Novel Companion server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/config"
	"github.com/novelcompanionapp/companion-server/internal/di/providers"
	"github.com/novelcompanionapp/companion-server/internal/logger"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvideNovelService)
	do.Provide(injector, providers.ProvideCharacterService)
	do.Provide(injector, providers.ProvidePlaceService)
	do.Provide(injector, providers.ProvideNoteService)
	do.Provide(injector, providers.ProvideImageService)
	do.Provide(injector, providers.ProvideBackupService)

	// Workers
	do.Provide(injector, providers.ProvideBackupWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)

	// Business services
	_ = do.MustInvoke[*service.NovelService](injector)
	_ = do.MustInvoke[*service.CharacterService](injector)
	_ = do.MustInvoke[*service.PlaceService](injector)
	_ = do.MustInvoke[*service.NoteService](injector)
	_ = do.MustInvoke[*service.ImageService](injector)
	_ = do.MustInvoke[*backup.Service](injector)

	// Workers
	_ = do.MustInvoke[*providers.BackupWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
