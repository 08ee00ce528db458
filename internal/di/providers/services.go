package providers

import (
	"github.com/samber/do/v2"

	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/config"
	"github.com/novelcompanionapp/companion-server/internal/logger"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

// ProvideNovelService provides the novel service.
func ProvideNovelService(i do.Injector) (*service.NovelService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewNovelService(storeHandle.Store, log.Logger)
	svc.SetEventEmitter(sseHandle.Manager)
	svc.SetSearchIndexer(searchService)

	return svc, nil
}

// ProvideCharacterService provides the character service.
func ProvideCharacterService(i do.Injector) (*service.CharacterService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewCharacterService(storeHandle.Store, log.Logger)
	svc.SetEventEmitter(sseHandle.Manager)
	svc.SetSearchIndexer(searchService)

	return svc, nil
}

// ProvidePlaceService provides the place service.
func ProvidePlaceService(i do.Injector) (*service.PlaceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewPlaceService(storeHandle.Store, log.Logger)
	svc.SetEventEmitter(sseHandle.Manager)
	svc.SetSearchIndexer(searchService)

	return svc, nil
}

// ProvideNoteService provides the note service.
func ProvideNoteService(i do.Injector) (*service.NoteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewNoteService(storeHandle.Store, log.Logger)
	svc.SetEventEmitter(sseHandle.Manager)
	svc.SetSearchIndexer(searchService)

	return svc, nil
}

// ProvideImageService provides the image service.
func ProvideImageService(i do.Injector) (*service.ImageService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewImageService(storeHandle.Store, log.Logger), nil
}

// ProvideBackupService provides the backup service.
func ProvideBackupService(i do.Injector) (*backup.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := backup.NewService(storeHandle.Store, cfg.Storage.BackupPath, log.Logger)
	svc.SetEventEmitter(sseHandle.Manager)

	return svc, nil
}
