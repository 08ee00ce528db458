package api

import (
	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Novel     *service.NovelService
	Character *service.CharacterService
	Place     *service.PlaceService
	Note      *service.NoteService
	Image     *service.ImageService
	Search    *service.SearchService
	Backup    *backup.Service
}
