package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/novelcompanionapp/companion-server/internal/api"
	"github.com/novelcompanionapp/companion-server/internal/backup"
	"github.com/novelcompanionapp/companion-server/internal/config"
	"github.com/novelcompanionapp/companion-server/internal/logger"
	"github.com/novelcompanionapp/companion-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	// Get all services
	novelService := do.MustInvoke[*service.NovelService](i)
	characterService := do.MustInvoke[*service.CharacterService](i)
	placeService := do.MustInvoke[*service.PlaceService](i)
	noteService := do.MustInvoke[*service.NoteService](i)
	imageService := do.MustInvoke[*service.ImageService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	backupService := do.MustInvoke[*backup.Service](i)

	services := &api.Services{
		Novel:     novelService,
		Character: characterService,
		Place:     placeService,
		Note:      noteService,
		Image:     imageService,
		Search:    searchService,
		Backup:    backupService,
	}

	handler := api.NewServer(cfg, storeHandle.Store, services, sseHandle.Manager, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
