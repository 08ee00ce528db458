// Package api provides the HTTP API server and handlers for the Novel Companion.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/novelcompanionapp/companion-server/internal/config"
	"github.com/novelcompanionapp/companion-server/internal/sse"
	"github.com/novelcompanionapp/companion-server/internal/store"
)

const (
	apiTitle   = "Novel Companion API"
	apiVersion = "1.0.0"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        store.Store
	services     *Services
	sseManager   *sse.Manager
	sseHandler   *sse.Handler
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
	writeLimiter *RateLimiter
}

// NewServer creates an HTTP server with all routes configured. The huma API
// rides on a chi router, so OpenAPI-described operations and raw endpoints
// (SSE, image bytes) share one middleware stack.
func NewServer(cfg *config.Config, st store.Store, services *Services, sseManager *sse.Manager, logger *slog.Logger) *Server {
	s := &Server{
		store:        st,
		services:     services,
		sseManager:   sseManager,
		sseHandler:   sse.NewHandler(sseManager, logger),
		router:       chi.NewRouter(),
		logger:       logger,
		writeLimiter: NewRateLimiter(120, time.Minute, 30),
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig(apiTitle, apiVersion)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerNovelRoutes()
	s.registerCharacterRoutes()
	s.registerPlaceRoutes()
	s.registerNoteRoutes()
	s.registerImageRoutes()
	s.registerSearchRoutes()
	s.registerBackupRoutes()
	s.setupRawRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(RateLimitMiddleware(s.writeLimiter, s.logger))
}

// setupRawRoutes mounts the endpoints that bypass huma: the SSE stream
// (long-lived, non-JSON-body) and raw image bytes.
func (s *Server) setupRawRoutes() {
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	s.router.Get("/images/{id}", s.handleServeImage)
}

// Close releases server-held resources. The SSE manager and store are owned
// by the DI container and shut down there.
func (s *Server) Close() {
	s.writeLimiter.Stop()
}
