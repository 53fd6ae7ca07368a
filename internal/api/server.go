// Package api provides the HTTP API server and handlers for the Readalong application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readalongapp/readalong-server/internal/ratelimit"
	"github.com/readalongapp/readalong-server/internal/sse"
	"github.com/readalongapp/readalong-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           *store.Store
	services        *Services
	sseHandler      *sse.Handler
	sseManager      *sse.Manager
	auth            Authenticator
	progressLimiter *ratelimit.KeyedRateLimiter
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseHandler *sse.Handler, sseManager *sse.Manager, auth Authenticator, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("Readalong API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:   "http",
			Scheme: "bearer",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s := &Server{
		store:      st,
		services:   services,
		sseHandler: sseHandler,
		sseManager: sseManager,
		auth:       auth,
		// Progress writes arrive on every pause/unmount; one client ticking
		// normally stays far below this.
		progressLimiter: ratelimit.New(5, 10),
		router:          router,
		logger:          logger,
	}

	s.setupMiddleware()

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerProgressRoutes()
	s.registerSearchRoutes()
	s.setupRawRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", identityHeader},
		MaxAge:         300,
	}))
	s.router.Use(authMiddleware(s.auth))
}

// setupRawRoutes configures routes that bypass huma: byte streams and SSE.
func (s *Server) setupRawRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/books/{bookID}/chapters/{chapterID}/audio", s.handleStreamAudio)
		r.Get("/events", s.sseHandler.ServeHTTP)
	})
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.progressLimiter.Stop()
}
