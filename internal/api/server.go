package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/practice-engine/internal/config"
	"github.com/terra-clan/practice-engine/internal/practice"
	"github.com/terra-clan/practice-engine/internal/storage"
)

// Permissions checked on API routes
const (
	PermQuestionsRead = "questions:read"
	PermRecordsRead   = "records:read"
	PermRecordsWrite  = "records:write"
	PermGenerate      = "generate:write"
	PermSessionRead   = "session:read"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	service        *practice.Service
	repo           storage.Repository
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	auth config.AuthConfig,
	service *practice.Service,
	repo storage.Repository,
) *Server {
	s := &Server{
		config:         cfg,
		service:        service,
		repo:           repo,
		authMiddleware: NewAuthMiddleware(auth.Clients),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Long-lived stream, no request timeout
		r.With(s.authMiddleware.RequirePermission(PermSessionRead)).Get("/session/events", s.handleSessionEvents)

		r.Group(func(r chi.Router) {
			timeout := s.config.RequestTimeout
			if timeout <= 0 {
				timeout = 60 * time.Second
			}
			r.Use(middleware.Timeout(timeout))

			r.Route("/questions", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission(PermQuestionsRead)).Post("/", s.handleListSession)
				r.With(s.authMiddleware.RequirePermission(PermQuestionsRead)).Get("/catalog", s.handleCatalog)
				r.With(s.authMiddleware.RequirePermission(PermRecordsRead)).Post("/records", s.handleLoadRecords)
				r.With(s.authMiddleware.RequirePermission(PermRecordsWrite)).Post("/cache", s.handleCache)
				r.With(s.authMiddleware.RequirePermission(PermRecordsWrite)).Post("/evaluate", s.handleEvaluate)
			})

			r.With(s.authMiddleware.RequirePermission(PermGenerate)).Post("/gemini", s.handleGenerate)
			r.With(s.authMiddleware.RequirePermission(PermGenerate)).Post("/session/prefetch", s.handlePrefetch)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
