package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ClaireAgaba/informal-system-sub000/internal/config"
	"github.com/ClaireAgaba/informal-system-sub000/internal/health"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
	"github.com/ClaireAgaba/informal-system-sub000/internal/registration"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	service        registration.Service
	checks         *health.Registry
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. A nil checks registry makes /ready
// ping the service only.
func NewServer(cfg config.ServerConfig, service registration.Service, clients ClientStore, checks *health.Registry) *Server {
	s := &Server{
		config:         cfg,
		service:        service,
		checks:         checks,
		authMiddleware: NewAuthMiddleware(clients),
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)
		require := s.authMiddleware.RequirePermission

		r.Route("/occupations", func(r chi.Router) {
			r.Use(middleware.Timeout(timeout), require(models.PermCatalogRead))
			r.Get("/", s.handleListOccupations)
			r.Get("/{id}", s.handleGetOccupation)
		})

		r.Route("/series", func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.With(require(models.PermCatalogRead)).Get("/", s.handleListSeries)
			r.With(require(models.PermResultsRead)).Get("/{id}/marksheet", s.handleMarksheet)
		})

		r.Route("/candidates", func(r chi.Router) {
			// the composition websocket outlives any request timeout
			r.With(require(models.PermEnrollmentsRead)).Get("/{id}/compose", s.handleComposeWS)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(timeout))

				r.With(require(models.PermCandidatesRead)).Get("/", s.handleListCandidates)
				r.With(require(models.PermCandidatesWrite)).Post("/", s.handleCreateCandidate)

				r.With(require(models.PermCandidatesRead)).Post("/bulk-selection", s.handleBulkSelection)
				r.With(require(models.PermEnrollmentsWrite)).Post("/bulk-enroll", s.handleBulkEnroll)
				r.With(require(models.PermCandidatesWrite)).Post("/bulk-change-center", s.handleBulkChangeCenter)
				r.With(require(models.PermCandidatesWrite)).Post("/bulk-change-series", s.handleBulkChangeSeries)

				r.With(require(models.PermCandidatesRead)).Get("/{id}", s.handleGetCandidate)
				r.With(require(models.PermEnrollmentsRead)).Get("/{id}/enrollment-options", s.handleEnrollmentOptions)
				r.With(require(models.PermEnrollmentsRead)).Post("/{id}/fee-quote", s.handleFeeQuote)
				r.With(require(models.PermEnrollmentsWrite)).Post("/{id}/enroll", s.handleEnroll)
				r.With(require(models.PermEnrollmentsRead)).Get("/{id}/enrollments", s.handleListEnrollments)
			})
		})

		r.Route("/enrollments/{id}", func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			r.With(require(models.PermEnrollmentsAdmin)).Delete("/", s.handleClearEnrollment)
			r.With(require(models.PermResultsRead)).Get("/results", s.handleGetResults)
			r.With(require(models.PermResultsWrite)).Post("/results", s.handleAddResults)
			r.With(require(models.PermResultsWrite)).Put("/results", s.handleUpdateResults)
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
