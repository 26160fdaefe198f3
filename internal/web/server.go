package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/studyplan/internal/config"
	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/qa"
	"github.com/conorfennell/studyplan/internal/storage"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	config   config.ServerConfig
	db       *storage.DB
	qa       *qa.Service
	exams    []domain.ExamEvent
	reposDir string
	router   *chi.Mux
	validate *validator.Validate
	now      func() time.Time
}

// NewServer creates and configures a new server. exams must be sorted by date.
func NewServer(cfg config.ServerConfig, db *storage.DB, svc *qa.Service, exams []domain.ExamEvent, reposDir string) *Server {
	s := &Server{
		config:   cfg,
		db:       db,
		qa:       svc,
		exams:    exams,
		reposDir: reposDir,
		validate: config.NewValidator(),
		now:      time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Study plan
		r.Post("/extract", s.handleExtract)
		r.Get("/schedule", s.handleGetSchedule)
		r.Post("/schedule", s.handlePostSchedule)
		r.Get("/exams", s.handleExams)
		r.Get("/progress", s.handleProgress)
		r.Get("/calendar", s.handleCalendar)

		// Questions and answers
		r.Post("/qa", s.handleGenerate)
		r.Post("/chat", s.handleChat)
		r.Route("/sets", func(r chi.Router) {
			r.Get("/", s.handleListSets)
			r.Get("/{name}", s.handleGetSet)
			r.Put("/{name}", s.handlePutSet)
			r.Delete("/{name}", s.handleDeleteSet)
		})

		// Source management
		r.Get("/sources", s.handleGetSources)
		r.Post("/sources", s.handlePostSource)
		r.Delete("/sources/{id}", s.handleDeleteSource)
		r.Post("/sync", s.handlePostSync)
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
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "unhealthy", "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}
