// Package httpserver provides the HTTP REST API for the scholar search
// service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/litscout/scholar-search-service/internal/database"
	"github.com/litscout/scholar-search-service/internal/domain"
	"github.com/litscout/scholar-search-service/internal/observability"
	"github.com/litscout/scholar-search-service/internal/pdf"
	"github.com/litscout/scholar-search-service/internal/repository"
)

// Searcher answers search queries, cache-first.
type Searcher interface {
	Search(ctx context.Context, query domain.SearchQuery, includeAbstracts bool) (*domain.SearchResult, error)
}

// TopicGenerator derives candidate research topics from papers.
type TopicGenerator interface {
	Generate(ctx context.Context, papers []domain.Paper, topicCount int) (*domain.TopicSet, error)
}

// ArtifactFetcher downloads one PDF into local artifact storage.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, pdfURL, paperID string) (*pdf.FetchResult, error)
}

// UploadStore persists uploaded PDF files under timestamped names.
type UploadStore interface {
	SaveUpload(name string, content []byte) (*pdf.StoredFile, error)
}

// HealthChecker reports persistence health for the probe endpoints.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	searcher       Searcher
	topics         TopicGenerator
	fetcher        ArtifactFetcher
	uploads        UploadStore
	abstracts      pdf.AbstractExtractor
	pdfRepo        repository.PDFRepository
	statsRepo      repository.StatsRepository
	health         HealthChecker
	metrics        *observability.Metrics
	logger         zerolog.Logger
	maxUploadBytes int64
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// NewServer creates the HTTP server with all dependencies wired.
func NewServer(
	cfg Config,
	searcher Searcher,
	topics TopicGenerator,
	fetcher ArtifactFetcher,
	uploads UploadStore,
	abstracts pdf.AbstractExtractor,
	pdfRepo repository.PDFRepository,
	statsRepo repository.StatsRepository,
	health HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 * 1024 * 1024
	}

	s := &Server{
		searcher:       searcher,
		topics:         topics,
		fetcher:        fetcher,
		uploads:        uploads,
		abstracts:      abstracts,
		pdfRepo:        pdfRepo,
		statsRepo:      statsRepo,
		health:         health,
		metrics:        metrics,
		logger:         logger.With().Str("component", "http-server").Logger(),
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContextMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.searchPapers)
		r.Post("/generate-topics", s.generateTopics)
		r.Post("/upload-pdf", s.uploadPDF)
		r.Post("/download-pdf/{paperID}", s.downloadPDF)
		r.Get("/stats", s.getStats)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns liveness: the process is up and serving.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
