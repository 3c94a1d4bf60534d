// Package httpserver provides the HTTP REST API for the catalog service.
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
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/litcatalog/catalog-service/internal/crawler"
	"github.com/litcatalog/catalog-service/internal/database"
	"github.com/litcatalog/catalog-service/internal/metasources"
	"github.com/litcatalog/catalog-service/internal/observability"
	"github.com/litcatalog/catalog-service/internal/repository"
	"github.com/litcatalog/catalog-service/internal/suggest"
)

// Database is the database surface the server needs: transactions for
// crawls and health for the probes. *database.DB satisfies it.
type Database interface {
	crawler.Transactor
	Health(ctx context.Context) database.HealthStatus
}

// Suggester produces best-effort key-phrase suggestions for a paper
// abstract. *suggest.Client satisfies it.
type Suggester interface {
	KeyPhrases(ctx context.Context, text string) suggest.Result
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server

	registry  *metasources.Registry
	db        Database
	stores    crawler.StoreFactory
	papers    repository.PaperRepository
	authors   repository.AuthorRepository
	keywords  repository.KeywordRepository
	tags      repository.TagRepository
	suggester Suggester

	validate *validator.Validate
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
// suggester may be nil, which disables the key-phrase side call.
func NewServer(
	cfg Config,
	registry *metasources.Registry,
	db Database,
	stores crawler.StoreFactory,
	papers repository.PaperRepository,
	authors repository.AuthorRepository,
	keywords repository.KeywordRepository,
	tags repository.TagRepository,
	suggester Suggester,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		registry:  registry,
		db:        db,
		stores:    stores,
		papers:    papers,
		authors:   authors,
		keywords:  keywords,
		tags:      tags,
		suggester: suggester,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "http-server").Logger(),
		metrics:   metrics,
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
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogMiddleware(s.logger))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/papers", s.crawlPaper)
		r.Get("/papers", s.listPapers)
		// Lookup takes the reference id as a query parameter because DOIs
		// contain slashes and cannot live in a path segment.
		r.Get("/papers/lookup", s.getPaperByReference)
		r.Get("/papers/{paperID}", s.getPaper)
		r.Post("/papers/{paperID}/refresh", s.refreshPaper)
		r.Get("/authors/{authorID}", s.getAuthor)
		r.Get("/search", s.searchPapers)
		r.Get("/tags/{kind}", s.listTags)
	})

	return r
}

// Start starts the HTTP server.
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

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
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
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
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
