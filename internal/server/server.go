// Package server provides the HTTP API for bookrec.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/bookrec/internal/catalog"
	"github.com/hyperjump/bookrec/internal/config"
	"github.com/hyperjump/bookrec/internal/loader"
	"github.com/hyperjump/bookrec/internal/metrics"
	"github.com/hyperjump/bookrec/internal/recommend"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// requestTimeout bounds handler execution.
const requestTimeout = 60 * time.Second

// Server is the HTTP server for the bookrec API.
type Server struct {
	holder  *loader.Holder
	ranker  *recommend.Ranker
	catalog catalog.Store // optional; backs book lookups and status counts
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server serving the models held by holder.
// store may be nil when no catalog database is configured.
func NewServer(holder *loader.Holder, store catalog.Store, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		holder: holder,
		ranker: recommend.NewRanker(holder,
			recommend.WithMaxLimit(cfg.Recommend.MaxLimit),
			recommend.WithLogger(logger)),
		catalog: store,
		config:  cfg,
		logger:  logger,
	}
}

// Handler returns the API router with all middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(requestTimeout))

	r.Post("/api/v1/recommendations", s.handleRecommendations)
	r.Get("/api/v1/books/{id}", s.handleGetBook)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeoutSec) * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
