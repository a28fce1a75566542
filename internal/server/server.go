// Package server provides the HTTP API for Tsunagu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/provider"
)

// Server is the HTTP server for the Tsunagu API.
type Server struct {
	provider *provider.Provider
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server over the given provider.
func NewServer(p *provider.Provider, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		provider: p,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metricsMiddleware())

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/indexes", s.handleListIndexes)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/stats", s.handleStats)
	r.Post("/api/v1/migrate", s.handleMigrate)
	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/cache/clear", s.handleClearCache)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
