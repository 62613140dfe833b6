// Package server provides the HTTP API for wordvec.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/wordvec/internal/config"
	"github.com/hyperjump/wordvec/internal/model"
	"go.uber.org/zap"
)

// Server is the HTTP server for the wordvec API.
type Server struct {
	model   *model.Model
	config  *config.ServerConfig
	suggest *config.SuggestConfig
	logger  *zap.Logger
	cache   *resultCache
	started time.Time
	server  *http.Server
}

// NewServer creates a server over a loaded model. A nil model is served
// with 500 responses on every query route.
func NewServer(m *model.Model, cfg *config.ServerConfig, suggestCfg *config.SuggestConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if suggestCfg == nil {
		suggestCfg = &config.SuggestConfig{}
	}
	s := &Server{
		model:   m,
		config:  cfg,
		suggest: suggestCfg,
		logger:  logger,
		cache:   newResultCache(cfg.CacheSize),
		started: time.Now(),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(responseTime(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/get_vector/{word}", s.handleGetVector)
	r.Get("/get_similar/{word}", s.handleGetSimilar)
	r.Post("/get_similar", s.handleSimilarByVector)
	r.Get("/suggest/{word}", s.handleSuggest)
	r.Get("/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil once Stop has been called, even if Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
