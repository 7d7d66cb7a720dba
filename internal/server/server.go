// Package server provides the HTTP API for kaimono.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/metrics"
	"github.com/hyperjump/kaimono/internal/recommend"
	"github.com/hyperjump/kaimono/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RetrainTrigger schedules a debounced retrain after catalog writes.
type RetrainTrigger interface {
	Trigger()
}

// WatchService reports the directories watched for catalog files.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the kaimono API.
type Server struct {
	engine  *recommend.Engine
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	retrain RetrainTrigger
	watch   WatchService
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRetrainTrigger makes product writes schedule a retrain.
func WithRetrainTrigger(t RetrainTrigger) Option {
	return func(s *Server) { s.retrain = t }
}

// WithWatchService exposes watched directories on the status endpoints.
func WithWatchService(w WatchService) Option {
	return func(s *Server) { s.watch = w }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *recommend.Engine,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		storage: store,
		config:  cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router with middleware and every route mounted.
func (s *Server) Handler() http.Handler {
	timeout := s.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware())

	r.Post("/recommendations/cart", s.handleRecommendCart)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations/cart", s.handleRecommendCart)
		r.Get("/status", s.handleStatus)
		r.Post("/retrain", s.handleRetrain)
		r.Post("/products", s.handleUpsertProducts)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Delete("/products/{id}", s.handleDeleteProduct)
		r.Get("/watch/directories", s.handleWatchDirectories)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
