package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/config"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/pipeline"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/store"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/metrics"
)

// Options carries the server's collaborators. Pipeline and Registry are
// required; Store, Provider, and Metrics are optional.
type Options struct {
	Config   config.ServerConfig
	Pipeline *pipeline.Pipeline
	Registry *analysis.Registry
	Store    store.Store
	Provider generation.Provider
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Server is the engine's HTTP front end.
type Server struct {
	config   config.ServerConfig
	pipeline *pipeline.Pipeline
	registry *analysis.Registry
	store    store.Store
	provider generation.Provider
	metrics  *metrics.Collector
	logger   *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New builds a server from options.
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("server: pipeline is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("server: analyzer registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:   opts.Config,
		pipeline: opts.Pipeline,
		registry: opts.Registry,
		store:    opts.Store,
		provider: opts.Provider,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "server"),
	}, nil
}

// Handler returns the complete handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/process", s.handleProcess)
	mux.HandleFunc("GET /api/v1/analyzers", s.handleAnalyzers)
	mux.HandleFunc("GET /api/v1/conversations", s.handleListConversations)
	mux.HandleFunc("GET /api/v1/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(int64(s.config.MaxInputBytes))(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// Start runs the server until the context is cancelled or a termination
// signal arrives, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.httpServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if shutdownErr := s.httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			err = fmt.Errorf("server shutdown: %w", shutdownErr)
		}
		s.logger.Info("server stopped")
	})
	return err
}
