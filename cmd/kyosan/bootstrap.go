package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/analysis/analyzers"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/config"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/generation"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/pipeline"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy/gitsource"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/store"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/logging"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/metrics"
	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/telemetry/tracing"
)

// engine holds every constructed component and its shutdown order.
type engine struct {
	cfg    *config.Config
	logger *slog.Logger

	policies      *policy.Manager
	registry      *analysis.Registry
	pipeline      *pipeline.Pipeline
	provider      generation.Provider
	conversations store.Store
	collector     *metrics.Collector
	tracer        *tracing.Tracer
	pruner        *store.Pruner
}

// staticSource disables watching on a pack source.
type staticSource struct {
	policy.PackSource
}

func (staticSource) Watch(context.Context) (<-chan policy.PackEvent, error) {
	return nil, nil
}

// buildEngine assembles all components from configuration. Components
// constructed before a failure are closed before returning.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine, error) {
	e := &engine{cfg: cfg, logger: logger}

	collector := metrics.NewCollector(cfg.Metrics, nil)
	e.collector = collector

	tracer, err := tracing.New(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	e.tracer = tracer

	source, err := buildPackSource(cfg.Policy, logger)
	if err != nil {
		e.Close()
		return nil, err
	}

	policies, err := policy.NewManager(ctx, source, logger)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("building policy gate: %w", err)
	}
	e.policies = policies

	e.registry = analysis.NewRegistry(analyzers.Registrations(), logger)
	orchestrator := analysis.NewOrchestrator(e.registry, cfg.Analysis.Workers, logger)

	if cfg.Generation.Enabled {
		provider, err := generation.NewOpenRouter(cfg.Generation.Provider, logger)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("building generation provider: %w", err)
		}
		e.provider = provider
	}

	conversations, err := buildStore(cfg.Store, logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.conversations = conversations

	if conversations != nil && cfg.Retention.RetentionDays > 0 {
		e.pruner = store.NewPruner(conversations, cfg.Retention, logger)
	}

	p, err := pipeline.New(pipeline.Options{
		Policies:       policies,
		Orchestrator:   orchestrator,
		Provider:       e.provider,
		Store:          conversations,
		Metrics:        collector,
		Tracer:         tracer,
		DefaultLevel:   analysis.ParseLevel(cfg.Analysis.DefaultLevel),
		IncludeSummary: true,
		Logger:         logger,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.pipeline = p

	return e, nil
}

func buildPackSource(cfg config.PolicyConfig, logger *slog.Logger) (policy.PackSource, error) {
	switch cfg.Mode {
	case "", "builtin":
		return nil, nil
	case "file":
		source := policy.NewFileSource(cfg.Path, logger)
		if !cfg.Watch {
			return staticSource{source}, nil
		}
		return source, nil
	case "git":
		return gitsource.New(gitsource.Config{
			Repository:   cfg.Git.Repository,
			Branch:       cfg.Git.Branch,
			Path:         cfg.Git.Path,
			LocalPath:    cfg.Git.LocalPath,
			Token:        cfg.Git.Token,
			PollInterval: cfg.Git.PollInterval,
			CloneTimeout: cfg.Git.CloneTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown policy mode %q", cfg.Mode)
	}
}

func buildStore(cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Close shuts components down in reverse construction order.
func (e *engine) Close() {
	if e.pruner != nil {
		e.pruner.Stop()
	}
	if e.conversations != nil {
		if err := e.conversations.Close(); err != nil {
			e.logger.Error("failed to close store", "error", err)
		}
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("failed to close provider", "error", err)
		}
	}
	if e.policies != nil {
		if err := e.policies.Close(); err != nil {
			e.logger.Error("failed to close policy manager", "error", err)
		}
	}
	if e.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.tracer.Shutdown(ctx); err != nil {
			e.logger.Error("failed to shut down tracing", "error", err)
		}
	}
}

// loadConfigAndLogger is the common entry for all commands that need a
// configured engine.
func loadConfigAndLogger() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logging: %w", err)
	}
	slog.SetDefault(logger)

	return cfg, logger, nil
}
