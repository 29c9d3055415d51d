package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls scheduled pruning of old conversations.
type RetentionConfig struct {
	// RetentionDays keeps conversations whose last update is within this
	// many days. 0 disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// Schedule is a cron expression for when pruning runs, for example
	// "0 3 * * *" for daily at 03:00. Empty disables the scheduler.
	Schedule string `yaml:"schedule"`
}

// Pruner deletes conversations past the retention window, on demand or
// on a cron schedule.
type Pruner struct {
	store  Store
	config RetentionConfig
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner builds a pruner over a store.
func NewPruner(store Store, cfg RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		config: cfg,
		cron:   cron.New(),
		logger: logger.With("component", "store.retention"),
	}
}

// Prune runs one pruning cycle and returns the number of conversations
// deleted. A zero retention window makes it a no-op.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
	return p.store.PruneBefore(ctx, cutoff)
}

// Start schedules pruning per the configured cron expression. The
// scheduler stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" || p.config.RetentionDays <= 0 {
		p.logger.Info("retention pruning not configured, scheduler idle")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", p.config.Schedule, err)
	}

	_, err := p.cron.AddFunc(p.config.Schedule, func() {
		deleted, err := p.Prune(ctx)
		if err != nil {
			p.logger.Error("scheduled pruning failed", "error", err)
			return
		}
		if deleted > 0 {
			p.logger.Info("scheduled pruning completed", "deleted", deleted)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention pruning: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop halts the scheduler, waiting for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("retention scheduler stopped")
	}
}
