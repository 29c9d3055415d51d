// Package gitsource loads policy rule packs from a git repository.
//
// It clones (or opens) a repo of YAML rule packs, pulls on a poll
// interval, and exposes the checkout through the policy.PackSource
// contract so the gate picks up pack changes the same way it does for
// local files.
package gitsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/sanjivakyosan/Kyosan-Ethics-Engine/pkg/policy"
)

// Config describes the rule-pack repository.
type Config struct {
	// Repository is the clone URL.
	Repository string

	// Branch to check out. Required.
	Branch string

	// Path within the repository holding rule packs. Empty means the root.
	Path string

	// LocalPath is the checkout directory. Defaults under os.TempDir.
	LocalPath string

	// Token enables HTTP token auth when non-empty.
	Token string

	// PollInterval between pulls. Zero disables polling (load once).
	PollInterval time.Duration

	// CloneTimeout bounds the initial clone. Defaults to 60s.
	CloneTimeout time.Duration
}

// Source implements policy.PackSource over a git checkout.
type Source struct {
	config Config
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// New validates the config and returns an unopened source. The repository
// is cloned on the first LoadPacks call.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "kyosan-rule-packs")
	}
	if cfg.CloneTimeout == 0 {
		cfg.CloneTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		config: cfg,
		logger: logger.With("component", "policy.gitsource"),
	}, nil
}

// LoadPacks ensures the checkout exists and is current, then loads packs
// from the configured path through the file source.
func (s *Source) LoadPacks(ctx context.Context) ([]*policy.Pack, error) {
	if err := s.ensureCheckout(ctx); err != nil {
		return nil, err
	}

	packPath := s.config.LocalPath
	if s.config.Path != "" {
		packPath = filepath.Join(s.config.LocalPath, s.config.Path)
	}

	files := policy.NewFileSource(packPath, s.logger)
	return files.LoadPacks(ctx)
}

// Watch polls the remote on the configured interval and emits an event
// whenever a pull changes the checkout. With polling disabled it returns
// a nil channel.
func (s *Source) Watch(ctx context.Context) (<-chan policy.PackEvent, error) {
	if s.config.PollInterval <= 0 {
		return nil, nil
	}

	events := make(chan policy.PackEvent)

	go func() {
		defer close(events)

		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changed, err := s.pull(ctx)
				if err != nil {
					select {
					case events <- policy.PackEvent{Error: err}:
					case <-ctx.Done():
						return
					}
					continue
				}
				if changed {
					select {
					case events <- policy.PackEvent{Path: s.config.Repository}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return events, nil
}

// ensureCheckout opens an existing checkout or clones a fresh one.
func (s *Source) ensureCheckout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		return nil
	}

	gitDir := filepath.Join(s.config.LocalPath, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		repo, err := gogit.PlainOpen(s.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		s.repo = repo
		return nil
	}

	if err := os.MkdirAll(s.config.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.config.CloneTimeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.config.LocalPath, false, &gogit.CloneOptions{
		URL:           s.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          s.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone rule-pack repository: %w", err)
	}

	s.logger.Info("cloned rule-pack repository",
		"repository", s.config.Repository,
		"branch", s.config.Branch,
		"path", s.config.LocalPath,
	)

	s.repo = repo
	return nil
}

// pull fetches the remote branch and reports whether the worktree moved.
func (s *Source) pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return false, fmt.Errorf("repository not cloned")
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	before, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  true,
		Auth:          s.auth(),
	})
	if err == gogit.NoErrAlreadyUpToDate {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD after pull: %w", err)
	}

	if before.Hash() != after.Hash() {
		s.logger.Info("rule-pack repository updated",
			"from", before.Hash().String()[:8],
			"to", after.Hash().String()[:8],
		)
		return true, nil
	}
	return false, nil
}

// auth returns the transport auth method, or nil for anonymous access.
func (s *Source) auth() transport.AuthMethod {
	if s.config.Token == "" {
		return nil
	}
	// go-git requires a non-empty username with token auth; the value is
	// ignored by the common forges.
	return &githttp.BasicAuth{
		Username: "token",
		Password: s.config.Token,
	}
}
