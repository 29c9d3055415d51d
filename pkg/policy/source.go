package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PackSource provides rule packs to the Manager.
type PackSource interface {
	// LoadPacks loads all rule packs from the source.
	LoadPacks(ctx context.Context) ([]*Pack, error)

	// Watch watches for pack changes and sends events on the returned
	// channel. The channel is closed when the context is cancelled.
	// Sources that cannot watch return a nil channel and no error.
	Watch(ctx context.Context) (<-chan PackEvent, error)
}

// PackEvent represents a rule pack change.
type PackEvent struct {
	// Path is the pack path that changed.
	Path string

	// Error is any error that occurred while processing the event.
	Error error
}

// FileSource loads rule packs from YAML files on disk. The path can be a
// single file or a directory; for a directory, all .yaml and .yml files
// are loaded in lexical order.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based pack source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "policy.source"),
	}
}

// LoadPacks loads all packs from the configured path.
func (s *FileSource) LoadPacks(ctx context.Context) ([]*Pack, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var packs []*Pack

	if info.IsDir() {
		packs, err = s.loadDirectory()
		if err != nil {
			return nil, err
		}
	} else {
		pack, err := s.loadFile(s.path)
		if err != nil {
			return nil, err
		}
		packs = []*Pack{pack}
	}

	s.logger.Info("loaded rule packs",
		"path", s.path,
		"pack_count", len(packs),
	)

	return packs, nil
}

func (s *FileSource) loadDirectory() ([]*Pack, error) {
	var packs []*Pack

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		pack, err := s.loadFile(path)
		if err != nil {
			s.logger.Warn("failed to load rule pack, skipping",
				"path", path,
				"error", err,
			)
			return nil // Skip invalid packs
		}

		packs = append(packs, pack)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return packs, nil
}

func (s *FileSource) loadFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PackError{Path: path, Cause: err}
	}

	pack, err := ParsePack(data, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("loaded rule pack",
		"path", path,
		"pack_name", pack.Name,
		"layer_count", len(pack.Layers),
	)

	return pack, nil
}

// Watch watches the pack path for changes using fsnotify.
func (s *FileSource) Watch(ctx context.Context) (<-chan PackEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", s.path, err)
	}

	events := make(chan PackEvent)

	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case events <- PackEvent{Path: ev.Name}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case events <- PackEvent{Error: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// Manager owns the current Gate and rebuilds it when the pack source
// changes. The gate itself stays immutable; Manager swaps a freshly built
// gate under a read-write lock.
type Manager struct {
	source PackSource
	logger *slog.Logger

	mu   sync.RWMutex
	gate *Gate

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds the initial gate from the source and starts watching
// for changes. A nil source yields the default gate with no watching.
func NewManager(ctx context.Context, source PackSource, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		source: source,
		logger: logger.With("component", "policy.manager"),
	}

	if source == nil {
		gate, err := NewGate()
		if err != nil {
			return nil, err
		}
		m.gate = gate
		return m, nil
	}

	if err := m.Reload(ctx); err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.startWatching(watchCtx)

	return m, nil
}

// Gate returns the current gate.
func (m *Manager) Gate() *Gate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gate
}

// Reload rebuilds the gate from the pack source. On failure the previous
// gate remains in effect.
func (m *Manager) Reload(ctx context.Context) error {
	packs, err := m.source.LoadPacks(ctx)
	if err != nil {
		return &ReloadError{Source: "packs", Cause: err}
	}

	gate, err := NewGate(packs...)
	if err != nil {
		return &ReloadError{Source: "packs", Cause: err}
	}

	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	m.logger.Info("policy gate rebuilt",
		"pack_count", len(packs),
	)

	return nil
}

func (m *Manager) startWatching(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		events, err := m.source.Watch(ctx)
		if err != nil {
			m.logger.Error("failed to start pack watcher", "error", err)
			return
		}
		if events == nil {
			return
		}

		for event := range events {
			if event.Error != nil {
				m.logger.Error("pack watcher error", "error", event.Error)
				continue
			}

			m.logger.Info("rule pack changed", "path", event.Path)
			if err := m.Reload(ctx); err != nil {
				m.logger.Error("failed to reload rule packs after change",
					"error", err,
					"path", event.Path,
				)
			}
		}
	}()
}

// Close stops the watcher and waits for it to finish.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return nil
}
