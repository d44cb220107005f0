package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the catalog watcher.
type WatcherConfig struct {
	// Path is the rule file or catalog directory to watch.
	Path string

	// DebounceInterval is how long to wait after the last file event
	// before reloading (default: 250ms). Editors often emit several
	// events per save.
	DebounceInterval time.Duration
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig(path string) *WatcherConfig {
	return &WatcherConfig{
		Path:             path,
		DebounceInterval: 250 * time.Millisecond,
	}
}

// Watcher observes a catalog path and publishes changed rule files as new
// snapshots. Versions already published are left untouched, so editing a
// file without bumping its version is a publish no-op.
type Watcher struct {
	catalog *Catalog
	config  *WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
}

// NewWatcher creates a watcher that publishes into the given catalog.
func NewWatcher(c *Catalog, config *WatcherConfig) (*Watcher, error) {
	if config == nil {
		return nil, fmt.Errorf("watcher config must not be nil")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 250 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		catalog: c,
		config:  config,
		watcher: fsw,
		logger:  slog.Default().With("component", "catalog.watcher"),
		pending: make(map[string]struct{}),
		stopCh:  make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or
// Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.config.Path, err)
	}

	w.logger.Info("catalog watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalog watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("catalog watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.logger.Debug("catalog file event", "path", event.Name, "op", event.Op.String())
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching; a transient error must not kill reloads.
			w.logger.Error("catalog watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases the underlying fsnotify resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	return w.watcher.Close()
}

// schedule records a changed file and arms the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceInterval, w.flush)
}

// flush publishes every pending file once the debounce interval elapses.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	for _, path := range paths {
		snap, err := LoadInto(w.catalog, path)
		if err != nil {
			w.logger.Error("catalog reload failed", "path", path, "error", err)
			continue
		}
		w.logger.Info("catalog reloaded",
			"path", path,
			"version", snap.Version(),
			"rules", snap.RuleCount(),
		)
	}
}

// shouldProcess filters events down to YAML writes.
func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	if event.Op&fsnotify.Remove == fsnotify.Remove {
		return false
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}
