package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"newsblaster/internal/config"
	"newsblaster/internal/logfields"
)

// ConfigWatcher reloads the configuration file when it changes on disk.
// Events are debounced because editors produce bursts of writes; a file
// that fails to load keeps the previous configuration in place.
type ConfigWatcher struct {
	path     string
	debounce time.Duration
	apply    func(*config.Config)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewConfigWatcher creates a watcher for the config file at path. apply
// receives every successfully loaded configuration.
func NewConfigWatcher(path string, debounce time.Duration, apply func(*config.Config), logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	return &ConfigWatcher{
		path:     absPath,
		debounce: debounce,
		apply:    apply,
		watcher:  watcher,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// editors that replace the file by rename keep triggering events.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}
	w.logger.Info("Watching configuration file", logfields.Path(w.path))
	go w.loop(ctx)
	return nil
}

// Stop ends the watch. Safe to call more than once.
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	})
}

func (w *ConfigWatcher) loop(ctx context.Context) {
	configFile := filepath.Base(w.path)
	var debounce *time.Timer
	stopTimer := func() {
		if debounce != nil {
			debounce.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-w.stop:
			stopTimer()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if event.Op&fsnotify.Remove != 0 {
				w.logger.Warn("Config file removed", logfields.Path(event.Name))
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Config file change detected", logfields.Path(event.Name))
			stopTimer()
			debounce = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (w *ConfigWatcher) reload() {
	cfg, err := config.Load(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration, keeping the previous one",
			logfields.Path(w.path), logfields.Error(err))
		return
	}
	w.apply(cfg)
}
