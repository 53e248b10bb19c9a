package preset

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watcherDebounce = 200 * time.Millisecond

// Watcher reloads a preset file into a Registry when it changes on disk.
// A file that fails to load leaves the previous presets in place.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	registry *Registry
	logger   *slog.Logger
	debounce time.Duration

	// onReload, when set, is called after every reload attempt.
	onReload func(err error)

	mu        sync.Mutex
	timer     *time.Timer
	closed    bool
	closeOnce sync.Once
}

// NewWatcher watches the directory holding path so that editors which
// replace the file by rename are still seen.
func NewWatcher(path string, registry *Registry, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	clean := filepath.Clean(path)
	if err := fw.Add(filepath.Dir(clean)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher:  fw,
		path:     clean,
		registry: registry,
		logger:   logger,
		debounce: watcherDebounce,
	}, nil
}

func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.isPresetEvent(event) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("preset watcher error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) isPresetEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.reload)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	f, err := Load(w.path)
	if err != nil {
		w.logger.Error("reload presets", "path", w.path, "error", err)
	} else {
		w.registry.Replace(f)
		w.logger.Info("presets reloaded", "path", w.path, "count", len(f.Presets))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
