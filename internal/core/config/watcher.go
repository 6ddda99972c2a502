package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher hands a freshly loaded Config to onReload each time the file's
// content changes. Saves that leave the bytes untouched and files that fail
// to load are skipped.
type Watcher struct {
	path     string
	onReload func(*Config)

	mu     sync.Mutex
	digest uint64
	timer  *time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(path string, onReload func(*Config)) *Watcher {
	return &Watcher{path: filepath.Clean(path), onReload: onReload}
}

// Start watches the file's directory, which also catches editors that save
// by writing a new file and renaming it over the old one.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.digest = xxhash.Sum64(data)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, fsw)
	slog.Debug("config watcher started", "path", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == w.path && ev.Op.Has(fsnotify.Write|fsnotify.Create) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("config reload skipped", "path", w.path, "error", err)
		return
	}
	sum := xxhash.Sum64(data)
	w.mu.Lock()
	unchanged := sum == w.digest
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous settings", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	w.digest = sum
	w.mu.Unlock()

	slog.Info("config reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
