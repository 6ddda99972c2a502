// # internal/core/watcher/watcher.go
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"depsentry/internal/shared/observability"
	"depsentry/internal/shared/util"
)

// Watcher batches source file changes under a set of roots and hands each
// batch to a callback once the tree has been quiet for the debounce period.
type Watcher struct {
	fsw      *fsnotify.Watcher
	filter   *filter
	limiter  *util.Limiter
	onChange func([]string)
	deliver  sync.Mutex

	mu       sync.Mutex
	debounce time.Duration
	pending  map[string]struct{}
	digests  map[string]uint64
	timer    *time.Timer
	closed   bool
}

// NewWatcher skips directories whose base name matches one of excludeDirs and
// files matching one of excludeFiles.
func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	f, err := newFilter(excludeDirs, excludeFiles)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		filter:   f,
		onChange: onChange,
		debounce: debounce,
		pending:  make(map[string]struct{}),
		digests:  make(map[string]uint64),
	}, nil
}

// SetFilters restricts events to the given extensions and exact file names.
// Empty filters accept every file. Call before Watch.
func (w *Watcher) SetFilters(extensions, filenames []string) {
	w.filter.exts = lowerSet(extensions)
	w.filter.names = lowerSet(filenames)
}

// SetPathFilter adds a full-path exclusion check on top of the base-name
// globs. Call before Watch.
func (w *Watcher) SetPathFilter(f PathFilter) {
	w.filter.custom = f
}

// SetRateLimit caps callback invocations per minute. Changes that arrive
// while throttled stay pending and go out with a later batch. Call before
// Watch.
func (w *Watcher) SetRateLimit(perMinute int) {
	if perMinute <= 0 {
		w.limiter = nil
		return
	}
	w.limiter = util.PerMinute(perMinute)
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = debounce
}

// Watch registers every non-excluded directory under roots and starts
// delivering events.
func (w *Watcher) Watch(roots []string) error {
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.filter.skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.adoptDir(ev.Name)
			return
		}
	}
	if ev.Op&relevantOps == 0 || w.filter.skipFile(ev.Name) {
		return
	}
	w.scheduleChange(ev.Name)
}

// adoptDir starts watching a directory created after Watch and queues the
// files that landed in it before the watch was registered.
func (w *Watcher) adoptDir(dir string) {
	if w.filter.skipDir(dir) {
		return
	}
	if err := w.addTree(dir); err != nil {
		slog.Warn("failed to watch new directory", "path", dir, "error", err)
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.filter.skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.filter.skipFile(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

func (w *Watcher) scheduleChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	w.armLocked(w.debounce)
}

func (w *Watcher) armLocked(delay time.Duration) {
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	if w.limiter != nil && !w.limiter.Allow() {
		observability.WatcherThrottledTotal.Inc()
		w.armLocked(max(w.debounce, time.Second))
		w.mu.Unlock()
		return
	}

	batch := make([]string, 0, len(w.pending))
	for _, path := range util.SortedKeys(w.pending) {
		if w.contentChangedLocked(path) {
			batch = append(batch, path)
		}
	}
	clear(w.pending)
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	w.deliver.Lock()
	defer w.deliver.Unlock()
	w.onChange(batch)
}

// contentChangedLocked is false for writes that leave a file byte-identical.
// A file that can no longer be read counts as changed.
func (w *Watcher) contentChangedLocked(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		delete(w.digests, path)
		return true
	}
	sum := xxhash.Sum64(data)
	if prev, ok := w.digests[path]; ok && prev == sum {
		return false
	}
	w.digests[path] = sum
	return true
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
