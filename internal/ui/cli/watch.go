package cli

import (
	"context"
	"fmt"
	"log/slog"

	coreapp "depsentry/internal/core/app"
	"depsentry/internal/core/config"
	"depsentry/internal/core/watcher"
	"depsentry/internal/engine/parser"
)

// watchExcludedDirs are matched against directory base names.
var watchExcludedDirs = []string{"node_modules", ".git", ".*cache"}

func runWatch(ctx context.Context, r *runner, cfgPath string) error {
	stopWatching, err := startWatching(ctx, r, cfgPath)
	if err != nil {
		return err
	}
	defer stopWatching()

	slog.Info("watching for changes", "root", r.config().Analysis.RootDir)
	<-ctx.Done()
	return nil
}

// startWatching re-runs the analysis when sources, manifests or the config
// file change. The returned function stops every watcher it started.
func startWatching(ctx context.Context, r *runner, cfgPath string) (func(), error) {
	cfg := r.config()
	root := cfg.Analysis.RootDir

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, watchExcludedDirs, nil, func(paths []string) {
		slog.Info("change detected, re-running analysis", "files", len(paths))
		if _, err := r.runOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("analysis failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	filter, err := coreapp.WatchFilter(root, cfg.Analysis)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	w.SetPathFilter(filter)
	w.SetFilters(parser.NewGrammarLoader().SupportedExtensions(), []string{"package.json"})
	w.SetRateLimit(cfg.Watch.MaxRunsPerMinute)
	if err := w.Watch([]string{root}); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %q: %w", root, err)
	}

	var cw *config.Watcher
	if cfgPath != "" && cfg.Watch.ReloadEnabled() {
		cw = config.NewWatcher(cfgPath, func(next *config.Config) {
			r.setConfig(next)
			w.SetDebounce(r.config().Watch.Debounce)
			if _, err := r.runOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("analysis failed after config reload", "error", err)
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "path", cfgPath, "error", err)
			cw = nil
		}
	}

	return func() {
		if cw != nil {
			cw.Stop()
		}
		if err := w.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
	}, nil
}
