package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	coreapp "depsentry/internal/core/app"
	"depsentry/internal/core/config"
	"depsentry/internal/data/history"
	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/graph"
	"depsentry/internal/shared/observability"
	"depsentry/internal/shared/util"
	"depsentry/internal/shared/version"
	"depsentry/internal/ui/report"
)

const reportSection report.Section = "report"

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 1
	}

	if opts.version {
		fmt.Printf("depsentry %s\n", version.Version)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if err := applyOptions(opts, cfg, cwd); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:       cfg.Observability.OTLPEndpoint,
		ServiceVersion: version.Version,
		Insecure:       cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	store, err := openHistoryStore(cfg)
	if err != nil {
		slog.Error("history setup failed", "error", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	r := newRunner(coreapp.New(), cfg, opts, store, os.Stdout)

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		server := newStatusServer(addr, coreapp.NewHealthService(r.analyzer, store != nil), r.lastResult)
		if err := server.start(); err != nil {
			slog.Error("failed to start status server", "addr", addr, "error", err)
			return 1
		}
		defer server.stop(5 * time.Second)
	}

	if _, err := r.runOnce(ctx); err != nil {
		slog.Error("analysis failed", "error", err)
		return 1
	}

	if stop, code := runSingleCommand(r, opts); stop {
		return code
	}

	if store != nil {
		trend, err := r.reportTrend()
		if err != nil {
			slog.Error("history mode failed", "error", err)
			return 1
		}
		r.trend = trend
	}

	switch {
	case opts.ui:
		if err := runUI(ctx, r, cfgPath); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
	case opts.watch:
		if err := runWatch(ctx, r, cfgPath); err != nil {
			slog.Error("watch mode failed", "error", err)
			return 1
		}
	}
	return 0
}

// runner owns the state shared by one-shot, watch and UI runs.
type runner struct {
	analyzer *coreapp.Analyzer
	store    *history.Store
	opts     cliOptions
	out      io.Writer
	// quiet suppresses stdout reports while the terminal belongs to
	// another mode.
	quiet bool
	trend *history.TrendReport

	mu   sync.RWMutex
	cfg  *config.Config
	last *findings.AnalysisResult

	runMu sync.Mutex

	onResult func(*findings.AnalysisResult)
}

func newRunner(analyzer *coreapp.Analyzer, cfg *config.Config, opts cliOptions, store *history.Store, out io.Writer) *runner {
	return &runner{
		analyzer: analyzer,
		store:    store,
		opts:     opts,
		out:      out,
		quiet:    opts.ui || opts.impact != "" || opts.trace != "",
		cfg:      cfg,
	}
}

func (r *runner) config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func (r *runner) lastResult() *findings.AnalysisResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// setConfig installs a reloaded configuration. Command-line overrides are
// applied again and the analysed root never changes.
func (r *runner) setConfig(next *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	root := r.cfg.Analysis.RootDir
	if err := applyOptions(r.opts, next, root); err != nil {
		slog.Warn("ignoring reloaded config", "error", err)
		return
	}
	next.Analysis.RootDir = root
	r.cfg = next
	slog.Info("config reloaded", "root", root)
}

// runOnce analyses, reports and records one run. Runs never overlap.
func (r *runner) runOnce(ctx context.Context) (*findings.AnalysisResult, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	cfg := r.config()
	result, err := r.analyzer.Analyze(ctx, cfg.Analysis)
	if err != nil {
		return nil, err
	}
	if err := r.writeReport(cfg, result); err != nil {
		return result, err
	}
	if r.store != nil {
		r.recordHistory(cfg, result)
	}
	r.mu.Lock()
	r.last = result
	r.mu.Unlock()
	if r.onResult != nil {
		r.onResult(result)
	}
	return result, nil
}

func (r *runner) writeReport(cfg *config.Config, result *findings.AnalysisResult) error {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	path := strings.TrimSpace(cfg.Output.Path)
	opts := report.Options{
		Color:       cfg.Output.ColorEnabled() && path == "",
		Verbose:     r.opts.verbose,
		ProjectName: projectKey(cfg),
	}

	if path == "" {
		if r.quiet {
			return nil
		}
		return report.Render(r.out, result, format, opts)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, result, format, opts); err != nil {
		return err
	}
	if format == report.FormatMarkdown {
		injected, err := report.WriteMarkdown(path, reportSection, buf.String())
		if err != nil {
			return fmt.Errorf("write report %q: %w", path, err)
		}
		slog.Info("report written", "path", path, "format", format, "injected", injected)
		return nil
	}
	if err := writeBytes(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	slog.Info("report written", "path", path, "format", format)
	return nil
}

func (r *runner) recordHistory(cfg *config.Config, result *findings.AnalysisResult) {
	key := projectKey(cfg)
	if _, err := r.analyzer.RecordSnapshot(r.store, key, result); err != nil {
		slog.Warn("failed to record history snapshot", "project", key, "error", err)
		return
	}
	if cfg.History.Retention <= 0 {
		return
	}
	removed, err := r.store.Prune(key, time.Now().Add(-cfg.History.Retention))
	if err != nil {
		slog.Warn("failed to prune history", "project", key, "error", err)
		return
	}
	if removed > 0 {
		slog.Debug("pruned history snapshots", "project", key, "removed", removed)
	}
}

func (r *runner) reportTrend() (*history.TrendReport, error) {
	since, err := parseSince(r.opts.since)
	if err != nil {
		return nil, err
	}
	window, err := parseHistoryWindow(r.opts.historyWindow)
	if err != nil {
		return nil, err
	}

	trend, err := coreapp.Trend(r.store, projectKey(r.config()), since, window)
	if errors.Is(err, history.ErrNoSnapshots) {
		if !r.quiet {
			fmt.Fprintln(r.out, "History: no snapshots matched the requested time window.")
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !r.quiet {
		if err := report.WriteTrendSummary(r.out, trend); err != nil {
			return nil, err
		}
	}

	if r.opts.historyTSV != "" {
		tsv, err := report.RenderTrendTSV(trend)
		if err != nil {
			return nil, fmt.Errorf("render trend TSV: %w", err)
		}
		if err := writeBytes(r.opts.historyTSV, tsv); err != nil {
			return nil, fmt.Errorf("write trend TSV %q: %w", r.opts.historyTSV, err)
		}
	}

	if r.opts.historyJSON != "" {
		raw, err := report.RenderTrendJSON(trend)
		if err != nil {
			return nil, fmt.Errorf("render trend JSON: %w", err)
		}
		if err := writeBytes(r.opts.historyJSON, raw); err != nil {
			return nil, fmt.Errorf("write trend JSON %q: %w", r.opts.historyJSON, err)
		}
	}

	return &trend, nil
}

// currentTrend rebuilds the trend for the UI without printing anything.
func (r *runner) currentTrend() *history.TrendReport {
	if r.store == nil {
		return nil
	}
	since, _ := parseSince(r.opts.since)
	window, _ := parseHistoryWindow(r.opts.historyWindow)
	trend, err := coreapp.Trend(r.store, projectKey(r.config()), since, window)
	if err != nil {
		return nil
	}
	return &trend
}

func runSingleCommand(r *runner, opts cliOptions) (bool, int) {
	root := r.config().Analysis.RootDir

	if opts.impact != "" {
		impact, err := r.analyzer.Impact(root, opts.impact)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Fprint(r.out, formatImpactReport(root, impact))
		return true, 0
	}

	if opts.trace != "" {
		from, to, err := parseTrace(opts.trace)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		chain, err := r.analyzer.ImportChain(root, from, to)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Fprintf(r.out, "Import chain (%d hops): %s\n", len(chain)-1, strings.Join(displayPaths(root, chain), " -> "))
		return true, 0
	}

	return false, 0
}

func formatImpactReport(root string, impact graph.ImpactReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Impact of %s\n", displayPath(root, impact.Target))
	sections := []struct {
		title string
		ids   []string
	}{
		{"Direct dependents", impact.DirectDependents},
		{"Transitive dependents", impact.TransitiveDependents},
		{"In a cycle with", impact.CycleWith},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "  %s (%d)\n", s.title, len(s.ids))
		for _, id := range s.ids {
			fmt.Fprintf(&b, "    - %s\n", displayPath(root, id))
		}
	}
	return b.String()
}

func displayPath(root, id string) string {
	if !filepath.IsAbs(id) {
		return id
	}
	rel, err := filepath.Rel(root, id)
	if err != nil || strings.HasPrefix(rel, "..") {
		return id
	}
	return filepath.ToSlash(rel)
}

func displayPaths(root string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = displayPath(root, id)
	}
	return out
}

// loadConfig uses -config when given, otherwise searches upward from the
// project root for depsentry.toml and falls back to defaults.
func loadConfig(opts cliOptions, cwd string) (*config.Config, string, error) {
	root := cwd
	if len(opts.args) > 0 {
		root = config.ResolveRelative(cwd, opts.args[0])
	}

	path := strings.TrimSpace(opts.configPath)
	if path == "" {
		path = config.FindConfigFile(root)
	} else {
		path = config.ResolveRelative(cwd, path)
	}
	if path == "" {
		cfg, err := config.LoadOrDefault("", root)
		if err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	slog.Debug("config loaded", "path", path)
	return cfg, path, nil
}

// applyOptions folds command-line flags over cfg. base resolves a relative
// positional root.
func applyOptions(opts cliOptions, cfg *config.Config, base string) error {
	modeCount := 0
	if opts.impact != "" {
		modeCount++
	}
	if opts.trace != "" {
		modeCount++
	}
	if opts.watch || opts.ui {
		modeCount++
	}
	if modeCount > 1 {
		return fmt.Errorf("-impact, -trace and -watch/-ui cannot be combined")
	}
	if len(opts.args) > 1 {
		return fmt.Errorf("expected at most one project root, got %d arguments", len(opts.args))
	}

	if len(opts.args) == 1 {
		cfg.Analysis.RootDir = config.ResolveRelative(base, opts.args[0])
	}
	if abs, err := filepath.Abs(cfg.Analysis.RootDir); err == nil {
		cfg.Analysis.RootDir = abs
	}

	if opts.fix || opts.dryRun {
		cfg.Analysis.AutoFix = true
	}
	if opts.dryRun {
		cfg.Analysis.DryRun = true
	}
	if opts.format != "" {
		format, err := report.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		cfg.Output.Format = string(format)
	}
	if opts.out != "" {
		cfg.Output.Path = opts.out
	}
	if opts.maxDepth < 0 {
		return fmt.Errorf("-max-depth must be >= 0, got %d", opts.maxDepth)
	}
	if opts.maxDepth > 0 {
		cfg.Analysis.MaxCircularDepth = opts.maxDepth
	}

	if opts.history {
		cfg.History.Enabled = true
	}
	if (opts.historyTSV != "" || opts.historyJSON != "") && !cfg.History.Enabled {
		return fmt.Errorf("-history-tsv/-history-json require -history")
	}
	if cfg.History.Enabled {
		if _, err := parseHistoryWindow(opts.historyWindow); err != nil {
			return err
		}
		if _, err := parseSince(opts.since); err != nil {
			return err
		}
	}

	if opts.trace != "" {
		if _, _, err := parseTrace(opts.trace); err != nil {
			return err
		}
	}
	return nil
}

func projectKey(cfg *config.Config) string {
	if key := strings.TrimSpace(cfg.History.ProjectKey); key != "" {
		return key
	}
	return filepath.Base(filepath.Clean(cfg.Analysis.RootDir))
}

func openHistoryStore(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg.History.Path, cfg.History.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

func parseTrace(raw string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("-trace must be formatted as <from>:<to>")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("-since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("-history-window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("-history-window must be > 0, got %q", value)
	}
	return d, nil
}

func writeBytes(path string, data []byte) error {
	return util.WriteFileWithDirs(path, data, 0o644)
}

// configureLogging sends logs to stderr, or to the state log file in UI mode
// so they do not draw over the terminal UI.
func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	var closeFn func() = func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	return filepath.Join(config.DefaultStateDir(), "depsentry.log")
}
