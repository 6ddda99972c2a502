package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"depsentry/internal/core/config"
	domainErrors "depsentry/internal/core/errors"
	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/graph"
	"depsentry/internal/engine/manifest"
	"depsentry/internal/engine/parser"
	"depsentry/internal/engine/resolver"
	"depsentry/internal/shared/observability"
	"depsentry/internal/shared/version"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	StageDiscover = "discover"
	StageParse    = "parse"
	StageGraph    = "build_graph"
	StageManifest = "load_manifest"
	StageAnalyze  = "analyze"
	StageAutoFix  = "autofix"
)

// Analyze runs one full analysis of cfg.RootDir. Configuration problems are
// returned as INVALID_CONFIG before any work starts; a fatal failure inside
// the pipeline is returned as STAGE_FAILED naming the stage.
func (a *Analyzer) Analyze(ctx context.Context, cfg config.Analysis) (*findings.AnalysisResult, error) {
	wall := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "Analyzer.Analyze",
		trace.WithAttributes(attribute.String("root", cfg.RootDir)))
	defer span.End()

	result, err := a.analyze(ctx, cfg)

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.AnalysisRunsTotal.WithLabelValues(outcome).Inc()
	observability.AnalysisDuration.Observe(time.Since(wall).Seconds())
	return result, err
}

// run is the state one analysis threads through its stages.
type run struct {
	cfg        config.Analysis
	root       string
	thresholds findings.Thresholds
	matcher    *fileMatcher
	resolver   *resolver.Resolver

	files    []parser.File
	read     int
	graph    *graph.DependencyGraph
	packages *manifest.Set
	found    []findings.Finding
	fixes    []findings.AutoFixResult
}

func (a *Analyzer) analyze(ctx context.Context, cfg config.Analysis) (*findings.AnalysisResult, error) {
	started := a.now()
	r, err := a.prepare(cfg)
	if err != nil {
		return nil, err
	}

	paths, err := stage(ctx, StageDiscover, func(ctx context.Context) ([]string, error) {
		return r.matcher.discover(ctx)
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("discovered source files", "root", r.root, "count", len(paths))

	if _, err := stage(ctx, StageParse, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.parseAll(ctx, r, paths)
	}); err != nil {
		return nil, err
	}

	if r.graph, err = stage(ctx, StageGraph, func(ctx context.Context) (*graph.DependencyGraph, error) {
		return buildGraph(ctx, r)
	}); err != nil {
		return nil, err
	}

	if r.packages, err = stage(ctx, StageManifest, func(ctx context.Context) (*manifest.Set, error) {
		return a.loadManifests(ctx, r)
	}); err != nil {
		return nil, err
	}

	if r.found, err = stage(ctx, StageAnalyze, func(ctx context.Context) ([]findings.Finding, error) {
		return a.runAnalyses(ctx, r)
	}); err != nil {
		return nil, err
	}

	if cfg.AutoFix {
		if r.fixes, err = stage(ctx, StageAutoFix, func(ctx context.Context) ([]findings.AutoFixResult, error) {
			return a.applyFixes(r), nil
		}); err != nil {
			return nil, err
		}
	}

	result := a.assemble(r, started)
	a.setLastGraph(r.graph)
	return result, nil
}

// prepare validates the run configuration. Every error it returns is INVALID_CONFIG.
func (a *Analyzer) prepare(cfg config.Analysis) (*run, error) {
	if cfg.RootDir == "" {
		return nil, domainErrors.New(domainErrors.CodeInvalidConfig, "root directory is required")
	}
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "invalid root directory"),
			domainErrors.CtxPath, cfg.RootDir,
		)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "root directory is not accessible"),
			domainErrors.CtxPath, root,
		)
	}
	if !info.IsDir() {
		return nil, domainErrors.AddContext(
			domainErrors.New(domainErrors.CodeInvalidConfig, "root path is not a directory"),
			domainErrors.CtxPath, root,
		)
	}

	thresholds, err := cfg.Thresholds()
	if err != nil {
		return nil, domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "invalid severity thresholds")
	}
	matcher, err := newFileMatcher(root, cfg, a.parser.IsSupportedPath)
	if err != nil {
		return nil, err
	}

	return &run{
		cfg:        cfg,
		root:       root,
		thresholds: thresholds,
		matcher:    matcher,
		resolver: resolver.New(
			resolver.WithExtensions(cfg.Extensions),
			resolver.WithExcludedImports(cfg.ExcludedImports),
		),
	}, nil
}

// stage runs fn inside a span, records its duration and wraps a failure once
// with the stage name.
func stage[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := observability.Tracer.Start(ctx, "stage."+name)
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, domainErrors.StageFailed(name, err)
	}
	return out, nil
}

// parseAll reads and parses paths on a bounded pool. Each worker writes only
// its own slot; slots are merged in path order once every worker is done.
// Unreadable and unparsable files are logged and skipped.
func (a *Analyzer) parseAll(ctx context.Context, r *run, paths []string) error {
	slots := make([]*parser.File, len(paths))
	read := make([]bool, len(paths))

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				observability.FilesParseFailedTotal.Inc()
				slog.Warn("failed to read source file", "path", path, "error", err)
				return nil
			}
			read[i] = true
			if parser.IsGenerated(content) {
				slog.Debug("skipping generated file", "path", path)
				return nil
			}
			file, err := a.parser.Parse(path, content)
			if err != nil {
				observability.FilesParseFailedTotal.Inc()
				slog.Warn("failed to parse source file", "path", path, "error", err)
				return nil
			}
			slots[i] = file
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	r.files = make([]parser.File, 0, len(paths))
	for i, f := range slots {
		if read[i] {
			r.read++
		}
		if f != nil {
			r.files = append(r.files, *f)
		}
	}
	return nil
}

// buildGraph builds the dependency graph and adds every parsed file as a
// node, so files without imports still count.
func buildGraph(ctx context.Context, r *run) (*graph.DependencyGraph, error) {
	imports := make([]parser.ImportStatement, 0)
	for _, f := range r.files {
		imports = append(imports, f.Imports...)
	}
	g, err := graph.NewBuilder(r.resolver, r.cfg.ExternalDeps()).Build(ctx, imports)
	if err != nil {
		return nil, err
	}
	for _, f := range r.files {
		p := filepath.Clean(f.Path)
		g.AddNode(p, graph.KindFile, p)
	}
	observability.GraphNodes.Set(float64(g.NodeCount()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))
	return g, nil
}

// loadManifests never fails the run on a loader error: it warns and continues
// with an empty set. Only cancellation escapes.
func (a *Analyzer) loadManifests(ctx context.Context, r *run) (set *manifest.Set, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("manifest loader panicked; continuing without packages", "root", r.root, "panic", rec)
			set, err = &manifest.Set{Root: r.root}, nil
		}
	}()

	set, err = a.manifests(r.matcher.Skip).Load(ctx, r.root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("failed to load package manifests; continuing without packages", "root", r.root, "error", err)
		return &manifest.Set{Root: r.root}, nil
	}
	if set == nil {
		set = &manifest.Set{Root: r.root}
	}
	return set, nil
}

type analysisTask struct {
	name string
	run  func() []findings.Finding
}

// runAnalyses runs the sibling analyses concurrently. Each reads the shared
// inputs only and writes its own slot; results are concatenated in task
// order, thresholds applied, then sorted.
func (a *Analyzer) runAnalyses(ctx context.Context, r *run) ([]findings.Finding, error) {
	declared := resolver.Declared{
		Loaded:         r.packages.Loaded(),
		Packages:       r.packages.Declared(),
		Workspace:      r.packages.WorkspaceNames(),
		CheckExternal:  r.cfg.ExternalDeps(),
		PackageManager: r.packages.PackageManager,
	}

	tasks := []analysisTask{
		{"circular", func() []findings.Finding { return graph.DetectCycles(r.graph, r.cfg.MaxCircularDepth) }},
		{"missing", func() []findings.Finding { return r.resolver.FindMissingDependencies(r.files, declared) }},
		{"unused", func() []findings.Finding { return r.resolver.FindUnusedImports(r.files) }},
		{"duplicate", func() []findings.Finding { return resolver.FindDuplicateImports(r.files) }},
	}
	if r.cfg.Versions() {
		tasks = append(tasks, analysisTask{"versions", func() []findings.Finding {
			return a.versions.FindConflicts(r.packages.Packages)
		}})
	}
	if r.cfg.Deprecations() {
		checker := a.deprecations(r.cfg.Deprecated)
		tasks = append(tasks, analysisTask{"deprecated", func() []findings.Finding {
			return checker.Check(r.packages.Packages)
		}})
	}

	slots := make([][]findings.Finding, len(tasks))
	eg, ctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		eg.Go(func() error {
			_, span := observability.Tracer.Start(ctx, "analysis."+task.name)
			defer span.End()
			slots[i] = task.run()
			span.SetAttributes(attribute.Int("findings", len(slots[i])))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]findings.Finding, 0)
	for _, slot := range slots {
		for _, f := range slot {
			out = append(out, r.thresholds.Apply(f))
		}
	}
	findings.Sort(out)
	return out, nil
}

// applyFixes hands the auto-fixable findings to the fixer. The findings list
// itself is left as reported.
func (a *Analyzer) applyFixes(r *run) []findings.AutoFixResult {
	results := a.fixer(r.cfg.DryRun).ApplyFixes(findings.Fixable(r.found))
	for _, res := range results {
		label := "applied"
		switch {
		case res.Error != "":
			label = "failed"
		case res.DryRun:
			label = "dry_run"
		}
		observability.FixesAppliedTotal.WithLabelValues(label).Inc()
	}
	return results
}

func (a *Analyzer) assemble(r *run, started time.Time) *findings.AnalysisResult {
	result := &findings.AnalysisResult{
		Severity: findings.Overall(r.found),
		Findings: r.found,
		Summary:  findings.Summarize(r.found, r.read, r.packages.UniqueNames()),
		Metadata: findings.Metadata{
			AnalysisID:        a.newID(),
			AnalysisTimestamp: started.UTC(),
			AnalysisVersion:   version.Version,
			ProjectType:       projectType(r),
			PackageManager:    r.packages.PackageManager,
			RootDir:           r.root,
			Duration:          a.now().Sub(started),
		},
		Fixes:             r.fixes,
		StronglyConnected: graph.StronglyConnectedComponents(r.graph),
	}

	counts := result.CountByKind()
	for _, kind := range findings.Kinds {
		observability.FindingsTotal.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}
	slog.Info("analysis complete",
		"root", r.root,
		"files", result.Summary.FilesAnalyzed,
		"findings", result.Summary.TotalIssues,
		"severity", result.Severity.String(),
		"duration", result.Metadata.Duration,
	)
	return result
}

// projectType upgrades the manifest's answer to typescript when TypeScript
// sources were parsed.
func projectType(r *run) string {
	if r.packages.ProjectType == "typescript" {
		return r.packages.ProjectType
	}
	for _, f := range r.files {
		if f.Language == parser.LangTypeScript || f.Language == parser.LangTSX {
			return "typescript"
		}
	}
	return "javascript"
}
