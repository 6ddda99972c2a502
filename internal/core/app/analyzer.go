package app

import (
	"sync"
	"time"

	"depsentry/internal/core/ports"
	"depsentry/internal/engine/autofix"
	"depsentry/internal/engine/deprecation"
	"depsentry/internal/engine/graph"
	"depsentry/internal/engine/manifest"
	"depsentry/internal/engine/parser"
	"depsentry/internal/engine/versions"

	"github.com/google/uuid"
)

// Analyzer runs the analysis pipeline. A single Analyzer may serve many runs,
// concurrently or not; every run builds and discards its own graph.
type Analyzer struct {
	parser       ports.ImportParser
	manifests    func(skip manifest.SkipFunc) ports.ManifestLoader
	versions     ports.VersionAnalyzer
	deprecations func(extra map[string]string) ports.DeprecationChecker
	fixer        func(dryRun bool) ports.AutoFixer
	now          func() time.Time
	newID        func() string

	mu        sync.RWMutex
	lastGraph *graph.DependencyGraph
}

type Option func(*Analyzer)

// WithParser replaces the import parser.
func WithParser(p ports.ImportParser) Option {
	return func(a *Analyzer) { a.parser = p }
}

// WithManifestLoader replaces the manifest loader. The loader then ignores
// the run's exclude patterns.
func WithManifestLoader(l ports.ManifestLoader) Option {
	return func(a *Analyzer) {
		a.manifests = func(manifest.SkipFunc) ports.ManifestLoader { return l }
	}
}

func WithVersionAnalyzer(v ports.VersionAnalyzer) Option {
	return func(a *Analyzer) { a.versions = v }
}

// WithDeprecationChecker replaces the checker factory; extra holds the
// configured [deprecated] table.
func WithDeprecationChecker(fn func(extra map[string]string) ports.DeprecationChecker) Option {
	return func(a *Analyzer) { a.deprecations = fn }
}

func WithFixer(fn func(dryRun bool) ports.AutoFixer) Option {
	return func(a *Analyzer) { a.fixer = fn }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(a *Analyzer) { a.newID = fn }
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser: parser.NewParser(parser.NewGrammarLoader()),
		manifests: func(skip manifest.SkipFunc) ports.ManifestLoader {
			return manifest.NewLoader(skip)
		},
		versions: versions.NewAnalyzer(),
		deprecations: func(extra map[string]string) ports.DeprecationChecker {
			return deprecation.NewChecker(extra)
		},
		fixer: func(dryRun bool) ports.AutoFixer {
			return autofix.New(autofix.WithDryRun(dryRun))
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LastGraph returns the graph of the most recent successful run, or nil.
// The graph must be treated as read-only.
func (a *Analyzer) LastGraph() *graph.DependencyGraph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastGraph
}

// LastStats summarizes LastGraph; the zero value when no run has finished.
func (a *Analyzer) LastStats() graph.Stats {
	g := a.LastGraph()
	if g == nil {
		return graph.Stats{}
	}
	return graph.ComputeStats(g)
}

func (a *Analyzer) setLastGraph(g *graph.DependencyGraph) {
	a.mu.Lock()
	a.lastGraph = g
	a.mu.Unlock()
}
