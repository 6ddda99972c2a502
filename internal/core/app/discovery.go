package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"depsentry/internal/core/config"
	domainErrors "depsentry/internal/core/errors"

	"github.com/gobwas/glob"
)

// alwaysSkipped directories are never walked, whatever the exclude patterns say.
var alwaysSkipped = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// fileMatcher decides which paths under root take part in an analysis.
// Patterns match root-relative slash paths.
type fileMatcher struct {
	root         string
	include      []glob.Glob
	exclude      []glob.Glob
	includeTests bool
	supported    func(path string) bool
}

func newFileMatcher(root string, cfg config.Analysis, supported func(string) bool) (*fileMatcher, error) {
	include, err := compileGlobs(cfg.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(cfg.Exclude)
	if err != nil {
		return nil, err
	}
	return &fileMatcher{
		root:         root,
		include:      include,
		exclude:      exclude,
		includeTests: cfg.Tests(),
		supported:    supported,
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, domainErrors.AddContext(
				domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, fmt.Sprintf("invalid glob pattern %q", p)),
				domainErrors.CtxOperation, "compile_glob",
			)
		}
		out = append(out, g)
	}
	return out, nil
}

// WatchFilter returns a watcher path filter that ignores whatever discovery
// would skip under cfg. package.json files are always kept.
func WatchFilter(root string, cfg config.Analysis) (func(path string, isDir bool) bool, error) {
	m, err := newFileMatcher(root, cfg, func(string) bool { return true })
	if err != nil {
		return nil, err
	}
	return func(path string, isDir bool) bool {
		if !isDir && filepath.Base(path) == "package.json" {
			return false
		}
		return m.Skip(path, isDir)
	}, nil
}

// relative returns path relative to root in slash form, or "" for root itself.
func (m *fileMatcher) relative(path string) string {
	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// Skip reports whether path is excluded. It has the manifest.SkipFunc shape
// so manifest discovery honours the same excludes.
func (m *fileMatcher) Skip(path string, isDir bool) bool {
	rel := m.relative(path)
	if rel == "" {
		return false
	}
	if isDir && alwaysSkipped[filepath.Base(path)] {
		return true
	}
	if matchAny(m.exclude, forms(rel, isDir)) {
		return true
	}
	if isDir {
		return false
	}
	if !m.includeTests && isTestFile(rel) {
		return true
	}
	if len(m.include) > 0 && !matchAny(m.include, forms(rel, false)) {
		return true
	}
	return false
}

// forms lists the spellings a pattern may be written against, so that
// "**/dist/**" also matches a top-level "dist" directory.
func forms(rel string, isDir bool) []string {
	out := []string{rel, "/" + rel}
	if isDir {
		out = append(out, rel+"/", "/"+rel+"/")
	}
	return out
}

func matchAny(globs []glob.Glob, candidates []string) bool {
	for _, g := range globs {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}

func isTestFile(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == "__tests__" || seg == "__mocks__" {
			return true
		}
	}
	base := filepath.Base(rel)
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}

// discover walks root and returns the matching source files, deduplicated
// and sorted. Unreadable subdirectories are logged and skipped; failing to
// read root itself is fatal.
func (m *fileMatcher) discover(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == m.root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if m.Skip(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !m.supported(path) || m.Skip(path, false) {
			return nil
		}
		seen[filepath.Clean(path)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(seen))
	for p := range seen {
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}
