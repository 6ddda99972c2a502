package watcher

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// PathFilter reports whether a path should be ignored.
type PathFilter func(path string, isDir bool) bool

// filter decides which directories are descended into and which file events
// reach the change set. Globs match base names only.
type filter struct {
	skipDirs  []glob.Glob
	skipFiles []glob.Glob
	exts      map[string]struct{}
	names     map[string]struct{}
	custom    PathFilter
}

func newFilter(skipDirs, skipFiles []string) (*filter, error) {
	dirs, err := compileGlobs(skipDirs)
	if err != nil {
		return nil, err
	}
	files, err := compileGlobs(skipFiles)
	if err != nil {
		return nil, err
	}
	return &filter{skipDirs: dirs, skipFiles: files}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func anyMatch(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (f *filter) skipDir(path string) bool {
	if anyMatch(f.skipDirs, filepath.Base(path)) {
		return true
	}
	return f.custom != nil && f.custom(path, true)
}

func (f *filter) skipFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if len(f.exts) > 0 || len(f.names) > 0 {
		_, byName := f.names[base]
		_, byExt := f.exts[filepath.Ext(base)]
		if !byName && !byExt {
			return true
		}
	}
	if anyMatch(f.skipFiles, base) {
		return true
	}
	return f.custom != nil && f.custom(path, false)
}
