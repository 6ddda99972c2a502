package app

import (
	"context"
	"path/filepath"
	"testing"

	"depsentry/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysSupported(string) bool { return true }

func TestFileMatcher_Skip(t *testing.T) {
	root := filepath.FromSlash("/repo")
	cfg := config.Analysis{
		Include: []string{"src/**"},
		Exclude: []string{"**/dist/**", "**/*.gen.ts"},
	}
	noTests := false
	cfg.IncludeTests = &noTests

	m, err := newFileMatcher(root, cfg, alwaysSupported)
	require.NoError(t, err)

	tests := []struct {
		rel   string
		isDir bool
		skip  bool
	}{
		{"", true, false},
		{"src", true, false},
		{"dist", true, true},
		{"src/dist", true, true},
		{"node_modules", true, true},
		{"src/pkg/node_modules", true, true},
		{"src/a.ts", false, false},
		{"src/deep/b.tsx", false, false},
		{"lib/a.ts", false, true},
		{"src/a.gen.ts", false, true},
		{"src/a.test.ts", false, true},
		{"src/__tests__/a.ts", false, true},
	}
	for _, tt := range tests {
		path := filepath.Join(root, filepath.FromSlash(tt.rel))
		assert.Equal(t, tt.skip, m.Skip(path, tt.isDir), tt.rel)
	}
}

func TestFileMatcher_DiscoverSortsAndFilters(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/z.ts":                "",
		"src/a.js":                "",
		"src/readme.md":           "",
		"build/out.js":            "",
		"node_modules/m/index.js": "",
	})
	cfg := config.DefaultConfig(root).Analysis
	m, err := newFileMatcher(root, cfg, func(p string) bool {
		ext := filepath.Ext(p)
		return ext == ".ts" || ext == ".js"
	})
	require.NoError(t, err)

	files, err := m.discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "a.js"),
		filepath.Join(root, "src", "z.ts"),
	}, files)
}

func TestFileMatcher_DiscoverMissingRoot(t *testing.T) {
	m, err := newFileMatcher(filepath.Join(t.TempDir(), "absent"), config.Analysis{}, alwaysSupported)
	require.NoError(t, err)
	_, err = m.discover(context.Background())
	assert.Error(t, err)
}

func TestWatchFilter(t *testing.T) {
	root := t.TempDir()
	cfg := config.Analysis{
		Include: []string{"src/**"},
		Exclude: []string{"**/dist/**"},
	}
	skip, err := WatchFilter(root, cfg)
	require.NoError(t, err)

	assert.False(t, skip(filepath.Join(root, "src", "a.ts"), false))
	assert.False(t, skip(filepath.Join(root, "package.json"), false))
	assert.False(t, skip(filepath.Join(root, "packages", "ui", "package.json"), false))
	assert.True(t, skip(filepath.Join(root, "scripts", "build.js"), false))
	assert.True(t, skip(filepath.Join(root, "dist"), true))
	assert.True(t, skip(filepath.Join(root, "node_modules"), true))

	_, err = WatchFilter(root, config.Analysis{Exclude: []string{"[unclosed"}})
	assert.Error(t, err)
}
