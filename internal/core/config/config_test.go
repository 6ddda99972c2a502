// # internal/core/config/config_test.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "depsentry/internal/core/errors"
	"depsentry/internal/engine/findings"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[analysis]
root_dir = "src"
include = ["src/**/*.ts"]
exclude = ["**/generated/**"]
check_versions = false
max_circular_depth = 6
auto_fix = true
workers = 3

[analysis.severity_thresholds]
unused = "medium"
circular = "low"

[deprecated]
legacy-lib = "Use modern-lib"

[output]
format = "SARIF"
path = "report.sarif"

[history]
enabled = true
project_key = "web"

[watch]
debounce = "1s"
max_runs_per_minute = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	a := cfg.Analysis
	assert.Equal(t, filepath.Join(dir, "src"), a.RootDir)
	assert.Equal(t, []string{"src/**/*.ts"}, a.Include)
	assert.Equal(t, []string{"**/generated/**"}, a.Exclude)
	assert.True(t, a.ExternalDeps())
	assert.True(t, a.Deprecations())
	assert.False(t, a.Versions())
	assert.Equal(t, 6, a.MaxCircularDepth)
	assert.True(t, a.AutoFix)
	assert.Equal(t, 3, a.Workers)
	assert.Equal(t, "Use modern-lib", a.Deprecated["legacy-lib"])

	th, err := a.Thresholds()
	require.NoError(t, err)
	assert.Equal(t, findings.SeverityMedium, th[findings.KindUnusedImport])
	assert.Equal(t, findings.SeverityLow, th[findings.KindCircularDependency])
	assert.Equal(t, findings.SeverityMedium, th[findings.KindVersionConflict])

	assert.Equal(t, "sarif", cfg.Output.Format)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "web", cfg.History.ProjectKey)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 10, cfg.Watch.MaxRunsPerMinute)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/repo")
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "/repo", cfg.Analysis.RootDir)
	assert.Equal(t, 10, cfg.Analysis.MaxCircularDepth)
	assert.Equal(t, runtime.NumCPU(), cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.ExternalDeps())
	assert.True(t, cfg.Analysis.Deprecations())
	assert.True(t, cfg.Analysis.Versions())
	assert.False(t, cfg.Analysis.AutoFix)
	assert.Contains(t, cfg.Analysis.Exclude, "**/node_modules/**")
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 5*time.Second, cfg.History.BusyTimeout)

	th, err := cfg.Analysis.Thresholds()
	require.NoError(t, err)
	assert.Equal(t, findings.DefaultThresholds(), th)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[analysis\n", "parse config"},
		{"unknown key", "[analysis]\nmax_depth = 3\n", "unknown config keys"},
		{"bad depth", "[analysis]\nmax_circular_depth = -1\n", "max_circular_depth"},
		{"bad format", "[output]\nformat = \"xml\"\n", "output.format"},
		{"bad glob", "[analysis]\nexclude = [\"src/[a\"]\n", "analysis.exclude[0]"},
		{"bad threshold kind", "[analysis.severity_thresholds]\nstyle = \"low\"\n", "severity_thresholds"},
		{"bad threshold level", "[analysis.severity_thresholds]\nunused = \"critical\"\n", "severity_thresholds"},
		{"bad extension", "[analysis]\nextensions = [\"ts\"]\n", "extensions[0]"},
		{"bad version", "version = 3\n", "unsupported config version"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, domainErrors.IsCode(err, domainErrors.CodeInvalidConfig), err.Error())
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.toml"), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Analysis.RootDir)

	cfg, err = LoadOrDefault("", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Analysis.RootDir)

	path := writeConfig(t, dir, "[analysis]\nmax_circular_depth = 4\n")
	cfg, err = LoadOrDefault(path, "/ignored")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Analysis.MaxCircularDepth)
	assert.Equal(t, dir, cfg.Analysis.RootDir)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEPSENTRY_OUTPUT_FORMAT", "json")
	t.Setenv("DEPSENTRY_ANALYSIS_MAX_CIRCULAR_DEPTH", "7")
	t.Setenv("DEPSENTRY_ANALYSIS_CHECK_DEPRECATED", "FALSE")
	t.Setenv("DEPSENTRY_WATCH_DEBOUNCE", "2s")
	t.Setenv("DEPSENTRY_HISTORY_RETENTION", "720h")
	t.Setenv("DEPSENTRY_OUTPUT_COLOR", "0")

	cfg, err := LoadOrDefault("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 7, cfg.Analysis.MaxCircularDepth)
	assert.False(t, cfg.Analysis.Deprecations())
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 720*time.Hour, cfg.History.Retention)
	require.NotNil(t, cfg.Output.Color)
	assert.False(t, *cfg.Output.Color)
	assert.Equal(t, runtime.NumCPU(), cfg.Analysis.Workers)
}

func TestEnvOverrides_RejectMalformedValues(t *testing.T) {
	t.Setenv("DEPSENTRY_ANALYSIS_WORKERS", "not-a-number")

	_, err := LoadOrDefault("", t.TempDir())
	require.Error(t, err)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeInvalidConfig))
	assert.Contains(t, err.Error(), "DEPSENTRY_ANALYSIS_WORKERS")

	path := writeConfig(t, t.TempDir(), "")
	_, err = Load(path)
	require.Error(t, err)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeInvalidConfig))
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "packages", "ui", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Empty(t, FindConfigFile(nested))

	path := writeConfig(t, root, "")
	assert.Equal(t, path, FindConfigFile(nested))
}

func TestResolveRelative(t *testing.T) {
	assert.Equal(t, "/base", ResolveRelative("/base", " "))
	assert.Equal(t, "/abs/x", ResolveRelative("/base", "/abs/x"))
	assert.Equal(t, "/base/rel", ResolveRelative("/base", "./rel"))
}

func TestDefaultStateDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, filepath.Join("/tmp/state", "depsentry"), DefaultStateDir())
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[analysis]\nmax_circular_depth = 3\n")

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { reloaded <- c })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[analysis]\nmax_circular_depth = 8\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 8, cfg.Analysis.MaxCircularDepth)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcherSkipsUnchangedAndInvalidContent(t *testing.T) {
	dir := t.TempDir()
	original := "[analysis]\nmax_circular_depth = 3\n"
	path := writeConfig(t, dir, original)

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { reloaded <- c })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[analysis]\nmax_circular_depth = -1\n"), 0o644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("unexpected reload with depth %d", cfg.Analysis.MaxCircularDepth)
	case <-time.After(500 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("[analysis]\nmax_circular_depth = 5\n"), 0o644))
	select {
	case cfg := <-reloaded:
		assert.Equal(t, 5, cfg.Analysis.MaxCircularDepth)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
