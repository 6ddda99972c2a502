package config

import (
	"time"

	"depsentry/internal/engine/findings"
)

const DefaultFileName = "depsentry.toml"

type Config struct {
	Version       int               `toml:"version"`
	Analysis      Analysis          `toml:"analysis"`
	Deprecated    map[string]string `toml:"deprecated"`
	Output        Output            `toml:"output"`
	History       History           `toml:"history"`
	Watch         Watch             `toml:"watch"`
	Observability Observability     `toml:"observability"`
}

// Analysis is the per-run input of the analyzer.
type Analysis struct {
	RootDir             string            `toml:"root_dir"`
	Include             []string          `toml:"include"`
	Exclude             []string          `toml:"exclude"`
	AnalyzeExternalDeps *bool             `toml:"analyze_external_deps"`
	CheckDeprecated     *bool             `toml:"check_deprecated"`
	CheckVersions       *bool             `toml:"check_versions"`
	MaxCircularDepth    int               `toml:"max_circular_depth"`
	AutoFix             bool              `toml:"auto_fix"`
	DryRun              bool              `toml:"dry_run"`
	SeverityThresholds  map[string]string `toml:"severity_thresholds"`
	Workers             int               `toml:"workers"`
	IncludeTests        *bool             `toml:"include_tests"`
	Extensions          []string          `toml:"extensions"`
	ExcludedImports     []string          `toml:"excluded_imports"`

	// Deprecated mirrors the top-level [deprecated] table so a single
	// Analysis value carries everything a run needs.
	Deprecated map[string]string `toml:"-"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
	Color  *bool  `toml:"color"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	ProjectKey  string        `toml:"project_key"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	Retention   time.Duration `toml:"retention"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	MaxRunsPerMinute int           `toml:"max_runs_per_minute"`
	ReloadConfig     *bool         `toml:"reload_config"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
}

// DefaultConfig returns a configuration with every default applied and the
// given root.
func DefaultConfig(root string) *Config {
	cfg := &Config{Analysis: Analysis{RootDir: root}}
	applyDefaults(cfg)
	return cfg
}

func boolValue(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func boolPtr(b bool) *bool {
	return &b
}

func (a Analysis) ExternalDeps() bool { return boolValue(a.AnalyzeExternalDeps, true) }

func (a Analysis) Deprecations() bool { return boolValue(a.CheckDeprecated, true) }

func (a Analysis) Versions() bool { return boolValue(a.CheckVersions, true) }

func (a Analysis) Tests() bool { return boolValue(a.IncludeTests, true) }

// Thresholds merges the configured overrides onto the default severities.
func (a Analysis) Thresholds() (findings.Thresholds, error) {
	return findings.ParseThresholds(a.SeverityThresholds)
}

func (o Output) ColorEnabled() bool { return boolValue(o.Color, true) }

func (w Watch) ReloadEnabled() bool { return boolValue(w.ReloadConfig, true) }
