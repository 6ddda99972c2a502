package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	domainErrors "depsentry/internal/core/errors"
)

// Load reads, defaults and validates a TOML config file. Every failure is a
// CodeInvalidConfig domain error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "read config"), domainErrors.CtxPath, path)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "parse config"), domainErrors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, domainErrors.AddContext(
			domainErrors.New(domainErrors.CodeInvalidConfig, "unknown config keys: "+strings.Join(keys, ", ")), domainErrors.CtxPath, path)
	}

	// root_dir is relative to the config file and defaults to its directory.
	cfg.Analysis.RootDir = ResolveRelative(filepath.Dir(path), cfg.Analysis.RootDir)
	applyDefaults(&cfg)
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, domainErrors.AddContext(err, domainErrors.CtxPath, path)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults for root
// otherwise.
func LoadOrDefault(path, root string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
			return Load(path)
		}
	}
	cfg := DefaultConfig(root)
	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	a := &cfg.Analysis
	if strings.TrimSpace(a.RootDir) == "" {
		a.RootDir = "."
	}
	if a.AnalyzeExternalDeps == nil {
		a.AnalyzeExternalDeps = boolPtr(true)
	}
	if a.CheckDeprecated == nil {
		a.CheckDeprecated = boolPtr(true)
	}
	if a.CheckVersions == nil {
		a.CheckVersions = boolPtr(true)
	}
	if a.IncludeTests == nil {
		a.IncludeTests = boolPtr(true)
	}
	if a.MaxCircularDepth == 0 {
		a.MaxCircularDepth = 10
	}
	if a.Workers <= 0 {
		a.Workers = runtime.NumCPU()
	}
	if len(a.Exclude) == 0 {
		a.Exclude = []string{"**/node_modules/**", "**/dist/**", "**/build/**", "**/coverage/**", "**/.git/**"}
	}
	if a.SeverityThresholds == nil {
		a.SeverityThresholds = map[string]string{}
	}
	if cfg.Deprecated == nil {
		cfg.Deprecated = map[string]string{}
	}
	a.Deprecated = cfg.Deprecated

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = filepath.Join(DefaultStateDir(), "history.db")
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerMinute == 0 {
		cfg.Watch.MaxRunsPerMinute = 30
	}
}
