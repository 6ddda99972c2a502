package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	domainErrors "depsentry/internal/core/errors"
)

var outputFormats = map[string]bool{"text": true, "json": true, "sarif": true, "markdown": true}

// Validate checks a defaulted config. Every failure is a CodeInvalidConfig
// domain error naming the offending key.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateAnalysis,
		validateOutput,
		validateHistory,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			return domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	a := cfg.Analysis
	if strings.TrimSpace(a.RootDir) == "" {
		return fmt.Errorf("analysis.root_dir must not be empty")
	}
	if a.MaxCircularDepth < 1 {
		return fmt.Errorf("analysis.max_circular_depth must be >= 1, got %d", a.MaxCircularDepth)
	}
	if a.Workers < 1 {
		return fmt.Errorf("analysis.workers must be >= 1, got %d", a.Workers)
	}
	if err := validatePatterns("analysis.include", a.Include); err != nil {
		return err
	}
	if err := validatePatterns("analysis.exclude", a.Exclude); err != nil {
		return err
	}
	for i, ext := range a.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("analysis.extensions[%d] must start with '.', got %q", i, ext)
		}
	}
	if _, err := a.Thresholds(); err != nil {
		return fmt.Errorf("analysis.severity_thresholds: %w", err)
	}
	return nil
}

func validatePatterns(key string, patterns []string) error {
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%s[%d] must not be empty", key, i)
		}
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("%s[%d] %q: %w", key, i, p, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if !outputFormats[format] {
		return fmt.Errorf("output.format must be one of: text, json, sarif, markdown; got %q", cfg.Output.Format)
	}
	cfg.Output.Format = format
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	if cfg.History.Retention < 0 {
		return fmt.Errorf("history.retention must not be negative")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxRunsPerMinute < 1 {
		return fmt.Errorf("watch.max_runs_per_minute must be >= 1, got %d", cfg.Watch.MaxRunsPerMinute)
	}
	return nil
}
