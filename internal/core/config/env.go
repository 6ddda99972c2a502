package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	domainErrors "depsentry/internal/core/errors"
)

// EnvPrefix starts every environment override, followed by the TOML table and
// key in upper case: DEPSENTRY_OUTPUT_FORMAT sets [output] format.
const EnvPrefix = "DEPSENTRY_"

type envBinding struct {
	key string
	set func(cfg *Config, raw string) error
}

var envBindings = []envBinding{
	{"ANALYSIS_ROOT_DIR", stringField(func(c *Config) *string { return &c.Analysis.RootDir })},
	{"ANALYSIS_MAX_CIRCULAR_DEPTH", intField(func(c *Config) *int { return &c.Analysis.MaxCircularDepth })},
	{"ANALYSIS_WORKERS", intField(func(c *Config) *int { return &c.Analysis.Workers })},
	{"ANALYSIS_AUTO_FIX", boolField(func(c *Config) *bool { return &c.Analysis.AutoFix })},
	{"ANALYSIS_ANALYZE_EXTERNAL_DEPS", optionalBoolField(func(c *Config) **bool { return &c.Analysis.AnalyzeExternalDeps })},
	{"ANALYSIS_CHECK_DEPRECATED", optionalBoolField(func(c *Config) **bool { return &c.Analysis.CheckDeprecated })},
	{"ANALYSIS_CHECK_VERSIONS", optionalBoolField(func(c *Config) **bool { return &c.Analysis.CheckVersions })},

	{"OUTPUT_FORMAT", stringField(func(c *Config) *string { return &c.Output.Format })},
	{"OUTPUT_PATH", stringField(func(c *Config) *string { return &c.Output.Path })},
	{"OUTPUT_COLOR", optionalBoolField(func(c *Config) **bool { return &c.Output.Color })},

	{"HISTORY_ENABLED", boolField(func(c *Config) *bool { return &c.History.Enabled })},
	{"HISTORY_PATH", stringField(func(c *Config) *string { return &c.History.Path })},
	{"HISTORY_PROJECT_KEY", stringField(func(c *Config) *string { return &c.History.ProjectKey })},
	{"HISTORY_BUSY_TIMEOUT", durationField(func(c *Config) *time.Duration { return &c.History.BusyTimeout })},
	{"HISTORY_RETENTION", durationField(func(c *Config) *time.Duration { return &c.History.Retention })},

	{"WATCH_DEBOUNCE", durationField(func(c *Config) *time.Duration { return &c.Watch.Debounce })},
	{"WATCH_MAX_RUNS_PER_MINUTE", intField(func(c *Config) *int { return &c.Watch.MaxRunsPerMinute })},
	{"WATCH_RELOAD_CONFIG", optionalBoolField(func(c *Config) **bool { return &c.Watch.ReloadConfig })},

	{"OBSERVABILITY_METRICS_ADDR", stringField(func(c *Config) *string { return &c.Observability.MetricsAddr })},
	{"OBSERVABILITY_OTLP_ENDPOINT", stringField(func(c *Config) *string { return &c.Observability.OTLPEndpoint })},
	{"OBSERVABILITY_OTLP_INSECURE", boolField(func(c *Config) *bool { return &c.Observability.OTLPInsecure })},
}

// ApplyEnvOverrides copies every set DEPSENTRY_* variable into cfg. A value
// that does not parse for its field is an invalid-config error naming the
// variable.
func ApplyEnvOverrides(cfg *Config) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.key
		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := b.set(cfg, strings.TrimSpace(raw)); err != nil {
			return domainErrors.AddContext(
				domainErrors.Wrap(err, domainErrors.CodeInvalidConfig, "environment override "+name),
				domainErrors.CtxOperation, "env")
		}
		slog.Debug("applied env override", "key", name)
	}
	return nil
}

func stringField(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}
}

func intField(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", raw)
		}
		*field(c) = n
		return nil
	}
}

func boolField(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return fmt.Errorf("expected a boolean, got %q", raw)
		}
		*field(c) = v
		return nil
	}
}

func optionalBoolField(field func(*Config) **bool) func(*Config, string) error {
	return func(c *Config, raw string) error {
		var v bool
		if err := boolField(func(*Config) *bool { return &v })(c, raw); err != nil {
			return err
		}
		*field(c) = &v
		return nil
	}
}

func durationField(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, raw string) error {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("expected a duration such as 500ms or 2s, got %q", raw)
		}
		*field(c) = d
		return nil
	}
}
