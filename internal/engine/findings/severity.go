package findings

import (
	"fmt"
	"sort"
	"strings"
)

type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	}
	return "unknown"
}

func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want low, medium or high)", raw)
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityLow || s > SeverityHigh {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func MaxSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

// Overall is the highest severity across findings, low when there are none.
func Overall(list []Finding) Severity {
	overall := SeverityLow
	for _, f := range list {
		overall = MaxSeverity(overall, f.Severity)
	}
	return overall
}

// Thresholds maps an issue kind to its configured severity.
type Thresholds map[Kind]Severity

func DefaultThresholds() Thresholds {
	return Thresholds{
		KindUnusedImport:       SeverityLow,
		KindCircularDependency: SeverityHigh,
		KindVersionConflict:    SeverityMedium,
		KindDeprecatedPackage:  SeverityMedium,
		KindMissingDependency:  SeverityHigh,
		KindDuplicateImport:    SeverityLow,
	}
}

// ParseThresholds merges raw config overrides onto the defaults.
func ParseThresholds(raw map[string]string) (Thresholds, error) {
	out := DefaultThresholds()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		kind, err := ParseKind(key)
		if err != nil {
			return nil, err
		}
		sev, err := ParseSeverity(raw[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[kind] = sev
	}
	return out, nil
}

// Apply sets the final severity of f. Circular dependencies keep their derived
// severity capped at the configured level; every other kind takes the configured level.
func (t Thresholds) Apply(f Finding) Finding {
	level, ok := t[f.Kind]
	if !ok {
		level = DefaultThresholds()[f.Kind]
	}
	if f.Kind == KindCircularDependency {
		if f.Severity == 0 {
			f.Severity = SeverityLow
		}
		if f.Severity > level {
			f.Severity = level
		}
		return f
	}
	f.Severity = level
	return f
}
