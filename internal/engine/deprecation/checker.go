package deprecation

import (
	"fmt"
	"sort"
	"strings"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/manifest"
	"depsentry/internal/engine/versions"
)

// Checker reports declared packages known to be deprecated.
type Checker struct {
	entries map[string]string
}

// NewChecker merges extra over the built-in list. Keys are package names, or
// "name@N" to restrict an entry to major version N.
func NewChecker(extra map[string]string) *Checker {
	entries := make(map[string]string, len(builtin)+len(extra))
	for k, v := range builtin {
		entries[k] = v
	}
	for k, v := range extra {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		entries[k] = strings.TrimSpace(v)
	}
	return &Checker{entries: entries}
}

// Lookup returns the replacement advice for name at the given version spec.
func (c *Checker) Lookup(name, spec string) (string, bool) {
	if line, ok := versions.CompatibilityLine(spec); ok {
		major := strings.TrimPrefix(line, "v")
		if i := strings.Index(major, "."); i >= 0 {
			major = major[:i]
		}
		if advice, ok := c.entries[name+"@"+major]; ok {
			return advice, true
		}
	}
	advice, ok := c.entries[name]
	return advice, ok
}

// Check returns one finding per deprecated direct declaration, reported
// against its manifest. Installed packages carrying a lockfile deprecation
// notice are reported once each unless already declared directly.
func (c *Checker) Check(packages []manifest.PackageInfo) []findings.Finding {
	out := make([]findings.Finding, 0)
	reported := make(map[string]bool)
	seen := make(map[string]bool)

	for _, p := range packages {
		if !p.IsDirect {
			continue
		}
		key := p.Manifest + "\x00" + p.Name
		if seen[key] {
			continue
		}
		seen[key] = true

		advice, ok := c.Lookup(p.Name, p.Version)
		if !ok {
			continue
		}
		reported[p.Name] = true
		out = append(out, deprecatedFinding(p, advice, ""))
	}

	lockfile := make([]manifest.PackageInfo, 0)
	for _, p := range packages {
		if p.IsDirect || p.Deprecated == "" || reported[p.Name] {
			continue
		}
		reported[p.Name] = true
		lockfile = append(lockfile, p)
	}
	sort.SliceStable(lockfile, func(i, j int) bool { return lockfile[i].Name < lockfile[j].Name })
	for _, p := range lockfile {
		advice, _ := c.Lookup(p.Name, p.Version)
		out = append(out, deprecatedFinding(p, advice, p.Deprecated))
	}
	return out
}

func deprecatedFinding(p manifest.PackageInfo, advice, notice string) findings.Finding {
	msg := fmt.Sprintf("'%s@%s' is deprecated", p.Name, p.Version)
	if notice != "" {
		msg += ": " + notice
	}
	suggestion := advice
	if suggestion == "" {
		suggestion = fmt.Sprintf("Remove '%s' or replace it with a maintained alternative", p.Name)
	}
	return findings.Finding{
		Kind:        findings.KindDeprecatedPackage,
		Severity:    findings.DefaultThresholds()[findings.KindDeprecatedPackage],
		File:        p.Manifest,
		ImportToken: p.Name,
		Message:     msg,
		Suggestion:  suggestion,
		Deprecated: &findings.DeprecatedPayload{
			Package:     p.Name,
			Version:     p.Version,
			Replacement: advice,
		},
	}
}
