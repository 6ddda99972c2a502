package versions

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/manifest"
)

// Analyzer finds packages declared with incompatible version ranges.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// FindConflicts groups direct declarations by package and reports every
// package whose declarations span more than one compatibility line. Ranges
// that are not plain semver (tags, URLs, workspace and file specs, unions)
// never conflict.
func (a *Analyzer) FindConflicts(packages []manifest.PackageInfo) []findings.Finding {
	type entry struct {
		decl findings.Declaration
		line string
	}
	byName := make(map[string][]entry)
	for _, p := range packages {
		if !p.IsDirect {
			continue
		}
		line, ok := CompatibilityLine(p.Version)
		if !ok {
			continue
		}
		byName[p.Name] = append(byName[p.Name], entry{
			decl: findings.Declaration{Manifest: p.Manifest, Section: string(p.Section), Spec: p.Version},
			line: line,
		})
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]findings.Finding, 0)
	for _, name := range names {
		entries := byName[name]
		lines := make(map[string]bool)
		for _, e := range entries {
			lines[e.line] = true
		}
		if len(lines) < 2 {
			continue
		}

		majors := make([]string, 0, len(lines))
		for l := range lines {
			majors = append(majors, l)
		}
		sort.Slice(majors, func(i, j int) bool { return semver.Compare(majors[i], majors[j]) < 0 })

		decls := make([]findings.Declaration, 0, len(entries))
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			decls = append(decls, e.decl)
			parts = append(parts, fmt.Sprintf("%s (%s %s)", e.decl.Spec, e.decl.Manifest, e.decl.Section))
		}

		out = append(out, findings.Finding{
			Kind:        findings.KindVersionConflict,
			Severity:    findings.DefaultThresholds()[findings.KindVersionConflict],
			File:        decls[0].Manifest,
			ImportToken: name,
			Message:     fmt.Sprintf("'%s' is declared with incompatible versions: %s", name, strings.Join(parts, ", ")),
			Suggestion:  fmt.Sprintf("Align every declaration of '%s' on one version line (currently %s)", name, strings.Join(majors, ", ")),
			Version: &findings.VersionPayload{
				Package:      name,
				Majors:       majors,
				Declarations: decls,
			},
		})
	}
	return out
}

// CompatibilityLine reduces a version range to the semver line it allows:
// "^18.2.0" -> "v18", "~0.3.1" -> "v0.3". Versions below 1.0 are only
// compatible within a minor.
func CompatibilityLine(spec string) (string, bool) {
	v, ok := normalize(spec)
	if !ok {
		return "", false
	}
	major := semver.Major(v)
	if major == "v0" {
		return semver.MajorMinor(v), true
	}
	return major, true
}

func normalize(spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.Contains(spec, "||") || strings.Contains(spec, ":") || strings.Contains(spec, "/") {
		return "", false
	}
	if i := strings.IndexAny(spec, " \t"); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimLeft(spec, "^~>=<v")
	if spec == "" || spec[0] < '0' || spec[0] > '9' {
		return "", false
	}

	parts := strings.SplitN(spec, ".", 3)
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "x" || p == "X" || p == "*" {
			break
		}
		kept = append(kept, p)
	}
	v := "v" + strings.Join(kept, ".")
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}
