// # internal/engine/findings/types.go
package findings

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies which analysis produced a Finding and which payload it carries.
type Kind string

const (
	KindUnusedImport       Kind = "unused_import"
	KindMissingDependency  Kind = "missing_dependency"
	KindCircularDependency Kind = "circular_dependency"
	KindVersionConflict    Kind = "version_conflict"
	KindDeprecatedPackage  Kind = "deprecated_package"
	KindDuplicateImport    Kind = "duplicate_import"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{
	KindCircularDependency,
	KindMissingDependency,
	KindVersionConflict,
	KindDeprecatedPackage,
	KindUnusedImport,
	KindDuplicateImport,
}

func (k Kind) Valid() bool {
	return k.rank() >= 0
}

func (k Kind) rank() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return -1
}

// ParseKind accepts both the snake_case names and the short config aliases.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unused_import", "unused_imports", "unused":
		return KindUnusedImport, nil
	case "missing_dependency", "missing_dependencies", "missing":
		return KindMissingDependency, nil
	case "circular_dependency", "circular_dependencies", "circular":
		return KindCircularDependency, nil
	case "version_conflict", "version_conflicts", "versions":
		return KindVersionConflict, nil
	case "deprecated_package", "deprecated_packages", "deprecated":
		return KindDeprecatedPackage, nil
	case "duplicate_import", "duplicate_imports", "duplicates":
		return KindDuplicateImport, nil
	}
	return "", fmt.Errorf("unknown issue kind %q", raw)
}

// Finding is one reported problem. Exactly one payload pointer is set, matching Kind.
type Finding struct {
	Kind        Kind     `json:"issueKind"`
	Severity    Severity `json:"severity"`
	File        string   `json:"file"`
	Line        int      `json:"line,omitempty"` // 0 when the finding has no source line
	ImportToken string   `json:"importToken,omitempty"`
	Message     string   `json:"message"`
	Suggestion  string   `json:"suggestion"`
	AutoFixable bool     `json:"autoFixable"`

	Cycle      *CyclePayload      `json:"cycleDetails,omitempty"`
	Unused     *UnusedPayload     `json:"unusedDetails,omitempty"`
	Missing    *MissingPayload    `json:"missingDetails,omitempty"`
	Duplicate  *DuplicatePayload  `json:"duplicateDetails,omitempty"`
	Version    *VersionPayload    `json:"versionDetails,omitempty"`
	Deprecated *DeprecatedPayload `json:"deprecatedDetails,omitempty"`
}

// CyclePayload describes a circular dependency in closed-loop form: Cycle[0] == Cycle[len-1].
type CyclePayload struct {
	Cycle   []string `json:"cycle"`
	NodeIDs []string `json:"nodeIds"`
	Files   []string `json:"files"`
}

// Length is the number of distinct modules in the loop.
func (c *CyclePayload) Length() int {
	if len(c.NodeIDs) == 0 {
		return 0
	}
	return len(c.NodeIDs) - 1
}

type UnusedPayload struct {
	UnusedNames []string `json:"unusedNames"`
	AllUnused   bool     `json:"allUnused"`
	EndLine     int      `json:"endLine"`
}

type MissingPayload struct {
	Package  string `json:"package,omitempty"`
	Relative bool   `json:"relative"`
}

type DuplicatePayload struct {
	FirstLine int `json:"firstLine"`
	EndLine   int `json:"endLine"`
	Count     int `json:"count"`
}

type Declaration struct {
	Manifest string `json:"manifest"`
	Section  string `json:"section"`
	Spec     string `json:"spec"`
}

type VersionPayload struct {
	Package      string        `json:"package"`
	Majors       []string      `json:"majors"`
	Declarations []Declaration `json:"declarations"`
}

type DeprecatedPayload struct {
	Package     string `json:"package"`
	Version     string `json:"version"`
	Replacement string `json:"replacement"`
}

// Validate reports whether the payload matches the kind.
func (f Finding) Validate() error {
	if !f.Kind.Valid() {
		return fmt.Errorf("invalid issue kind %q", f.Kind)
	}
	set := 0
	for _, present := range []bool{f.Cycle != nil, f.Unused != nil, f.Missing != nil, f.Duplicate != nil, f.Version != nil, f.Deprecated != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%s finding carries %d payloads, want 1", f.Kind, set)
	}
	var ok bool
	switch f.Kind {
	case KindCircularDependency:
		ok = f.Cycle != nil
	case KindUnusedImport:
		ok = f.Unused != nil
	case KindMissingDependency:
		ok = f.Missing != nil
	case KindDuplicateImport:
		ok = f.Duplicate != nil
	case KindVersionConflict:
		ok = f.Version != nil
	case KindDeprecatedPackage:
		ok = f.Deprecated != nil
	}
	if !ok {
		return fmt.Errorf("%s finding carries the wrong payload", f.Kind)
	}
	return nil
}

// AutoFixResult reports what the fixer did with one fixable finding.
type AutoFixResult struct {
	File    string `json:"file"`
	Kind    Kind   `json:"issueKind"`
	Line    int    `json:"line"`
	Applied bool   `json:"applied"`
	DryRun  bool   `json:"dryRun,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Summary struct {
	TotalIssues          int `json:"totalIssues"`
	AutoFixableIssues    int `json:"autoFixableIssues"`
	CriticalIssues       int `json:"criticalIssues"`
	FilesAnalyzed        int `json:"filesAnalyzed"`
	DependenciesAnalyzed int `json:"dependenciesAnalyzed"`
}

type Metadata struct {
	AnalysisID        string        `json:"analysisId"`
	AnalysisTimestamp time.Time     `json:"analysisTimestamp"`
	AnalysisVersion   string        `json:"analysisVersion"`
	ProjectType       string        `json:"projectType"`
	PackageManager    string        `json:"packageManager"`
	RootDir           string        `json:"rootDir"`
	Duration          time.Duration `json:"duration"`
}

// AnalysisResult is built once per run and not mutated after it is returned.
type AnalysisResult struct {
	Severity Severity        `json:"severity"`
	Findings []Finding       `json:"findings"`
	Summary  Summary         `json:"summary"`
	Metadata Metadata        `json:"metadata"`
	Fixes    []AutoFixResult `json:"fixes,omitempty"`
	// StronglyConnected is the Tarjan view of the file graph. It is informational
	// and never merged into Findings.
	StronglyConnected [][]string `json:"stronglyConnectedComponents,omitempty"`
}

// CountByKind tallies findings per kind.
func (r *AnalysisResult) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, f := range r.Findings {
		counts[f.Kind]++
	}
	return counts
}
