package ports

import (
	"context"
	"time"

	"depsentry/internal/data/history"
	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/manifest"
	"depsentry/internal/engine/parser"
)

// ImportParser extracts import statements from one source file.
type ImportParser interface {
	Parse(path string, content []byte) (*parser.File, error)
	IsSupportedPath(path string) bool
}

// ManifestLoader reads package manifests under a root.
type ManifestLoader interface {
	Load(ctx context.Context, root string) (*manifest.Set, error)
}

// VersionAnalyzer reports incompatible declarations of the same package.
type VersionAnalyzer interface {
	FindConflicts(packages []manifest.PackageInfo) []findings.Finding
}

// DeprecationChecker reports declared packages that are deprecated.
type DeprecationChecker interface {
	Check(packages []manifest.PackageInfo) []findings.Finding
}

// AutoFixer applies mechanical remediation for auto-fixable findings.
type AutoFixer interface {
	ApplyFixes(list []findings.Finding) []findings.AutoFixResult
}

// HistoryStore abstracts snapshot persistence for trend reporting.
type HistoryStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) error
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
}
