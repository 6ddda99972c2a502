package history

import (
	"time"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/graph"
)

const SchemaVersion = 1

// Snapshot is the persisted summary of one analysis run.
type Snapshot struct {
	ProjectKey    string
	SchemaVersion int
	Timestamp     time.Time
	AnalysisID    string
	Severity      string

	FileCount       int
	DependencyCount int
	NodeCount       int
	EdgeCount       int

	TotalIssues    int
	CriticalIssues int
	AutoFixable    int

	CycleCount      int
	MissingCount    int
	VersionCount    int
	DeprecatedCount int
	UnusedCount     int
	DuplicateCount  int

	MaxFanIn  int
	MaxFanOut int
}

// FromResult condenses an analysis result and its graph shape into a snapshot.
func FromResult(result *findings.AnalysisResult, stats graph.Stats) Snapshot {
	counts := result.CountByKind()
	return Snapshot{
		SchemaVersion:   SchemaVersion,
		Timestamp:       result.Metadata.AnalysisTimestamp.UTC(),
		AnalysisID:      result.Metadata.AnalysisID,
		Severity:        result.Severity.String(),
		FileCount:       result.Summary.FilesAnalyzed,
		DependencyCount: result.Summary.DependenciesAnalyzed,
		NodeCount:       stats.Nodes,
		EdgeCount:       stats.Edges,
		TotalIssues:     result.Summary.TotalIssues,
		CriticalIssues:  result.Summary.CriticalIssues,
		AutoFixable:     result.Summary.AutoFixableIssues,
		CycleCount:      counts[findings.KindCircularDependency],
		MissingCount:    counts[findings.KindMissingDependency],
		VersionCount:    counts[findings.KindVersionConflict],
		DeprecatedCount: counts[findings.KindDeprecatedPackage],
		UnusedCount:     counts[findings.KindUnusedImport],
		DuplicateCount:  counts[findings.KindDuplicateImport],
		MaxFanIn:        stats.MaxFanIn,
		MaxFanOut:       stats.MaxFanOut,
	}
}
