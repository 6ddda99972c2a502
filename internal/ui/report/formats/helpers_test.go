package formats

import (
	"time"

	"depsentry/internal/engine/findings"
)

func sampleResult() *findings.AnalysisResult {
	list := []findings.Finding{
		{
			Kind:        findings.KindMissingDependency,
			Severity:    findings.SeverityHigh,
			File:        "/project/src/c.ts",
			Line:        2,
			ImportToken: "lodash",
			Message:     "Package 'lodash' is imported but not declared in package.json",
			Suggestion:  "Declare it as a dependency: npm install lodash",
			Missing:     &findings.MissingPayload{Package: "lodash"},
		},
		{
			Kind:       findings.KindCircularDependency,
			Severity:   findings.SeverityLow,
			File:       "/project/src/a.ts",
			Line:       1,
			Message:    "Circular dependency: a.ts → b.ts → a.ts",
			Suggestion: "Circular dependency between a.ts and b.ts. Consider extracting the shared functionality into a separate module.",
			Cycle: &findings.CyclePayload{
				Cycle:   []string{"a.ts", "b.ts", "a.ts"},
				NodeIDs: []string{"/project/src/a.ts", "/project/src/b.ts", "/project/src/a.ts"},
				Files:   []string{"/project/src/a.ts", "/project/src/b.ts"},
			},
		},
		{
			Kind:        findings.KindUnusedImport,
			Severity:    findings.SeverityLow,
			File:        "/project/src/c.ts",
			Line:        1,
			ImportToken: "./util",
			Message:     "Import of './util' is unused (helper)",
			Suggestion:  "Remove the unused import statement",
			AutoFixable: true,
			Unused:      &findings.UnusedPayload{UnusedNames: []string{"helper"}, AllUnused: true, EndLine: 1},
		},
	}
	return &findings.AnalysisResult{
		Severity: findings.SeverityHigh,
		Findings: list,
		Summary:  findings.Summarize(list, 4, 2),
		Metadata: findings.Metadata{
			AnalysisID:        "run-1",
			AnalysisTimestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			AnalysisVersion:   "1.2.3",
			ProjectType:       "typescript",
			PackageManager:    "npm",
			RootDir:           "/project",
			Duration:          1500 * time.Millisecond,
		},
	}
}
