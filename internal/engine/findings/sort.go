package findings

import "sort"

// Sort orders findings by severity (high first), then kind, file, line and message.
func Sort(list []Finding) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Kind != b.Kind {
			return a.Kind.rank() < b.Kind.rank()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.ImportToken != b.ImportToken {
			return a.ImportToken < b.ImportToken
		}
		return a.Message < b.Message
	})
}

// Summarize counts findings for the report header.
func Summarize(list []Finding, filesAnalyzed, dependenciesAnalyzed int) Summary {
	s := Summary{
		TotalIssues:          len(list),
		FilesAnalyzed:        filesAnalyzed,
		DependenciesAnalyzed: dependenciesAnalyzed,
	}
	for _, f := range list {
		if f.AutoFixable {
			s.AutoFixableIssues++
		}
		if f.Severity == SeverityHigh {
			s.CriticalIssues++
		}
	}
	return s
}

// Fixable returns the auto-fixable subset, preserving order.
func Fixable(list []Finding) []Finding {
	out := make([]Finding, 0)
	for _, f := range list {
		if f.AutoFixable {
			out = append(out, f)
		}
	}
	return out
}
