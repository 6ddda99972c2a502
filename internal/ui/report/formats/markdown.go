package formats

import (
	"fmt"
	"strings"
	"time"

	"depsentry/internal/engine/findings"
)

type MarkdownReportOptions struct {
	ProjectName string
	// Verbosity is summary, standard or detailed. Summary omits suggestions.
	Verbosity           string
	TableOfContents     bool
	CollapsibleSections bool
	IncludeMermaid      bool
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(result *findings.AnalysisResult, opts MarkdownReportOptions) (string, error) {
	meta := result.Metadata
	generated := meta.AnalysisTimestamp
	if generated.IsZero() {
		generated = time.Now()
	}
	verbosity := normalizeReportVerbosity(opts.Verbosity)
	byKind := groupByKind(result.Findings)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Dependency Analysis Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("generated_at: " + generated.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(meta.AnalysisVersion, "unknown") + "\n")
	b.WriteString("analysis_id: " + nonEmpty(meta.AnalysisID, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Dependency Analysis Report\n\n")
	diagram := ""
	if opts.IncludeMermaid {
		diagram = CycleDiagram(result)
	}
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Executive Summary](#executive-summary)\n")
		for _, kind := range findings.Kinds {
			title := kindTitle(kind)
			fmt.Fprintf(&b, "- [%s](#%s)\n", title, anchor(title))
		}
		if diagram != "" {
			b.WriteString("- [Dependency Diagram](#dependency-diagram)\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Executive Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Overall Severity | %s |\n", result.Severity)
	fmt.Fprintf(&b, "| Project Type | %s |\n", nonEmpty(meta.ProjectType, "unknown"))
	fmt.Fprintf(&b, "| Package Manager | %s |\n", nonEmpty(meta.PackageManager, "unknown"))
	fmt.Fprintf(&b, "| Files Analyzed | %d |\n", result.Summary.FilesAnalyzed)
	fmt.Fprintf(&b, "| Dependencies Analyzed | %d |\n", result.Summary.DependenciesAnalyzed)
	fmt.Fprintf(&b, "| Total Issues | %d |\n", result.Summary.TotalIssues)
	fmt.Fprintf(&b, "| Critical Issues | %d |\n", result.Summary.CriticalIssues)
	fmt.Fprintf(&b, "| Auto-fixable Issues | %d |\n", result.Summary.AutoFixableIssues)
	for _, kind := range findings.Kinds {
		fmt.Fprintf(&b, "| %s | %d |\n", kindTitle(kind), len(byKind[kind]))
	}
	b.WriteString("\n")

	for _, kind := range findings.Kinds {
		m.writeKind(&b, kind, byKind[kind], meta.RootDir, opts.CollapsibleSections, verbosity)
	}

	if len(result.Fixes) > 0 {
		m.writeFixes(&b, result.Fixes, meta.RootDir)
	}

	if diagram != "" {
		b.WriteString("## Dependency Diagram\n")
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSpace(diagram))
		b.WriteString("\n```\n")
	}

	return b.String(), nil
}

func (m *MarkdownGenerator) writeKind(b *strings.Builder, kind findings.Kind, rows []findings.Finding, root string, collapsible bool, verbosity string) {
	title := kindTitle(kind)
	b.WriteString("## " + title + "\n")
	if len(rows) == 0 {
		fmt.Fprintf(b, "No %s detected.\n\n", strings.ToLower(title))
		return
	}

	header := []string{"| Severity | Location | Issue | Fixable |\n", "| --- | --- | --- | --- |\n"}
	if verbosity != "summary" {
		header = []string{"| Severity | Location | Issue | Suggestion | Fixable |\n", "| --- | --- | --- | --- | --- |\n"}
	}
	rendered := make([]string, 0, len(rows))
	for _, f := range rows {
		fixable := ""
		if f.AutoFixable {
			fixable = "yes"
		}
		issue := escapeCell(f.Message)
		if verbosity == "detailed" && f.Cycle != nil && len(f.Cycle.Files) > 0 {
			files := make([]string, len(f.Cycle.Files))
			for i, p := range f.Cycle.Files {
				files[i] = relPath(root, p)
			}
			issue += "<br>files: `" + strings.Join(files, "`, `") + "`"
		}
		if verbosity == "summary" {
			rendered = append(rendered, fmt.Sprintf("| %s | `%s` | %s | %s |\n", f.Severity, location(root, f), issue, fixable))
			continue
		}
		rendered = append(rendered, fmt.Sprintf("| %s | `%s` | %s | %s | %s |\n",
			f.Severity, location(root, f), issue, escapeCell(f.Suggestion), fixable))
	}
	m.writeTableWithCollapse(b, title+" details", collapsible, len(rendered) > 10, header, rendered)
}

func (m *MarkdownGenerator) writeFixes(b *strings.Builder, fixes []findings.AutoFixResult, root string) {
	b.WriteString("## Auto-fix Results\n")
	rows := make([]string, 0, len(fixes))
	for _, fx := range fixes {
		status := "applied"
		switch {
		case fx.Error != "":
			status = "failed: " + escapeCell(fx.Error)
		case fx.DryRun:
			status = "dry run"
		}
		rows = append(rows, fmt.Sprintf("| `%s:%d` | %s | %s |\n", relPath(root, fx.File), fx.Line, fx.Kind, status))
	}
	m.writeTableWithCollapse(b, "Fix details", false, false,
		[]string{"| Location | Kind | Status |\n", "| --- | --- | --- |\n"}, rows)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}

func anchor(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

func normalizeReportVerbosity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "summary":
		return "summary"
	case "detailed":
		return "detailed"
	default:
		return "standard"
	}
}
