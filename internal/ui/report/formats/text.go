package formats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"depsentry/internal/engine/findings"

	"github.com/charmbracelet/lipgloss"
)

type textStyles struct {
	title  lipgloss.Style
	high   lipgloss.Style
	medium lipgloss.Style
	low    lipgloss.Style
	clean  lipgloss.Style
	dim    lipgloss.Style
}

func newTextStyles(r *lipgloss.Renderer, color bool) textStyles {
	if !color {
		plain := r.NewStyle()
		return textStyles{plain, plain, plain, plain, plain, plain}
	}
	return textStyles{
		title:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		high:   r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		medium: r.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true),
		low:    r.NewStyle().Foreground(lipgloss.Color("#64748B")),
		clean:  r.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	}
}

func (s textStyles) severity(sev findings.Severity) lipgloss.Style {
	switch sev {
	case findings.SeverityHigh:
		return s.high
	case findings.SeverityMedium:
		return s.medium
	default:
		return s.low
	}
}

// TextGenerator renders the human-readable terminal summary.
type TextGenerator struct {
	Color   bool
	Verbose bool
}

func (t TextGenerator) Write(w io.Writer, result *findings.AnalysisResult) error {
	styles := newTextStyles(lipgloss.NewRenderer(w), t.Color)
	root := result.Metadata.RootDir

	var b strings.Builder
	b.WriteString(styles.title.Render("Dependency Analysis") + "\n")
	fmt.Fprintf(&b, "%s\n", styles.dim.Render(fmt.Sprintf("%s | %s | %d files | %d dependencies | %s",
		nonEmpty(root, "."),
		nonEmpty(result.Metadata.ProjectType, "unknown"),
		result.Summary.FilesAnalyzed,
		result.Summary.DependenciesAnalyzed,
		result.Metadata.Duration.Round(time.Millisecond),
	)))
	b.WriteString("\n")

	if len(result.Findings) == 0 {
		b.WriteString(styles.clean.Render("No issues found") + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	byKind := groupByKind(result.Findings)
	for _, kind := range findings.Kinds {
		rows := byKind[kind]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", styles.title.Render(kindTitle(kind)), len(rows))
		for _, f := range rows {
			sev := styles.severity(f.Severity).Render(fmt.Sprintf("%-6s", strings.ToUpper(f.Severity.String())))
			fmt.Fprintf(&b, "  %s %s  %s\n", sev, location(root, f), f.Message)
			if t.Verbose && f.Suggestion != "" {
				fmt.Fprintf(&b, "         %s\n", styles.dim.Render("-> "+f.Suggestion))
			}
		}
		b.WriteString("\n")
	}

	if len(result.Fixes) > 0 {
		applied, failed := 0, 0
		for _, fx := range result.Fixes {
			switch {
			case fx.Error != "":
				failed++
			case fx.Applied || fx.DryRun:
				applied++
			}
		}
		verb := "applied"
		if result.Fixes[0].DryRun {
			verb = "would apply"
		}
		fmt.Fprintf(&b, "Auto-fix: %d %s, %d failed\n", applied, verb, failed)
	}

	overall := styles.severity(result.Severity).Render(strings.ToUpper(result.Severity.String()))
	fmt.Fprintf(&b, "%d issues (%d critical, %d auto-fixable), overall severity %s\n",
		result.Summary.TotalIssues,
		result.Summary.CriticalIssues,
		result.Summary.AutoFixableIssues,
		overall,
	)
	_, err := io.WriteString(w, b.String())
	return err
}
