package cli

import (
	"fmt"
	"strings"
	"time"

	"depsentry/internal/data/history"
	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/graph"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	highStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	mediumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type panel int

const (
	panelFindings panel = iota
	panelFiles
)

type findingItem struct {
	finding findings.Finding
	root    string
}

func (i findingItem) Title() string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(i.finding.Severity.String()), kindLabel(i.finding.Kind))
}

func (i findingItem) Description() string {
	return fmt.Sprintf("%s  %s", findingLocation(i.root, i.finding), i.finding.Message)
}

func (i findingItem) FilterValue() string {
	return string(i.finding.Kind) + " " + i.finding.Message + " " + displayPath(i.root, i.finding.File)
}

type fileItem struct {
	metrics graph.NodeMetrics
	root    string
}

func (i fileItem) Title() string { return displayPath(i.root, i.metrics.ID) }

func (i fileItem) Description() string {
	return fmt.Sprintf("imported by %d, imports %d, score %.0f", i.metrics.FanIn, i.metrics.FanOut, i.metrics.Score)
}

func (i fileItem) FilterValue() string { return displayPath(i.root, i.metrics.ID) }

// impactFunc looks up the dependents of a graph node.
type impactFunc func(target string) (graph.ImpactReport, error)

type model struct {
	mode        panel
	findingList list.Model
	fileList    list.Model
	result      *findings.AnalysisResult
	files       []graph.NodeMetrics
	minSeverity findings.Severity
	impact      impactFunc
	lastUpdate  time.Time
	trend       *history.TrendReport
	showTrend   bool
	width       int
	height      int

	impactReport     graph.ImpactReport
	hasImpact        bool
	impactErr        string
	selectedDepIndex int
	sourceJumpStatus string
}

type updateMsg struct {
	result *findings.AnalysisResult
	files  []graph.NodeMetrics
	trend  *history.TrendReport
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering() {
			return m.updateActiveList(msg)
		}
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := docStyle.GetFrameSize()
		m.findingList.SetSize(msg.Width-h, msg.Height-v-6)
		m.fileList.SetSize(msg.Width-h, msg.Height-v-6)
	case updateMsg:
		m.result = msg.result
		m.files = msg.files
		if msg.trend != nil {
			m.trend = msg.trend
		}
		m.lastUpdate = time.Now()
		m.refreshFindings()
		m.refreshFiles()
		return m, nil
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = highStyle.Render(fmt.Sprintf("Open failed (%s): %v", msg.target, msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render("Opened " + msg.target)
		}
		return m, nil
	}

	return m.updateActiveList(msg)
}

func (m model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.mode == panelFiles {
		m.fileList, cmd = m.fileList.Update(msg)
	} else {
		m.findingList, cmd = m.findingList.Update(msg)
	}
	return m, cmd
}

// filtering reports whether the active list is capturing keys for its filter.
func (m model) filtering() bool {
	if m.mode == panelFiles {
		return m.fileList.FilterState() == list.Filtering
	}
	return m.findingList.FilterState() == list.Filtering
}

func (m *model) refreshFindings() {
	items := []list.Item{}
	if m.result != nil {
		for _, f := range m.result.Findings {
			if f.Severity < m.minSeverity {
				continue
			}
			items = append(items, findingItem{finding: f, root: m.result.Metadata.RootDir})
		}
	}
	m.findingList.SetItems(items)
	m.findingList.Title = "Findings"
	if m.minSeverity > findings.SeverityLow {
		m.findingList.Title = fmt.Sprintf("Findings (%s and above)", m.minSeverity)
	}
}

func (m *model) refreshFiles() {
	root := ""
	if m.result != nil {
		root = m.result.Metadata.RootDir
	}
	items := make([]list.Item, 0, len(m.files))
	for _, f := range m.files {
		items = append(items, fileItem{metrics: f, root: root})
	}
	m.fileList.SetItems(items)
}

func (m model) root() string {
	if m.result == nil {
		return ""
	}
	return m.result.Metadata.RootDir
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d dependencies",
		m.lastUpdate.Format("15:04:05"), m.fileCount(), m.dependencyCount()))

	var summary string
	switch {
	case m.result == nil:
		summary = statusStyle.Render("Analyzing...")
	case len(m.result.Findings) == 0:
		summary = successStyle.Render("No issues found")
	default:
		s := m.result.Summary
		summary = fmt.Sprintf("%s | %s | %d auto-fixable",
			highStyle.Render(fmt.Sprintf("%d issues", s.TotalIssues)),
			mediumStyle.Render(fmt.Sprintf("%d critical", s.CriticalIssues)),
			s.AutoFixableIssues)
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Dependency Monitor"), status, summary)
	body := m.findingList.View()
	if m.mode == panelFiles {
		body = m.fileList.View()
		if details := m.impactView(); details != "" {
			body += "\n" + details
		}
	}
	if m.showTrend {
		body += "\n" + m.trendView()
	}
	if m.sourceJumpStatus != "" {
		body += "\n" + m.sourceJumpStatus
	}
	help := statusStyle.Render("tab: switch panel | s: severity | enter: impact | o: open | t: trend | /: filter | q: quit")
	return docStyle.Render(header + "\n" + body + "\n" + help)
}

func (m model) fileCount() int {
	if m.result == nil {
		return 0
	}
	return m.result.Summary.FilesAnalyzed
}

func (m model) dependencyCount() int {
	if m.result == nil {
		return 0
	}
	return m.result.Summary.DependenciesAnalyzed
}

func (m model) impactView() string {
	if m.impactErr != "" {
		return highStyle.Render(m.impactErr)
	}
	if !m.hasImpact {
		return ""
	}
	root := m.root()
	var b strings.Builder
	fmt.Fprintf(&b, "Impact of %s: %d direct, %d transitive, %d in cycle\n",
		displayPath(root, m.impactReport.Target),
		len(m.impactReport.DirectDependents),
		len(m.impactReport.TransitiveDependents),
		len(m.impactReport.CycleWith))
	for i, dep := range m.impactReport.DirectDependents {
		marker := "  "
		if i == m.selectedDepIndex {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", marker, displayPath(root, dep))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) trendView() string {
	if m.trend == nil || len(m.trend.Points) == 0 {
		return statusStyle.Render("No history recorded (run with -history).")
	}
	latest := m.trend.Points[len(m.trend.Points)-1]
	return statusStyle.Render(fmt.Sprintf("Trend: %d snapshots | issues %d (%+d) | cycles %d (%+d) | net %+d",
		m.trend.ScanCount, latest.TotalIssues, latest.DeltaIssues, latest.CycleCount, latest.DeltaCycles, m.trend.NetIssues))
}

func initialModel(impact impactFunc, trend *history.TrendReport) model {
	fl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	fl.Title = "Findings"
	fl.SetShowStatusBar(false)
	fl.SetFilteringEnabled(true)

	files := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	files.Title = "Files by importance"
	files.SetShowStatusBar(false)
	files.SetFilteringEnabled(true)

	return model{
		findingList: fl,
		fileList:    files,
		minSeverity: findings.SeverityLow,
		impact:      impact,
		trend:       trend,
		lastUpdate:  time.Now(),
	}
}

func kindLabel(k findings.Kind) string {
	switch k {
	case findings.KindCircularDependency:
		return "Circular dependency"
	case findings.KindMissingDependency:
		return "Missing dependency"
	case findings.KindVersionConflict:
		return "Version conflict"
	case findings.KindDeprecatedPackage:
		return "Deprecated package"
	case findings.KindUnusedImport:
		return "Unused import"
	case findings.KindDuplicateImport:
		return "Duplicate import"
	}
	return string(k)
}

func findingLocation(root string, f findings.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", displayPath(root, f.File), f.Line)
	}
	return displayPath(root, f.File)
}
