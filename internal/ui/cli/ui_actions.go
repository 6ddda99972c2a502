package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"depsentry/internal/engine/findings"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelFindings {
			m.mode = panelFiles
		} else {
			m.mode = panelFindings
		}
		return m, nil
	case "t":
		m.showTrend = !m.showTrend
		return m, nil
	}

	if m.mode == panelFindings {
		switch msg.String() {
		case "s":
			m.minSeverity = nextSeverity(m.minSeverity)
			m.refreshFindings()
			return m, nil
		case "o":
			target, ok := selectedFindingTarget(m)
			if !ok {
				m.sourceJumpStatus = statusStyle.Render("No source target available.")
				return m, nil
			}
			return m, jumpToSourceCmd(target)
		}
		return m.updateActiveList(msg)
	}

	switch msg.String() {
	case "enter":
		return refreshImpact(m), nil
	case "esc", "backspace":
		m.hasImpact = false
		m.impactErr = ""
		m.selectedDepIndex = 0
		return m, nil
	case "j":
		if m.hasImpact && len(m.impactReport.DirectDependents) > 0 {
			if m.selectedDepIndex < len(m.impactReport.DirectDependents)-1 {
				m.selectedDepIndex++
			}
			return m, nil
		}
	case "k":
		if m.hasImpact && len(m.impactReport.DirectDependents) > 0 {
			if m.selectedDepIndex > 0 {
				m.selectedDepIndex--
			}
			return m, nil
		}
	case "o":
		target, ok := selectedFileTarget(m)
		if !ok {
			m.sourceJumpStatus = statusStyle.Render("No source target available.")
			return m, nil
		}
		return m, jumpToSourceCmd(target)
	}

	return m.updateActiveList(msg)
}

// nextSeverity cycles the findings filter low -> medium -> high -> low.
func nextSeverity(s findings.Severity) findings.Severity {
	if s >= findings.SeverityHigh {
		return findings.SeverityLow
	}
	return s + 1
}

func refreshImpact(m model) model {
	if m.impact == nil || len(m.fileList.Items()) == 0 {
		return m
	}
	selected, ok := m.fileList.SelectedItem().(fileItem)
	if !ok {
		return m
	}
	report, err := m.impact(selected.metrics.ID)
	if err != nil {
		m.impactErr = err.Error()
		m.hasImpact = false
		return m
	}
	m.impactReport = report
	m.impactErr = ""
	m.hasImpact = true
	m.selectedDepIndex = 0
	return m
}

type sourceTarget struct {
	file string
	line int
}

func selectedFindingTarget(m model) (sourceTarget, bool) {
	selected, ok := m.findingList.SelectedItem().(findingItem)
	if !ok || selected.finding.File == "" {
		return sourceTarget{}, false
	}
	line := selected.finding.Line
	if line <= 0 {
		line = 1
	}
	return sourceTarget{file: selected.finding.File, line: line}, true
}

func selectedFileTarget(m model) (sourceTarget, bool) {
	if m.hasImpact && len(m.impactReport.DirectDependents) > 0 {
		idx := m.selectedDepIndex
		if idx < 0 {
			idx = 0
		}
		if idx >= len(m.impactReport.DirectDependents) {
			idx = len(m.impactReport.DirectDependents) - 1
		}
		return sourceTarget{file: m.impactReport.DirectDependents[idx], line: 1}, true
	}
	selected, ok := m.fileList.SelectedItem().(fileItem)
	if !ok {
		return sourceTarget{}, false
	}
	return sourceTarget{file: selected.metrics.ID, line: 1}, true
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.HasSuffix(editor, "/vi") || editor == "vi" {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}
