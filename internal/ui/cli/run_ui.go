package cli

import (
	"context"
	"errors"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/graph"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, r *runner, cfgPath string) error {
	root := r.config().Analysis.RootDir
	m := initialModel(func(target string) (graph.ImpactReport, error) {
		return r.analyzer.Impact(root, target)
	}, r.trend)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	sendUpdate := func(result *findings.AnalysisResult) {
		var files []graph.NodeMetrics
		if g := r.analyzer.LastGraph(); g != nil {
			files = graph.TopImportant(g, g.NodeCount())
		}
		p.Send(updateMsg{result: result, files: files, trend: r.currentTrend()})
	}
	r.onResult = sendUpdate

	stopWatching, err := startWatching(ctx, r, cfgPath)
	if err != nil {
		return err
	}
	defer stopWatching()

	go func() {
		if result := r.lastResult(); result != nil {
			sendUpdate(result)
		}
	}()

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
