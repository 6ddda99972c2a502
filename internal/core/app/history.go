package app

import (
	"time"

	"depsentry/internal/core/ports"
	"depsentry/internal/data/history"
	"depsentry/internal/engine/findings"
)

// RecordSnapshot persists result with the stats of the graph it came from.
// Call it right after the Analyze that produced result.
func (a *Analyzer) RecordSnapshot(store ports.HistoryStore, projectKey string, result *findings.AnalysisResult) (history.Snapshot, error) {
	snap := history.FromResult(result, a.LastStats())
	if err := store.SaveSnapshot(projectKey, snap); err != nil {
		return history.Snapshot{}, err
	}
	return snap, nil
}

// Trend loads every snapshot since the given time and builds a trend report.
func Trend(store ports.HistoryStore, projectKey string, since time.Time, window time.Duration) (history.TrendReport, error) {
	snaps, err := store.LoadSnapshots(projectKey, since)
	if err != nil {
		return history.TrendReport{}, err
	}
	return history.BuildTrendReport(projectKey, snaps, window)
}
