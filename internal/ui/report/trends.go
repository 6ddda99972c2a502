package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"depsentry/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tTotalIssues\tCycles\tDeltaIssues\tDeltaCycles\tDeltaMissing\tDeltaUnused\tDeltaFiles\tIssueGrowthPct\tInWindow\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%t\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.TotalIssues,
			point.CycleCount,
			point.DeltaIssues,
			point.DeltaCycles,
			point.DeltaMissing,
			point.DeltaUnused,
			point.DeltaFiles,
			point.IssueGrowthPct,
			point.WithinWindowOfLast,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// WriteTrendSummary prints the one-paragraph trend view shown after a run.
func WriteTrendSummary(w io.Writer, report history.TrendReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "History: %d snapshots from %s to %s\n",
		report.ScanCount,
		report.Since.Format("2006-01-02 15:04:05"),
		report.Until.Format("2006-01-02 15:04:05"),
	)
	if len(report.Points) > 0 {
		latest := report.Points[len(report.Points)-1]
		fmt.Fprintf(&b, "Trend latest: issues=%d (%+d), cycles=%d (%+d), net since first=%+d\n",
			latest.TotalIssues,
			latest.DeltaIssues,
			latest.CycleCount,
			latest.DeltaCycles,
			report.NetIssues,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
