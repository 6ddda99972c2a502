package history

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// TrendPoint is one snapshot with deltas against the previous one.
type TrendPoint struct {
	Timestamp          time.Time
	TotalIssues        int
	CycleCount         int
	DeltaIssues        int
	DeltaCycles        int
	DeltaMissing       int
	DeltaUnused        int
	DeltaFiles         int
	IssueGrowthPct     float64
	WithinWindowOfLast bool
}

// ErrNoSnapshots is returned when no snapshot matches a trend query.
var ErrNoSnapshots = errors.New("no snapshots")

type TrendReport struct {
	ProjectKey string
	Since      time.Time
	Until      time.Time
	ScanCount  int
	Points     []TrendPoint
	// NetIssues is the change in total issues between the first and last snapshot.
	NetIssues int
}

// BuildTrendReport orders snapshots by time and computes per-run deltas.
// window marks the points inside the trailing window of the latest run; zero
// disables the marking.
func BuildTrendReport(projectKey string, snapshots []Snapshot, window time.Duration) (TrendReport, error) {
	if len(snapshots) == 0 {
		return TrendReport{}, fmt.Errorf("%w for project %q", ErrNoSnapshots, projectKey)
	}
	ordered := append([]Snapshot(nil), snapshots...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })

	last := ordered[len(ordered)-1].Timestamp
	report := TrendReport{
		ProjectKey: projectKey,
		Since:      ordered[0].Timestamp,
		Until:      last,
		ScanCount:  len(ordered),
		Points:     make([]TrendPoint, 0, len(ordered)),
		NetIssues:  ordered[len(ordered)-1].TotalIssues - ordered[0].TotalIssues,
	}

	for i, s := range ordered {
		p := TrendPoint{
			Timestamp:   s.Timestamp,
			TotalIssues: s.TotalIssues,
			CycleCount:  s.CycleCount,
		}
		if window > 0 {
			p.WithinWindowOfLast = last.Sub(s.Timestamp) <= window
		}
		if i > 0 {
			prev := ordered[i-1]
			p.DeltaIssues = s.TotalIssues - prev.TotalIssues
			p.DeltaCycles = s.CycleCount - prev.CycleCount
			p.DeltaMissing = s.MissingCount - prev.MissingCount
			p.DeltaUnused = s.UnusedCount - prev.UnusedCount
			p.DeltaFiles = s.FileCount - prev.FileCount
			if prev.TotalIssues > 0 {
				p.IssueGrowthPct = float64(p.DeltaIssues) / float64(prev.TotalIssues) * 100
			}
		}
		report.Points = append(report.Points, p)
	}
	return report, nil
}
