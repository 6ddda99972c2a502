package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depsentry_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depsentry_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depsentry_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depsentry_stage_seconds",
		Help:    "Time spent in each analysis stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depsentry_analysis_seconds",
		Help:    "Wall time of a full analysis run.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depsentry_analysis_runs_total",
		Help: "Total number of analysis runs by outcome.",
	}, []string{"outcome"})

	FindingsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "depsentry_findings",
		Help: "Findings of the most recent analysis by kind.",
	}, []string{"kind"})

	FilesParseFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depsentry_files_parse_failed_total",
		Help: "Total number of files skipped because they could not be read or parsed.",
	})

	FixesAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depsentry_fixes_total",
		Help: "Total number of auto-fix attempts by result.",
	}, []string{"result"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depsentry_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depsentry_watcher_throttled_total",
		Help: "Total number of watch-triggered runs skipped by the rate limiter.",
	})

	HistoryWriteRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depsentry_history_write_retry_total",
		Help: "Total number of history writes retried because the database was locked.",
	})
)
