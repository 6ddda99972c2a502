package app

import (
	"context"
	"fmt"
	"time"

	"depsentry/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	analyzer *Analyzer
	history  bool
}

// NewHealthService reports on analyzer; historyEnabled marks the snapshot
// store as an expected component.
func NewHealthService(analyzer *Analyzer, historyEnabled bool) *HealthService {
	return &HealthService{analyzer: analyzer, history: historyEnabled}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	if err := ctx.Err(); err != nil {
		status.Status = "down"
		status.Components["context"] = err.Error()
		return status
	}

	if s.analyzer == nil || s.analyzer.parser == nil {
		status.Status = "degraded"
		status.Components["parser"] = "missing"
	} else {
		status.Components["parser"] = "ok"
	}

	if s.analyzer != nil {
		if g := s.analyzer.LastGraph(); g != nil {
			status.Components["graph"] = fmt.Sprintf("ok (%d nodes, %d edges)", g.NodeCount(), g.EdgeCount())
		} else {
			status.Components["graph"] = "no analysis yet"
		}
	}

	if s.history {
		status.Components["history"] = "enabled"
	}
	status.Components["memory"] = util.ReadMemoryStats().String()
	return status
}
