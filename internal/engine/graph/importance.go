package graph

// internal/engine/graph/importance.go

import "sort"

// NodeMetrics is the fan-in/fan-out view of one node.
type NodeMetrics struct {
	ID    string
	Kind  NodeKind
	FanIn int
	// FanOut counts dependencies on files and packages alike.
	FanOut int
	Score  float64
}

// Stats summarizes the shape of a graph.
type Stats struct {
	Nodes     int
	Edges     int
	Files     int
	Packages  int
	MaxFanIn  int
	MaxFanOut int
}

// CalculateImportanceScore ranks how central a node is:
//
//	Score = (FanIn * 2) + (FanOut * 1)
func CalculateImportanceScore(fanIn, fanOut int) float64 {
	return float64(fanIn*2) + float64(fanOut)
}

func ComputeStats(g *DependencyGraph) Stats {
	s := Stats{Nodes: g.NodeCount(), Edges: g.EdgeCount()}
	for _, n := range g.Nodes {
		if n.Kind == KindPackage {
			s.Packages++
		} else {
			s.Files++
		}
		s.MaxFanIn = max(s.MaxFanIn, len(n.Dependents))
		s.MaxFanOut = max(s.MaxFanOut, len(n.Dependencies))
	}
	return s
}

// TopImportant returns up to n file nodes ordered by score, then id.
func TopImportant(g *DependencyGraph, n int) []NodeMetrics {
	if n <= 0 {
		return nil
	}
	out := make([]NodeMetrics, 0, len(g.Nodes))
	for id, node := range g.Nodes {
		if node.Kind != KindFile {
			continue
		}
		fanIn, fanOut := len(node.Dependents), len(node.Dependencies)
		out = append(out, NodeMetrics{
			ID:     id,
			Kind:   node.Kind,
			FanIn:  fanIn,
			FanOut: fanOut,
			Score:  CalculateImportanceScore(fanIn, fanOut),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
