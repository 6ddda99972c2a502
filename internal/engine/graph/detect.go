// # internal/engine/graph/detect.go
package graph

import (
	"depsentry/internal/engine/findings"
)

// DefaultMaxDepth bounds the DFS path length when callers pass a non-positive depth.
const DefaultMaxDepth = 10

// cycleWalk owns the traversal state of one enumeration. It must not be shared
// between goroutines.
type cycleWalk struct {
	adj      map[string][]string
	maxDepth int

	// visited is shared by every walk. A node is entered at most once, so each
	// edge closes at most one cycle.
	visited map[string]bool
	onStack map[string]bool
	path    []string

	cycles [][]string
}

func newCycleWalk(g *DependencyGraph, maxDepth int) *cycleWalk {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	ids := g.IDs()
	adj := make(map[string][]string, len(ids))
	for _, id := range ids {
		adj[id] = g.Successors(id)
	}
	return &cycleWalk{
		adj:      adj,
		maxDepth: maxDepth,
		visited:  make(map[string]bool, len(ids)),
		onStack:  make(map[string]bool),
	}
}

// visit stops without marking id when the path is already maxDepth long, so
// a later walk that reaches id on a shorter path can still explore it.
func (w *cycleWalk) visit(id string) {
	if len(w.path) >= w.maxDepth {
		return
	}
	w.visited[id] = true
	w.onStack[id] = true
	w.path = append(w.path, id)

	for _, next := range w.adj[id] {
		switch {
		case w.onStack[next]:
			w.record(next)
		case !w.visited[next]:
			w.visit(next)
		}
	}

	w.path = w.path[:len(w.path)-1]
	w.onStack[id] = false
}

// record slices the active path from the repeated node and closes the loop.
func (w *cycleWalk) record(closing string) {
	for i := len(w.path) - 1; i >= 0; i-- {
		if w.path[i] != closing {
			continue
		}
		cycle := make([]string, 0, len(w.path)-i+1)
		cycle = append(cycle, w.path[i:]...)
		cycle = append(cycle, closing)
		w.cycles = append(w.cycles, cycle)
		return
	}
}

// EnumerateCycles returns the cycles closed by back edges of a depth-first
// scan, in closed form (first element repeated at the end). Every node is
// explored at most once, so the result holds at most one cycle per edge and
// overlapping cycles that share an already explored node are not reported.
// Cycles longer than maxDepth nodes are not reported either. Node ids and
// successors are walked in sorted order, so the output is deterministic.
func EnumerateCycles(g *DependencyGraph, maxDepth int) [][]string {
	w := newCycleWalk(g, maxDepth)
	for _, id := range g.IDs() {
		if !w.visited[id] {
			w.visit(id)
		}
	}
	return w.cycles
}

// DetectCycles enumerates, normalizes and deduplicates cycles and turns each
// unique cycle into a circular-dependency finding.
func DetectCycles(g *DependencyGraph, maxDepth int) []findings.Finding {
	unique := DedupCycles(EnumerateCycles(g, maxDepth))
	out := make([]findings.Finding, 0, len(unique))
	for _, cycle := range unique {
		out = append(out, cycleFinding(g, cycle))
	}
	return out
}
