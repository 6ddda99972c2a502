package graph

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

var ErrImpactTargetNotFound = errors.New("impact target not found")

// ImpactReport lists the nodes that would be affected by changing Target.
type ImpactReport struct {
	Target               string
	DirectDependents     []string
	TransitiveDependents []string
	// CycleWith holds dependents that the target also depends on, directly or not.
	CycleWith []string
}

type ImpactTargetError struct {
	Target string
}

func (e *ImpactTargetError) Error() string {
	return fmt.Sprintf("%v: %s", ErrImpactTargetNotFound, e.Target)
}

func (e *ImpactTargetError) Unwrap() error {
	return ErrImpactTargetNotFound
}

// AnalyzeImpact walks reverse edges from target. target is a node id; file
// paths are cleaned before lookup.
func AnalyzeImpact(g *DependencyGraph, target string) (ImpactReport, error) {
	id := target
	if _, ok := g.Nodes[id]; !ok {
		id = filepath.Clean(target)
	}
	if _, ok := g.Nodes[id]; !ok {
		return ImpactReport{}, &ImpactTargetError{Target: target}
	}

	report := ImpactReport{Target: id}
	direct := g.Predecessors(id)
	report.DirectDependents = direct

	directSet := make(map[string]bool, len(direct))
	for _, d := range direct {
		directSet[d] = true
	}

	queue := append([]string(nil), direct...)
	seen := map[string]bool{id: true}
	for _, d := range queue {
		seen[d] = true
	}

	transitive := make([]string, 0)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range g.Predecessors(curr) {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			if !directSet[next] {
				transitive = append(transitive, next)
			}
		}
	}
	sort.Strings(transitive)
	report.TransitiveDependents = transitive

	reach := reachable(g, id)
	cycleWith := make([]string, 0)
	for node := range seen {
		if node != id && reach[node] {
			cycleWith = append(cycleWith, node)
		}
	}
	sort.Strings(cycleWith)
	report.CycleWith = cycleWith

	return report, nil
}

// ImportChain returns the shortest dependency path from -> to, visiting
// successors in sorted order.
func ImportChain(g *DependencyGraph, from, to string) ([]string, bool) {
	if _, ok := g.Nodes[from]; !ok {
		return nil, false
	}
	if _, ok := g.Nodes[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.Successors(curr) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func reachable(g *DependencyGraph, from string) map[string]bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.Successors(curr) {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return seen
}
