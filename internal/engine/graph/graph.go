// # internal/engine/graph/graph.go
package graph

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

type NodeKind string

const (
	KindFile    NodeKind = "file"
	KindPackage NodeKind = "package"
)

type Node struct {
	ID           string
	Kind         NodeKind
	Path         string
	IsExternal   bool
	Dependencies map[string]struct{}
	Dependents   map[string]struct{}
}

// Edge records where an import edge came from. The first occurrence wins.
type Edge struct {
	From  string
	To    string
	Token string
	Line  int
}

// DependencyGraph is built once per analysis run and read-only afterwards.
// Edges[id] is the same set as Nodes[id].Dependencies.
type DependencyGraph struct {
	Nodes map[string]*Node
	Edges map[string]map[string]struct{}

	meta map[string]map[string]Edge
}

func New() *DependencyGraph {
	return &DependencyGraph{
		Nodes: make(map[string]*Node),
		Edges: make(map[string]map[string]struct{}),
		meta:  make(map[string]map[string]Edge),
	}
}

// AddNode returns the node for id, creating it on first reference.
func (g *DependencyGraph) AddNode(id string, kind NodeKind, p string) *Node {
	if n, ok := g.Nodes[id]; ok {
		return n
	}
	n := &Node{
		ID:           id,
		Kind:         kind,
		Path:         p,
		IsExternal:   kind == KindPackage,
		Dependencies: make(map[string]struct{}),
		Dependents:   make(map[string]struct{}),
	}
	g.Nodes[id] = n
	g.Edges[id] = n.Dependencies
	return n
}

// AddEdge links two existing nodes. It reports false for unknown endpoints or
// an edge that is already present.
func (g *DependencyGraph) AddEdge(e Edge) bool {
	from, ok := g.Nodes[e.From]
	if !ok {
		return false
	}
	to, ok := g.Nodes[e.To]
	if !ok {
		return false
	}
	if _, dup := from.Dependencies[e.To]; dup {
		return false
	}
	from.Dependencies[e.To] = struct{}{}
	to.Dependents[e.From] = struct{}{}
	if g.meta[e.From] == nil {
		g.meta[e.From] = make(map[string]Edge)
	}
	g.meta[e.From][e.To] = e
	return true
}

func (g *DependencyGraph) HasEdge(from, to string) bool {
	_, ok := g.Edges[from][to]
	return ok
}

// EdgeInfo returns the import that created from->to.
func (g *DependencyGraph) EdgeInfo(from, to string) (Edge, bool) {
	e, ok := g.meta[from][to]
	return e, ok
}

func (g *DependencyGraph) NodeCount() int {
	return len(g.Nodes)
}

func (g *DependencyGraph) EdgeCount() int {
	total := 0
	for _, succ := range g.Edges {
		total += len(succ)
	}
	return total
}

// IDs returns every node id in sorted order.
func (g *DependencyGraph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Successors returns the direct dependencies of id in sorted order.
func (g *DependencyGraph) Successors(id string) []string {
	return sortedKeys(g.Edges[id])
}

// Predecessors returns the direct dependents of id in sorted order.
func (g *DependencyGraph) Predecessors(id string) []string {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	return sortedKeys(n.Dependents)
}

// Validate checks the structural invariants: every edge endpoint is a node and
// dependents mirror dependencies.
func (g *DependencyGraph) Validate() error {
	for from, succ := range g.Edges {
		n, ok := g.Nodes[from]
		if !ok {
			return fmt.Errorf("edge source %q has no node", from)
		}
		if len(n.Dependencies) != len(succ) {
			return fmt.Errorf("node %q dependencies out of sync with edges", from)
		}
		for to := range succ {
			target, ok := g.Nodes[to]
			if !ok {
				return fmt.Errorf("edge target %q has no node", to)
			}
			if _, ok := target.Dependents[from]; !ok {
				return fmt.Errorf("node %q is missing dependent %q", to, from)
			}
		}
	}
	return nil
}

// DisplayName is the short label used in cycle listings: the base name for
// files, the full name for packages.
func (g *DependencyGraph) DisplayName(id string) string {
	n, ok := g.Nodes[id]
	if !ok {
		return lastSegment(id)
	}
	if n.Kind == KindPackage {
		return n.Path
	}
	return lastSegment(n.Path)
}

func lastSegment(p string) string {
	p = strings.TrimRight(filepath.ToSlash(p), "/")
	if p == "" {
		return p
	}
	return path.Base(p)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
