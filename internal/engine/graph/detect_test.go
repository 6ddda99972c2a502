package graph

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"depsentry/internal/engine/findings"
)

// fromEdges builds a graph of file nodes named after their ids.
func fromEdges(edges ...string) *DependencyGraph {
	g := New()
	for _, e := range edges {
		parts := strings.Split(e, "->")
		from, to := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		g.AddNode(from, KindFile, from)
		g.AddNode(to, KindFile, to)
		g.AddEdge(Edge{From: from, To: to, Token: "./" + to, Line: 1})
	}
	return g
}

func cycleKeys(list []findings.Finding) []string {
	keys := make([]string, 0, len(list))
	for _, f := range list {
		keys = append(keys, strings.Join(f.Cycle.NodeIDs, ","))
	}
	return keys
}

func TestDetectCycles_TwoNodes(t *testing.T) {
	g := fromEdges("A->B", "B->A")

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B", "A"}, got[0].Cycle.Cycle)
	assert.Equal(t, findings.SeverityLow, got[0].Severity)
	assert.Equal(t, findings.KindCircularDependency, got[0].Kind)
	assert.Contains(t, got[0].Suggestion, "between A and B")
	assert.False(t, got[0].AutoFixable)
	assert.NoError(t, got[0].Validate())
}

func TestDetectCycles_ExternalParticipantIsHigh(t *testing.T) {
	g := fromEdges("A->B", "B->C", "C->A")
	g.Nodes["C"].IsExternal = true

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, got[0].Cycle.Cycle)
	assert.Equal(t, findings.SeverityHigh, got[0].Severity)
	assert.Equal(t, []string{"A", "B"}, got[0].Cycle.Files)
}

func TestDetectCycles_SixNodesIsHigh(t *testing.T) {
	g := fromEdges("A->B", "B->C", "C->D", "D->E", "E->F", "F->A")

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Cycle.Length())
	assert.Equal(t, findings.SeverityHigh, got[0].Severity)
	assert.Contains(t, got[0].Suggestion, "6 modules")
}

func TestDetectCycles_FourNodesIsMedium(t *testing.T) {
	g := fromEdges("A->B", "B->C", "C->D", "D->A")

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, got, 1)
	assert.Equal(t, findings.SeverityMedium, got[0].Severity)
}

func TestDetectCycles_EmptyGraph(t *testing.T) {
	got := DetectCycles(New(), DefaultMaxDepth)
	assert.Empty(t, got)
	assert.Empty(t, StronglyConnectedComponents(New()))
}

func TestDetectCycles_DisconnectedCycles(t *testing.T) {
	g := fromEdges("A->B", "B->A", "C->D", "D->C")

	got := DetectCycles(g, DefaultMaxDepth)

	assert.Equal(t, []string{"A,B,A", "C,D,C"}, cycleKeys(got))
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	g := fromEdges("/p/x.ts->/p/x.ts", "/p/x.ts->/p/y.ts")

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"x.ts", "x.ts"}, got[0].Cycle.Cycle)
	assert.Equal(t, 1, got[0].Cycle.Length())
	assert.Equal(t, findings.SeverityLow, got[0].Severity)
	assert.Contains(t, got[0].Suggestion, "imports itself")
	assert.Equal(t, [][]string{{"/p/x.ts"}}, StronglyConnectedComponents(g))
}

func TestDetectCycles_ThreeNodeSuggestion(t *testing.T) {
	g := fromEdges("/p/a.ts->/p/b.ts", "/p/b.ts->/p/c.ts", "/p/c.ts->/p/a.ts")

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, got, 1)
	assert.Equal(t, "Circular dependency chain: a.ts → b.ts → c.ts → a.ts. Consider dependency inversion or extracting a shared interface.", got[0].Suggestion)
	assert.Equal(t, "/p/a.ts", got[0].File)
	assert.Equal(t, "./"+"/p/b.ts", got[0].ImportToken)
}

func TestDetectCycles_ExploredNodesAreNotReentered(t *testing.T) {
	// A->C->B->A would need B again after A->B->A finished exploring it.
	g := fromEdges("A->B", "B->A", "A->C", "C->B")

	got := DetectCycles(g, DefaultMaxDepth)

	assert.Equal(t, []string{"A,B,A"}, cycleKeys(got))
	assert.Equal(t, [][]string{{"A", "B", "C"}}, StronglyConnectedComponents(g))
}

func TestDetectCycles_DepthBound(t *testing.T) {
	g := fromEdges("A->B", "B->C", "C->D", "D->A", "A->X", "X->A")

	shallow := DetectCycles(g, 3)
	assert.Equal(t, []string{"A,X,A"}, cycleKeys(shallow))

	deep := DetectCycles(g, 4)
	assert.Equal(t, []string{"A,B,C,D,A", "A,X,A"}, cycleKeys(deep))

	for depth := 1; depth <= 6; depth++ {
		for _, c := range EnumerateCycles(g, depth) {
			assert.LessOrEqual(t, len(c), depth+1, "depth %d produced %v", depth, c)
		}
	}
}

func TestDetectCycles_Deterministic(t *testing.T) {
	g := denseGraph(7)
	first := DetectCycles(g, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, DetectCycles(g, 5))
	}
}

func TestCycleClosureInvariant(t *testing.T) {
	g := denseGraph(6)
	for _, f := range DetectCycles(g, DefaultMaxDepth) {
		ids := f.Cycle.NodeIDs
		require.GreaterOrEqual(t, len(ids), 2)
		assert.Equal(t, ids[0], ids[len(ids)-1])
		assert.Equal(t, f.Cycle.Cycle[0], f.Cycle.Cycle[len(f.Cycle.Cycle)-1])
		for i := 0; i+1 < len(ids); i++ {
			assert.True(t, g.HasEdge(ids[i], ids[i+1]), "missing edge %s->%s", ids[i], ids[i+1])
		}
	}
}

func TestEnumerateCycles_AtMostOneCyclePerEdge(t *testing.T) {
	graphs := map[string]*DependencyGraph{
		"dense":    denseGraph(5),
		"overlap":  fromEdges("A->B", "B->A", "A->C", "C->B"),
		"figure8":  fromEdges("A->B", "B->C", "C->A", "C->D", "D->E", "E->C"),
		"selfloop": fromEdges("A->A", "A->B", "B->A"),
	}
	for name, g := range graphs {
		for _, depth := range []int{2, 3, 10} {
			t.Run(fmt.Sprintf("%s/depth=%d", name, depth), func(t *testing.T) {
				raw := EnumerateCycles(g, depth)
				assert.LessOrEqual(t, len(raw), edgeCount(g))
				assert.Len(t, DedupCycles(raw), len(raw), "a cycle was reported twice: %v", raw)
			})
		}
	}
}

func TestDetectCycles_CompleteGraphStaysLinear(t *testing.T) {
	g := denseGraph(20)

	start := time.Now()
	got := DetectCycles(g, DefaultMaxDepth)
	elapsed := time.Since(start)

	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), edgeCount(g))
	assert.Less(t, elapsed, time.Second)
	for _, f := range got {
		assert.LessOrEqual(t, f.Cycle.Length(), DefaultMaxDepth)
	}
}

func TestDetectCycles_SparseComponentFindingCount(t *testing.T) {
	// 40 files, each importing three others, all in one component.
	edges := make([]string, 0, 120)
	for i := 0; i < 40; i++ {
		for _, step := range []int{1, 7, 13} {
			edges = append(edges, fmt.Sprintf("f%02d->f%02d", i, (i+step)%40))
		}
	}
	g := fromEdges(edges...)

	got := DetectCycles(g, DefaultMaxDepth)

	require.Len(t, StronglyConnectedComponents(g), 1)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), len(edges))
}

func TestCyclesAreWithinTarjanComponents(t *testing.T) {
	g := fromEdges("A->B", "B->C", "C->A", "C->D", "D->E", "E->D", "E->F", "F->F")
	sccs := StronglyConnectedComponents(g)

	for _, f := range DetectCycles(g, DefaultMaxDepth) {
		nodes := f.Cycle.NodeIDs[:len(f.Cycle.NodeIDs)-1]
		assert.True(t, containedInSome(nodes, sccs), "cycle %v not inside any component %v", nodes, sccs)
	}
}

func TestStronglyConnectedComponentsMatchesGonum(t *testing.T) {
	g := fromEdges("A->B", "B->C", "C->A", "C->D", "D->E", "E->D", "E->F", "G->H", "H->I", "I->G", "I->A")

	assert.Equal(t, gonumComponents(g), StronglyConnectedComponents(g))
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C", "A"}, Canonicalize([]string{"B", "C", "A", "B"}))
	assert.Equal(t, []string{"A", "B", "C", "A"}, Canonicalize([]string{"C", "A", "B", "C"}))
	assert.Equal(t, []string{"A", "A"}, Canonicalize([]string{"A", "A"}))
	assert.Nil(t, Canonicalize(nil))
	assert.Equal(t, CycleKey([]string{"B", "A", "B"}), CycleKey([]string{"A", "B", "A"}))
	assert.NotEqual(t, CycleKey([]string{"A", "B", "C", "A"}), CycleKey([]string{"A", "C", "B", "A"}))
}

func TestDedupCycles_KeepsFirstSeen(t *testing.T) {
	got := DedupCycles([][]string{{"B", "A", "B"}, {"A", "B", "A"}, {"C", "D", "C"}})
	assert.Equal(t, [][]string{{"A", "B", "A"}, {"C", "D", "C"}}, got)
}

func TestCycleSeverity(t *testing.T) {
	assert.Equal(t, findings.SeverityLow, CycleSeverity(1, false))
	assert.Equal(t, findings.SeverityLow, CycleSeverity(3, false))
	assert.Equal(t, findings.SeverityMedium, CycleSeverity(4, false))
	assert.Equal(t, findings.SeverityMedium, CycleSeverity(5, false))
	assert.Equal(t, findings.SeverityHigh, CycleSeverity(6, false))
	assert.Equal(t, findings.SeverityHigh, CycleSeverity(2, true))
}

func denseGraph(n int) *DependencyGraph {
	edges := make([]string, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				edges = append(edges, fmt.Sprintf("n%d->n%d", i, j))
			}
		}
	}
	return fromEdges(edges...)
}

func edgeCount(g *DependencyGraph) int {
	n := 0
	for _, id := range g.IDs() {
		n += len(g.Successors(id))
	}
	return n
}

func containedInSome(nodes []string, components [][]string) bool {
	for _, comp := range components {
		set := make(map[string]bool, len(comp))
		for _, id := range comp {
			set[id] = true
		}
		all := true
		for _, id := range nodes {
			if !set[id] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// gonumComponents computes the same component view with gonum's Tarjan.
// Self-edges are not representable in simple.DirectedGraph and are left out.
func gonumComponents(g *DependencyGraph) [][]string {
	ids := g.IDs()
	index := make(map[string]int64, len(ids))
	dg := simple.NewDirectedGraph()
	for i, id := range ids {
		index[id] = int64(i)
		dg.AddNode(simple.Node(i))
	}
	for _, from := range ids {
		for _, to := range g.Successors(from) {
			if from == to {
				continue
			}
			dg.SetEdge(dg.NewEdge(simple.Node(index[from]), simple.Node(index[to])))
		}
	}

	out := make([][]string, 0)
	for _, comp := range topo.TarjanSCC(dg) {
		if len(comp) < 2 {
			continue
		}
		out = append(out, nodeNames(comp, ids))
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func nodeNames(comp []gonumgraph.Node, ids []string) []string {
	names := make([]string, 0, len(comp))
	for _, n := range comp {
		names = append(names, ids[n.ID()])
	}
	sort.Strings(names)
	return names
}
