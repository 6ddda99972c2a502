package formats

import (
	"fmt"
	"sort"
	"strings"

	"depsentry/internal/engine/findings"
)

// CycleDiagram renders every reported cycle as a Mermaid flowchart. Edges
// shared by several cycles are drawn once. It returns "" when there are no
// cycles.
func CycleDiagram(result *findings.AnalysisResult) string {
	type edge struct{ from, to string }
	edges := make(map[edge]bool)
	names := make([]string, 0)
	seen := make(map[string]bool)

	for _, f := range result.Findings {
		if f.Cycle == nil || len(f.Cycle.Cycle) < 2 {
			continue
		}
		c := f.Cycle.Cycle
		for i := 0; i < len(c)-1; i++ {
			edges[edge{c[i], c[i+1]}] = true
			for _, n := range c[i : i+2] {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
	}
	if len(edges) == 0 {
		return ""
	}

	sort.Strings(names)
	ids := makeIDs(names)

	ordered := make([]edge, 0, len(edges))
	for e := range edges {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].from != ordered[j].from {
			return ordered[i].from < ordered[j].from
		}
		return ordered[i].to < ordered[j].to
	})

	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[n], escapeLabel(n))
	}
	for _, e := range ordered {
		fmt.Fprintf(&b, "  %s --> %s\n", ids[e.from], ids[e.to])
	}
	b.WriteString("  classDef cycle stroke:#ef4444,stroke-width:2px\n")
	fmt.Fprintf(&b, "  class %s cycle\n", joinIDs(names, ids))
	return b.String()
}

func joinIDs(names []string, ids map[string]string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ids[n]
	}
	return strings.Join(out, ",")
}
