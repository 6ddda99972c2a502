package graph

import (
	"fmt"
	"strings"

	"depsentry/internal/engine/findings"
)

const cycleSeparator = " → "

// Canonicalize rotates a closed cycle so it starts at its smallest element and
// closes on it again. Input and output are in closed form.
func Canonicalize(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	open := cycle
	if len(cycle) > 1 && cycle[0] == cycle[len(cycle)-1] {
		open = cycle[:len(cycle)-1]
	}

	start := 0
	for i := 1; i < len(open); i++ {
		if open[i] < open[start] {
			start = i
		}
	}

	out := make([]string, 0, len(open)+1)
	out = append(out, open[start:]...)
	out = append(out, open[:start]...)
	out = append(out, out[0])
	return out
}

// CycleKey identifies a cycle independently of where it was entered.
func CycleKey(cycle []string) string {
	return strings.Join(Canonicalize(cycle), cycleSeparator)
}

// DedupCycles canonicalizes each cycle and keeps the first occurrence of every key.
func DedupCycles(cycles [][]string) [][]string {
	seen := make(map[string]bool, len(cycles))
	out := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		canon := Canonicalize(c)
		if len(canon) == 0 {
			continue
		}
		key := strings.Join(canon, cycleSeparator)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, canon)
	}
	return out
}

// CycleSeverity grades a cycle by its distinct-node count and whether a
// package takes part.
func CycleSeverity(length int, hasExternal bool) findings.Severity {
	switch {
	case length > 5:
		return findings.SeverityHigh
	case hasExternal:
		return findings.SeverityHigh
	case length > 3:
		return findings.SeverityMedium
	default:
		return findings.SeverityLow
	}
}

// CycleSuggestion renders the remediation hint for a cycle of display names in closed form.
func CycleSuggestion(names []string) string {
	length := len(names) - 1
	switch {
	case length <= 1:
		name := ""
		if len(names) > 0 {
			name = names[0]
		}
		return fmt.Sprintf("%s imports itself. Remove the self-referencing import.", name)
	case length == 2:
		return fmt.Sprintf("Circular dependency between %s and %s. Consider extracting the shared functionality into a separate module.", names[0], names[1])
	case length == 3:
		return fmt.Sprintf("Circular dependency chain: %s. Consider dependency inversion or extracting a shared interface.", strings.Join(names, cycleSeparator))
	default:
		return fmt.Sprintf("Complex circular dependency (%d modules). Consider an architectural refactor to break the cycle.", length)
	}
}

func cycleFinding(g *DependencyGraph, ids []string) findings.Finding {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g.DisplayName(id)
	}

	files := make([]string, 0, len(ids)-1)
	external := false
	for _, id := range ids[:len(ids)-1] {
		n, ok := g.Nodes[id]
		if !ok {
			continue
		}
		if n.IsExternal {
			external = true
			continue
		}
		files = append(files, n.Path)
	}

	length := len(ids) - 1
	f := findings.Finding{
		Kind:       findings.KindCircularDependency,
		Severity:   CycleSeverity(length, external),
		Message:    "Circular dependency: " + strings.Join(names, cycleSeparator),
		Suggestion: CycleSuggestion(names),
		Cycle: &findings.CyclePayload{
			Cycle:   names,
			NodeIDs: append([]string(nil), ids...),
			Files:   files,
		},
	}
	if len(files) > 0 {
		f.File = files[0]
	}
	if len(ids) > 1 {
		if e, ok := g.EdgeInfo(ids[0], ids[1]); ok {
			f.Line = e.Line
			f.ImportToken = e.Token
		}
	}
	return f
}
