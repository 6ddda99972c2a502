package app

import (
	"path/filepath"

	domainErrors "depsentry/internal/core/errors"
	"depsentry/internal/engine/graph"
)

// Impact reports which files depend on target in the most recent run's
// graph. A relative target is taken relative to root.
func (a *Analyzer) Impact(root, target string) (graph.ImpactReport, error) {
	g := a.LastGraph()
	if g == nil {
		return graph.ImpactReport{}, domainErrors.New(domainErrors.CodeNotFound, "no analysis has completed yet")
	}
	target = resolveNode(g, root, target)
	report, err := graph.AnalyzeImpact(g, target)
	if err != nil {
		return graph.ImpactReport{}, domainErrors.AddContext(
			domainErrors.Wrap(err, domainErrors.CodeNotFound, "impact target not in graph"),
			domainErrors.CtxModule, target,
		)
	}
	return report, nil
}

// ImportChain returns the shortest import path from one node to another in
// the most recent run's graph.
func (a *Analyzer) ImportChain(root, from, to string) ([]string, error) {
	g := a.LastGraph()
	if g == nil {
		return nil, domainErrors.New(domainErrors.CodeNotFound, "no analysis has completed yet")
	}
	from = resolveNode(g, root, from)
	to = resolveNode(g, root, to)
	for _, id := range []string{from, to} {
		if _, ok := g.Nodes[id]; !ok {
			return nil, domainErrors.AddContext(
				domainErrors.New(domainErrors.CodeNotFound, "node not in graph"), domainErrors.CtxModule, id)
		}
	}
	chain, ok := graph.ImportChain(g, from, to)
	if !ok {
		return nil, domainErrors.AddContext(
			domainErrors.New(domainErrors.CodeNotFound, "no import chain between nodes"), domainErrors.CtxModule, from+" -> "+to)
	}
	return chain, nil
}

// resolveNode maps a root-relative file path onto its absolute node id.
// Package names and ids already in the graph are returned unchanged.
func resolveNode(g *graph.DependencyGraph, root, target string) string {
	if _, ok := g.Nodes[target]; ok || filepath.IsAbs(target) || root == "" {
		return target
	}
	if abs, err := filepath.Abs(filepath.Join(root, target)); err == nil {
		if _, ok := g.Nodes[abs]; ok {
			return abs
		}
	}
	return target
}
