package graph

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"depsentry/internal/engine/parser"
	"depsentry/internal/engine/resolver"
)

// PathResolver resolves a relative import token to an existing file.
type PathResolver interface {
	Resolve(fromFile, token string) (string, bool)
}

type Builder struct {
	resolver        PathResolver
	includeExternal bool
}

func NewBuilder(r PathResolver, includeExternal bool) *Builder {
	return &Builder{resolver: r, includeExternal: includeExternal}
}

// Build turns parsed import statements into a dependency graph. Imports that
// do not resolve are skipped; only a cancelled context or a statement without
// a source file aborts the build.
func (b *Builder) Build(ctx context.Context, imports []parser.ImportStatement) (*DependencyGraph, error) {
	byFile := make(map[string][]parser.ImportStatement)
	for i, imp := range imports {
		if imp.File == "" {
			return nil, fmt.Errorf("import statement %d (%q) has no source file", i, imp.Module)
		}
		file := filepath.Clean(imp.File)
		byFile[file] = append(byFile[file], imp)
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	g := New()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.AddNode(file, KindFile, file)

		for _, imp := range byFile[file] {
			if resolver.IsExternal(imp.Module) {
				if !b.includeExternal {
					continue
				}
				name := resolver.PackageName(imp.Module)
				if name == "" {
					continue
				}
				g.AddNode(name, KindPackage, name)
				g.AddEdge(Edge{From: file, To: name, Token: imp.Module, Line: imp.Line})
				continue
			}

			target, ok := b.resolver.Resolve(file, imp.Module)
			if !ok {
				slog.Debug("unresolved import", "path", file, "module", imp.Module, "line", imp.Line)
				continue
			}
			target = filepath.Clean(target)
			g.AddNode(target, KindFile, target)
			g.AddEdge(Edge{From: file, To: target, Token: imp.Module, Line: imp.Line})
		}
	}

	return g, nil
}
