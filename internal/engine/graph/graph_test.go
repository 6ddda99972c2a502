package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depsentry/internal/engine/parser"
	"depsentry/internal/engine/resolver"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestBuilder_Build(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "src", "a.ts")
	b := filepath.Join(root, "src", "b.ts")
	idx := filepath.Join(root, "src", "lib", "index.ts")
	touch(t, a)
	touch(t, b)
	touch(t, idx)

	imports := []parser.ImportStatement{
		{File: a, Line: 1, Module: "./b"},
		{File: a, Line: 2, Module: "./b"},
		{File: a, Line: 3, Module: "./lib"},
		{File: a, Line: 4, Module: "@scope/pkg/deep"},
		{File: a, Line: 5, Module: "./missing"},
		{File: b, Line: 1, Module: "./a"},
		{File: b, Line: 2, Module: "lodash"},
	}

	g, err := NewBuilder(resolver.New(), true).Build(context.Background(), imports)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.ElementsMatch(t, []string{a, b, idx, "@scope/pkg", "lodash"}, g.IDs())
	assert.Equal(t, []string{b, idx, "@scope/pkg"}, g.Successors(a))
	assert.Equal(t, []string{a}, g.Predecessors(b))
	assert.Equal(t, 5, g.EdgeCount())

	pkg := g.Nodes["@scope/pkg"]
	assert.Equal(t, KindPackage, pkg.Kind)
	assert.True(t, pkg.IsExternal)
	assert.False(t, g.Nodes[a].IsExternal)

	e, ok := g.EdgeInfo(a, b)
	require.True(t, ok)
	assert.Equal(t, 1, e.Line, "first import wins")

	assert.Equal(t, "@scope/pkg", g.DisplayName("@scope/pkg"))
	assert.Equal(t, "index.ts", g.DisplayName(idx))
}

func TestBuilder_SkipsExternalWhenDisabled(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.js")
	touch(t, a)

	g, err := NewBuilder(resolver.New(), false).Build(context.Background(), []parser.ImportStatement{
		{File: a, Line: 1, Module: "react"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, g.IDs())
	assert.Zero(t, g.EdgeCount())
}

func TestBuilder_SelfImport(t *testing.T) {
	root := t.TempDir()
	x := filepath.Join(root, "x.ts")
	touch(t, x)

	g, err := NewBuilder(resolver.New(), true).Build(context.Background(), []parser.ImportStatement{
		{File: x, Line: 1, Module: "./x"},
	})
	require.NoError(t, err)
	assert.True(t, g.HasEdge(x, x))

	cycles := DetectCycles(g, DefaultMaxDepth)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"x.ts", "x.ts"}, cycles[0].Cycle.Cycle)
	assert.Equal(t, []string{x}, cycles[0].Cycle.Files)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder(resolver.New(), true).Build(context.Background(), []parser.ImportStatement{{Module: "./a"}})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBuilder(resolver.New(), true).Build(ctx, []parser.ImportStatement{{File: "/p/a.ts", Module: "./b"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddEdgeRejectsDuplicatesAndUnknownNodes(t *testing.T) {
	g := New()
	g.AddNode("a", KindFile, "a")
	g.AddNode("b", KindFile, "b")

	assert.True(t, g.AddEdge(Edge{From: "a", To: "b"}))
	assert.False(t, g.AddEdge(Edge{From: "a", To: "b"}))
	assert.False(t, g.AddEdge(Edge{From: "a", To: "zzz"}))
	assert.Equal(t, 1, g.EdgeCount())
	assert.Same(t, g.Nodes["a"], g.AddNode("a", KindPackage, "other"))
	require.NoError(t, g.Validate())
}
