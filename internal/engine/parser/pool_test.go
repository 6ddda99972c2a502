// # internal/engine/parser/pool_test.go
package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

func jsLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_javascript.Language())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(jsLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Active() != 1 {
		t.Errorf("expected 1 active parser, got %d", pool.Active())
	}
	pool.Put(sp)
	if pool.Active() != 0 {
		t.Errorf("expected 0 active parsers, got %d", pool.Active())
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(jsLanguage())
	pool.Put(nil)
	if pool.Active() != 0 {
		t.Errorf("Put(nil) changed the lease count to %d", pool.Active())
	}
}

func TestParserPool_ParsesAfterReuse(t *testing.T) {
	pool := NewParserPool(jsLanguage())
	for i := 0; i < 3; i++ {
		sp := pool.Get()
		tree := sp.Parse([]byte("import a from 'a'"), nil)
		if tree == nil {
			t.Fatal("expected a tree")
		}
		if tree.RootNode().HasError() {
			t.Error("unexpected parse error")
		}
		tree.Close()
		pool.Put(sp)
	}
}

func TestParserPool_Concurrent(t *testing.T) {
	pool := NewParserPool(jsLanguage())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp := pool.Get()
			defer pool.Put(sp)
			tree := sp.Parse([]byte("const x = require('x')"), nil)
			if tree != nil {
				tree.Close()
			}
		}()
	}
	wg.Wait()
	if pool.Active() != 0 {
		t.Errorf("expected all parsers returned, %d still leased", pool.Active())
	}
}
