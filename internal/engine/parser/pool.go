// # internal/engine/parser/pool.go
package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserPool recycles tree-sitter parsers for one grammar. tree-sitter parsers
// are not goroutine safe, so every parse leases its own instance.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
type ParserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leased atomic.Int64
}

func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

// Get returns a parser configured for the pool's grammar.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	sp.SetLanguage(p.lang)
	p.leased.Add(1)
	return sp
}

// Put resets sp and returns it to the pool. Callers must not use sp afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

// Active is the number of parsers currently leased.
func (p *ParserPool) Active() int {
	return int(p.leased.Load())
}

// poolSet holds one ParserPool per grammar.
type poolSet struct {
	pools map[Language]*ParserPool
}

func newPoolSet(loader *GrammarLoader) *poolSet {
	ps := &poolSet{pools: make(map[Language]*ParserPool, len(loader.languages))}
	for lang, grammar := range loader.languages {
		ps.pools[lang] = NewParserPool(grammar)
	}
	return ps
}

func (ps *poolSet) get(lang Language) (*ParserPool, bool) {
	p, ok := ps.pools[lang]
	return p, ok
}
