// # internal/engine/parser/parser.go
package parser

import (
	"bytes"
	"fmt"
	"time"

	"depsentry/internal/core/errors"
	"depsentry/internal/shared/observability"
)

const generatedBannerLines = 5

// Parser extracts import statements from JavaScript and TypeScript sources.
// It is safe for concurrent use.
type Parser struct {
	loader *GrammarLoader
	pools  *poolSet
	engine *ExtractorEngine
}

func NewParser(loader *GrammarLoader) *Parser {
	return &Parser{
		loader: loader,
		pools:  newPoolSet(loader),
		engine: NewExtractorEngine(javaScriptHandlers()),
	}
}

// ParseFile returns the import statements of one file in source order.
func (p *Parser) ParseFile(path string, content []byte) ([]ImportStatement, error) {
	file, err := p.Parse(path, content)
	if err != nil {
		return nil, err
	}
	return file.Imports, nil
}

func (p *Parser) Parse(path string, content []byte) (*File, error) {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	pool, ok := p.pools.get(lang)
	if !ok {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(string(lang)).Observe(time.Since(start).Seconds())
	}()

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	ctx := &ExtractionContext{Source: content, Path: path, Imports: make([]ImportStatement, 0)}
	p.engine.Walk(ctx, tree.RootNode())

	return &File{
		Path:     path,
		Language: lang,
		Content:  content,
		Imports:  ctx.Imports,
	}, nil
}

func (p *Parser) IsSupportedPath(path string) bool {
	lang := DetectLanguage(path)
	if lang == "" {
		return false
	}
	_, ok := p.loader.Grammar(lang)
	return ok
}

func (p *Parser) SupportedExtensions() []string {
	return p.loader.SupportedExtensions()
}

// IsGenerated reports whether the first lines of content carry an @generated marker.
func IsGenerated(content []byte) bool {
	head := content
	for i, n := 0, 0; i < len(content); i++ {
		if content[i] == '\n' {
			n++
			if n == generatedBannerLines {
				head = content[:i]
				break
			}
		}
	}
	return bytes.Contains(head, []byte("@generated"))
}
