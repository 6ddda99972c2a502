package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node. Returning true stops the walker from
// descending into the node's children.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext is the per-file state threaded through one walk.
type ExtractionContext struct {
	Source  []byte
	Path    string
	Imports []ImportStatement
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
// It holds no per-file state and can be shared between goroutines.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := e.handlers[node.Kind()]; ok && handler(ctx, node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// Lines returns the 1-based first and last line of node.
func (c *ExtractionContext) Lines(node *sitter.Node) (int, int) {
	return int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1
}

// Standalone reports whether node is the only code on the lines it spans.
// Trailing semicolons and line comments are allowed.
func (c *ExtractionContext) Standalone(node *sitter.Node) bool {
	start, end := int(node.StartByte()), int(node.EndByte())
	for i := start - 1; i >= 0 && c.Source[i] != '\n'; i-- {
		if !isSpace(c.Source[i]) {
			return false
		}
	}
	for i := end; i < len(c.Source) && c.Source[i] != '\n'; i++ {
		b := c.Source[i]
		if isSpace(b) || b == ';' {
			continue
		}
		if b == '/' && i+1 < len(c.Source) && c.Source[i+1] == '/' {
			return true
		}
		return false
	}
	return true
}

func (c *ExtractionContext) add(node *sitter.Node, stmt ImportStatement) {
	stmt.File = c.Path
	stmt.Line, stmt.EndLine = c.Lines(node)
	stmt.Standalone = c.Standalone(node)
	stmt.TopLevel = isTopLevel(node)
	c.Imports = append(c.Imports, stmt)
}

func isTopLevel(node *sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Kind() == "program"
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}
