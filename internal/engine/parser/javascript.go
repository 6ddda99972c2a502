// # internal/engine/parser/javascript.go
package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// javaScriptHandlers covers JavaScript, TypeScript and TSX; the grammars
// share node kinds for every import form.
func javaScriptHandlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"import_statement":    handleImportStatement,
		"export_statement":    handleExportStatement,
		"variable_declarator": handleRequireDeclarator,
		"call_expression":     handleCallExpression,
	}
}

func handleImportStatement(ctx *ExtractionContext, node *sitter.Node) bool {
	typeOnly := hasToken(node, "type") || hasToken(node, "typeof")

	src := node.ChildByFieldName("source")
	if src == nil {
		// import x = require('m')
		req := childOfKind(node, "import_require_clause")
		if req == nil {
			return true
		}
		module, ok := stringLiteral(ctx, firstChildOfKind(req, "string"))
		if !ok {
			return true
		}
		names := make([]string, 0, 1)
		if id := childOfKind(req, "identifier"); id != nil {
			names = append(names, ctx.Text(id))
		}
		ctx.add(node, ImportStatement{Module: module, ImportedNames: names, Kind: ImportRequire, TypeOnly: typeOnly})
		return true
	}

	module, ok := stringLiteral(ctx, src)
	if !ok {
		return true
	}

	clause := childOfKind(node, "import_clause")
	if clause == nil {
		ctx.add(node, ImportStatement{Module: module, Kind: ImportSideEffect})
		return true
	}

	names, allTypes := importClauseNames(ctx, clause)
	ctx.add(node, ImportStatement{
		Module:        module,
		ImportedNames: names,
		Kind:          ImportStatic,
		TypeOnly:      typeOnly || allTypes,
	})
	return true
}

// importClauseNames returns the local bindings of an import clause and
// whether every one of them is an inline type specifier.
func importClauseNames(ctx *ExtractionContext, clause *sitter.Node) ([]string, bool) {
	names := make([]string, 0)
	typeSpecifiers := 0
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			names = append(names, ctx.Text(child))
		case "namespace_import":
			if id := childOfKind(child, "identifier"); id != nil {
				names = append(names, ctx.Text(id))
			}
		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				if local == nil {
					continue
				}
				names = append(names, ctx.Text(local))
				if hasToken(spec, "type") || hasToken(spec, "typeof") {
					typeSpecifiers++
				}
			}
		}
	}
	return names, len(names) > 0 && typeSpecifiers == len(names)
}

func handleExportStatement(ctx *ExtractionContext, node *sitter.Node) bool {
	src := node.ChildByFieldName("source")
	if src == nil {
		return false
	}
	module, ok := stringLiteral(ctx, src)
	if !ok {
		return true
	}
	ctx.add(node, ImportStatement{
		Module:   module,
		Kind:     ImportReExport,
		TypeOnly: hasToken(node, "type"),
	})
	return true
}

// handleRequireDeclarator records `const x = require('m')` with its bindings.
func handleRequireDeclarator(ctx *ExtractionContext, node *sitter.Node) bool {
	value := node.ChildByFieldName("value")
	if value == nil || value.Kind() != "call_expression" {
		return false
	}
	module, kind, ok := moduleCall(ctx, value)
	if !ok || kind != ImportRequire {
		return false
	}

	stmt := ImportStatement{
		Module:        module,
		ImportedNames: patternNames(ctx, node.ChildByFieldName("name")),
		Kind:          ImportRequire,
	}

	decl := node.Parent()
	if decl != nil && (decl.Kind() == "lexical_declaration" || decl.Kind() == "variable_declaration") && decl.NamedChildCount() == 1 {
		ctx.add(decl, stmt)
		return true
	}
	ctx.add(node, stmt)
	ctx.Imports[len(ctx.Imports)-1].Standalone = false
	return true
}

func handleCallExpression(ctx *ExtractionContext, node *sitter.Node) bool {
	module, kind, ok := moduleCall(ctx, node)
	if !ok {
		return false
	}
	ctx.add(node, ImportStatement{Module: module, Kind: kind})
	// Bare calls are never removed by the fixer.
	ctx.Imports[len(ctx.Imports)-1].Standalone = false
	return true
}

// moduleCall matches require('m') and import('m') with a literal argument.
func moduleCall(ctx *ExtractionContext, call *sitter.Node) (string, ImportKind, bool) {
	fn := call.ChildByFieldName("function")
	args := call.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() == 0 {
		return "", "", false
	}

	var kind ImportKind
	switch {
	case fn.Kind() == "import":
		kind = ImportDynamic
	case fn.Kind() == "identifier" && ctx.Text(fn) == "require":
		kind = ImportRequire
	default:
		return "", "", false
	}

	module, ok := stringLiteral(ctx, args.NamedChild(0))
	if !ok {
		return "", "", false
	}
	return module, kind, true
}

// patternNames collects the identifiers bound by a declarator name.
func patternNames(ctx *ExtractionContext, node *sitter.Node) []string {
	names := make([]string, 0)
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "identifier", "shorthand_property_identifier_pattern":
			names = append(names, ctx.Text(n))
		case "pair_pattern":
			collect(n.ChildByFieldName("value"))
		case "object_assignment_pattern", "assignment_pattern":
			collect(n.ChildByFieldName("left"))
		case "object_pattern", "array_pattern", "rest_pattern":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				collect(n.NamedChild(i))
			}
		}
	}
	collect(node)
	return names
}

// stringLiteral returns the value of a plain string or a template string
// without substitutions.
func stringLiteral(ctx *ExtractionContext, node *sitter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "string":
		var b strings.Builder
		for i := uint(0); i < node.NamedChildCount(); i++ {
			b.WriteString(ctx.Text(node.NamedChild(i)))
		}
		return b.String(), true
	case "template_string":
		if childOfKind(node, "template_substitution") != nil {
			return "", false
		}
		return strings.Trim(ctx.Text(node), "`"), true
	}
	return "", false
}

func childOfKind(node *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

func firstChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == kind {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := firstChildOfKind(node.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}

// hasToken reports whether node has a direct anonymous child spelled token.
func hasToken(node *sitter.Node, token string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}
