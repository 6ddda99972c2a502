// # internal/engine/parser/loader.go
package parser

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// languageExtensions maps source extensions to the grammar that parses them.
var languageExtensions = map[string]Language{
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// GrammarLoader owns the compiled tree-sitter grammars.
type GrammarLoader struct {
	languages map[Language]*sitter.Language
}

func NewGrammarLoader() *GrammarLoader {
	return &GrammarLoader{
		languages: map[Language]*sitter.Language{
			LangJavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
			LangTypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangTSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		},
	}
}

func (gl *GrammarLoader) Grammar(lang Language) (*sitter.Language, bool) {
	l, ok := gl.languages[lang]
	return l, ok
}

// SupportedExtensions lists every extension with a grammar, sorted.
func (gl *GrammarLoader) SupportedExtensions() []string {
	out := make([]string, 0, len(languageExtensions))
	for ext, lang := range languageExtensions {
		if _, ok := gl.languages[lang]; ok {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// DetectLanguage picks the grammar for path by extension. Declaration files
// (.d.ts) are not source and return "".
func DetectLanguage(path string) Language {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".d.ts") || strings.HasSuffix(base, ".d.mts") || strings.HasSuffix(base, ".d.cts") {
		return ""
	}
	return languageExtensions[filepath.Ext(base)]
}
