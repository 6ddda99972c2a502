package resolver

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/parser"
)

// FindUnusedImports reports bindings that are never referenced in the rest of
// their file. Matching is textual: every identifier-shaped word outside import
// statements counts as a reference.
func (r *Resolver) FindUnusedImports(files []parser.File) []findings.Finding {
	out := make([]findings.Finding, 0)
	for _, file := range files {
		out = append(out, r.findUnusedInFile(file)...)
	}
	return out
}

func (r *Resolver) findUnusedInFile(file parser.File) []findings.Finding {
	hasBindings := false
	for _, imp := range file.Imports {
		if imp.Binds() {
			hasBindings = true
			break
		}
	}
	if !hasBindings {
		return nil
	}

	refHits := countReferences(file.Content, importLines(file.Imports))
	out := make([]findings.Finding, 0)

	for _, imp := range file.Imports {
		// Side-effect and re-export statements bind nothing locally.
		if !imp.Binds() {
			continue
		}
		if r.excludedImports[imp.Module] || r.excludedImports[PackageName(imp.Module)] {
			continue
		}

		unused := make([]string, 0)
		for _, name := range imp.ImportedNames {
			if name == "" || r.excludedImports[name] {
				continue
			}
			if isImplicitJSXBinding(file.Path, name) {
				continue
			}
			if refHits[name] == 0 {
				unused = append(unused, name)
			}
		}
		if len(unused) == 0 {
			continue
		}

		all := len(unused) == len(imp.ImportedNames)
		f := findings.Finding{
			Kind:        findings.KindUnusedImport,
			Severity:    findings.DefaultThresholds()[findings.KindUnusedImport],
			File:        file.Path,
			Line:        imp.Line,
			ImportToken: imp.Module,
			AutoFixable: all && imp.Standalone && imp.TopLevel,
			Unused: &findings.UnusedPayload{
				UnusedNames: unused,
				AllUnused:   all,
				EndLine:     imp.EndLine,
			},
		}
		if all {
			f.Message = fmt.Sprintf("Import of '%s' is unused (%s)", imp.Module, strings.Join(unused, ", "))
			f.Suggestion = "Remove the unused import statement"
		} else {
			f.Message = fmt.Sprintf("Unused names imported from '%s': %s", imp.Module, strings.Join(unused, ", "))
			f.Suggestion = fmt.Sprintf("Remove %s from the import list", strings.Join(unused, ", "))
		}
		out = append(out, f)
	}

	return out
}

// importLines marks the 1-based lines covered by import statements.
func importLines(imports []parser.ImportStatement) map[int]bool {
	lines := make(map[int]bool)
	for _, imp := range imports {
		// Only fully-owned lines are masked; code sharing a line must still count.
		if !imp.Binds() || !imp.Standalone {
			continue
		}
		end := imp.EndLine
		if end < imp.Line {
			end = imp.Line
		}
		for l := imp.Line; l <= end; l++ {
			lines[l] = true
		}
	}
	return lines
}

func countReferences(content []byte, skip map[int]bool) map[string]int {
	hits := make(map[string]int)
	for i, line := range bytes.Split(content, []byte("\n")) {
		if skip[i+1] {
			continue
		}
		for _, word := range identifiers(line) {
			hits[word]++
		}
	}
	return hits
}

func identifiers(line []byte) []string {
	words := make([]string, 0)
	start := -1
	for i := 0; i <= len(line); i++ {
		if i < len(line) && isIdentByte(line[i], i > start && start >= 0) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, string(line[start:i]))
			start = -1
		}
	}
	return words
}

func isIdentByte(b byte, inWord bool) bool {
	switch {
	case b == '_' || b == '$':
		return true
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return inWord
	case b >= 0x80:
		return true
	}
	return false
}

// Classic JSX transforms reference React implicitly.
func isImplicitJSXBinding(path, name string) bool {
	if name != "React" {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsx", ".tsx":
		return true
	}
	return false
}
