package resolver

import (
	"fmt"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/parser"
)

// FindDuplicateImports reports every repeat import of a module within one
// file. Dynamic imports, re-exports and imports nested in a function or block
// are not considered duplicates.
func FindDuplicateImports(files []parser.File) []findings.Finding {
	out := make([]findings.Finding, 0)
	sev := findings.DefaultThresholds()[findings.KindDuplicateImport]

	for _, file := range files {
		type group struct {
			first parser.ImportStatement
			bound map[string]bool
		}
		groups := make(map[string]*group)
		counts := make(map[string]int)
		for _, imp := range file.Imports {
			if countsAsDuplicate(imp) {
				counts[duplicateKey(imp)]++
			}
		}

		for _, imp := range file.Imports {
			if !countsAsDuplicate(imp) {
				continue
			}
			key := duplicateKey(imp)
			g, ok := groups[key]
			if !ok {
				g = &group{first: imp, bound: make(map[string]bool)}
				for _, n := range imp.ImportedNames {
					g.bound[n] = true
				}
				groups[key] = g
				continue
			}

			redundant := true
			for _, n := range imp.ImportedNames {
				if !g.bound[n] {
					redundant = false
				}
				g.bound[n] = true
			}

			f := findings.Finding{
				Kind:        findings.KindDuplicateImport,
				Severity:    sev,
				File:        file.Path,
				Line:        imp.Line,
				ImportToken: imp.Module,
				Message:     fmt.Sprintf("'%s' is imported %d times (first on line %d)", imp.Module, counts[key], g.first.Line),
				AutoFixable: redundant && imp.Standalone && imp.TopLevel,
				Duplicate: &findings.DuplicatePayload{
					FirstLine: g.first.Line,
					EndLine:   imp.EndLine,
					Count:     counts[key],
				},
			}
			if redundant {
				f.Suggestion = "Remove the redundant import statement"
			} else {
				f.Suggestion = fmt.Sprintf("Merge the imports from '%s' into a single statement", imp.Module)
			}
			out = append(out, f)
		}
	}
	return out
}

func countsAsDuplicate(imp parser.ImportStatement) bool {
	if !imp.TopLevel {
		return false
	}
	switch imp.Kind {
	case parser.ImportStatic, parser.ImportSideEffect, parser.ImportRequire:
		return true
	}
	return false
}

// Value and type-only imports of one module form separate groups.
func duplicateKey(imp parser.ImportStatement) string {
	if imp.TypeOnly {
		return "type:" + imp.Module
	}
	return "value:" + imp.Module
}
