package resolver

import (
	"fmt"
	"path/filepath"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/parser"
)

// Declared is the manifest view the missing-dependency check compares against.
type Declared struct {
	// Loaded is false when no manifest was found; external imports are then not checked.
	Loaded         bool
	Packages       map[string]bool
	Workspace      map[string]bool // names of the project's own packages
	CheckExternal  bool
	PackageManager string
}

// FindMissingDependencies reports external imports whose package is not
// declared in any manifest, and relative imports that resolve to nothing.
// Each (file, package) or (file, token) pair is reported once.
func (r *Resolver) FindMissingDependencies(files []parser.File, declared Declared) []findings.Finding {
	out := make([]findings.Finding, 0)
	sev := findings.DefaultThresholds()[findings.KindMissingDependency]

	for _, file := range files {
		seen := make(map[string]bool)
		for _, imp := range file.Imports {
			if IsExternal(imp.Module) {
				if !declared.CheckExternal || !declared.Loaded || IsBuiltin(imp.Module) {
					continue
				}
				name := PackageName(imp.Module)
				if name == "" || seen[name] || declared.isDeclared(name, imp.TypeOnly) {
					continue
				}
				seen[name] = true
				out = append(out, findings.Finding{
					Kind:        findings.KindMissingDependency,
					Severity:    sev,
					File:        file.Path,
					Line:        imp.Line,
					ImportToken: imp.Module,
					Message:     fmt.Sprintf("Package '%s' is imported but not declared in package.json", name),
					Suggestion:  fmt.Sprintf("Declare it as a dependency: %s %s", installCommand(declared.PackageManager), name),
					Missing:     &findings.MissingPayload{Package: name},
				})
				continue
			}

			if seen[imp.Module] {
				continue
			}
			if _, ok := r.Resolve(file.Path, imp.Module); ok {
				continue
			}
			seen[imp.Module] = true
			out = append(out, findings.Finding{
				Kind:        findings.KindMissingDependency,
				Severity:    sev,
				File:        file.Path,
				Line:        imp.Line,
				ImportToken: imp.Module,
				Message:     fmt.Sprintf("Cannot resolve '%s' from %s", imp.Module, filepath.Base(file.Path)),
				Suggestion:  "Check the import path or create the missing module",
				Missing:     &findings.MissingPayload{Relative: true},
			})
		}
	}
	return out
}

func (d Declared) isDeclared(name string, typeOnly bool) bool {
	if d.Packages[name] || d.Workspace[name] {
		return true
	}
	// Type-only imports are satisfied by DefinitelyTyped packages.
	if typeOnly && d.Packages[typesPackage(name)] {
		return true
	}
	return false
}

// typesPackage maps "lodash" to "@types/lodash" and "@scope/pkg" to "@types/scope__pkg".
func typesPackage(name string) string {
	if len(name) > 0 && name[0] == '@' {
		for i := 1; i < len(name); i++ {
			if name[i] == '/' {
				return "@types/" + name[1:i] + "__" + name[i+1:]
			}
		}
	}
	return "@types/" + name
}

func installCommand(pm string) string {
	switch pm {
	case "pnpm":
		return "pnpm add"
	case "yarn":
		return "yarn add"
	case "bun":
		return "bun add"
	default:
		return "npm install"
	}
}
