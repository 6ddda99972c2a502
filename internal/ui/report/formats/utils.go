package formats

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"depsentry/internal/engine/findings"
)

// relPath renders path relative to root in slash form; paths outside root or
// without a root are returned as given.
func relPath(root, path string) string {
	root = strings.TrimSpace(root)
	path = strings.TrimSpace(path)
	if root == "" || path == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// location renders "file:line", or the file alone when the line is unknown.
func location(root string, f findings.Finding) string {
	file := relPath(root, f.File)
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", file, f.Line)
	}
	return file
}

func sanitizeID(name string) string {
	if name == "" {
		return "n"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "n_" + out
	}
	return out
}

// makeIDs assigns each name a unique diagram identifier in input order.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// kindTitle is the human heading of a finding kind.
func kindTitle(k findings.Kind) string {
	switch k {
	case findings.KindCircularDependency:
		return "Circular Dependencies"
	case findings.KindMissingDependency:
		return "Missing Dependencies"
	case findings.KindVersionConflict:
		return "Version Conflicts"
	case findings.KindDeprecatedPackage:
		return "Deprecated Packages"
	case findings.KindUnusedImport:
		return "Unused Imports"
	case findings.KindDuplicateImport:
		return "Duplicate Imports"
	}
	return string(k)
}

func groupByKind(list []findings.Finding) map[findings.Kind][]findings.Finding {
	out := make(map[findings.Kind][]findings.Finding)
	for _, f := range list {
		out[f.Kind] = append(out[f.Kind], f)
	}
	return out
}
