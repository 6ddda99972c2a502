// # internal/engine/autofix/autofix.go
package autofix

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"depsentry/internal/engine/findings"
	"depsentry/internal/shared/util"
)

type WriteFunc func(path string, data []byte, perm fs.FileMode) error

// Fixer removes import statements flagged as safe to delete.
type Fixer struct {
	dryRun    bool
	writeFile WriteFunc
}

type Option func(*Fixer)

// WithDryRun reports the edits without touching any file.
func WithDryRun(dryRun bool) Option {
	return func(f *Fixer) { f.dryRun = dryRun }
}

// WithWriter replaces the function used to persist rewritten files.
func WithWriter(w WriteFunc) Option {
	return func(f *Fixer) {
		if w != nil {
			f.writeFile = w
		}
	}
}

func New(opts ...Option) *Fixer {
	f := &Fixer{writeFile: util.ReplaceFile}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// span is the 1-based inclusive line range of one removable statement.
type span struct {
	start, end int
	token      string
	finding    findings.Finding
}

// ApplyFixes rewrites every file with auto-fixable findings. Files are
// handled independently: a read or write error is recorded on that file's
// results and the remaining files are still processed. Results are ordered by
// file, then line.
func (f *Fixer) ApplyFixes(list []findings.Finding) []findings.AutoFixResult {
	byFile := make(map[string][]span)
	for _, fd := range list {
		if !fd.AutoFixable || fd.File == "" || fd.Line <= 0 {
			continue
		}
		s, ok := spanOf(fd)
		if !ok {
			continue
		}
		byFile[fd.File] = append(byFile[fd.File], s)
	}

	out := make([]findings.AutoFixResult, 0)
	for _, file := range util.SortedKeys(byFile) {
		out = append(out, f.fixFile(file, byFile[file])...)
	}
	return out
}

func spanOf(fd findings.Finding) (span, bool) {
	end := fd.Line
	switch fd.Kind {
	case findings.KindUnusedImport:
		if fd.Unused == nil || !fd.Unused.AllUnused {
			return span{}, false
		}
		end = fd.Unused.EndLine
	case findings.KindDuplicateImport:
		if fd.Duplicate == nil {
			return span{}, false
		}
		end = fd.Duplicate.EndLine
	default:
		return span{}, false
	}
	if end < fd.Line {
		end = fd.Line
	}
	return span{start: fd.Line, end: end, token: fd.ImportToken, finding: fd}, true
}

func (f *Fixer) fixFile(path string, spans []span) []findings.AutoFixResult {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	results := make([]findings.AutoFixResult, len(spans))
	for i, s := range spans {
		results[i] = findings.AutoFixResult{File: path, Kind: s.finding.Kind, Line: s.start, DryRun: f.dryRun}
	}
	failAll := func(err error) []findings.AutoFixResult {
		for i := range results {
			results[i].Error = err.Error()
		}
		slog.Warn("auto-fix skipped file", "path", path, "error", err)
		return results
	}

	info, err := os.Stat(path)
	if err != nil {
		return failAll(err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return failAll(err)
	}
	lines := strings.SplitAfter(string(content), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	remove := make(map[int]bool)
	for i, s := range spans {
		if err := checkSpan(lines, s); err != nil {
			results[i].Error = err.Error()
			continue
		}
		for l := s.start; l <= s.end; l++ {
			remove[l] = true
		}
		results[i].Applied = !f.dryRun
	}
	if len(remove) == 0 || f.dryRun {
		return results
	}

	// Drop lines from the bottom so earlier indices stay valid.
	marked := util.SortedKeysDesc(remove)
	for _, l := range marked {
		lines = append(lines[:l-1], lines[l:]...)
	}

	if err := f.writeFile(path, []byte(strings.Join(lines, "")), info.Mode().Perm()); err != nil {
		for i := range results {
			if results[i].Applied {
				results[i].Applied = false
				results[i].Error = err.Error()
			}
		}
		slog.Warn("auto-fix write failed", "path", path, "error", err)
		return results
	}
	slog.Info("auto-fix applied", "path", path, "lines_removed", len(marked))
	return results
}

// checkSpan guards against files edited after the analysis ran.
func checkSpan(lines []string, s span) error {
	if s.start < 1 || s.end > len(lines) {
		return fmt.Errorf("line range %d-%d outside file of %d lines", s.start, s.end, len(lines))
	}
	if s.token == "" {
		return nil
	}
	for l := s.start; l <= s.end; l++ {
		if strings.Contains(lines[l-1], s.token) {
			return nil
		}
	}
	return fmt.Errorf("line %d no longer imports %q", s.start, s.token)
}
