package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"depsentry/internal/shared/util"
)

// Section is a named region of a markdown file delimited by HTML comments:
//
//	<!-- depsentry:NAME:start -->
//	...
//	<!-- depsentry:NAME:end -->
type Section string

func (s Section) start() string { return "<!-- depsentry:" + string(s) + ":start -->" }
func (s Section) end() string   { return "<!-- depsentry:" + string(s) + ":end -->" }

// In reports whether content carries the opening comment of s.
func (s Section) In(content string) bool {
	return strings.TrimSpace(string(s)) != "" && strings.Contains(content, s.start())
}

// Replace swaps whatever sits between the section comments for body. The
// comments must each appear exactly once and in order. Line endings follow
// the surrounding document.
func (s Section) Replace(content, body string) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", errors.New("markdown section name must not be empty")
	}
	open, closing := s.start(), s.end()
	if n, m := strings.Count(content, open), strings.Count(content, closing); n != 1 || m != 1 {
		return "", fmt.Errorf("markdown section %q: found %d start and %d end markers, want one of each", s, n, m)
	}
	i := strings.Index(content, open) + len(open)
	j := strings.Index(content, closing)
	if j < i {
		return "", fmt.Errorf("markdown section %q: end marker precedes start marker", s)
	}

	nl := "\n"
	if strings.Contains(content, "\r\n") {
		nl = "\r\n"
		body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")
	}
	body = strings.TrimRight(body, "\r\n")
	return content[:i] + nl + body + nl + content[j:], nil
}

// WriteMarkdown stores body at path. When the existing file contains the
// section markers only that section is rewritten and injected is true;
// otherwise the whole file is replaced.
func WriteMarkdown(path string, section Section, body string) (injected bool, err error) {
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, util.WriteFileWithDirs(path, []byte(body), 0o644)
	case err != nil:
		return false, fmt.Errorf("read %q: %w", path, err)
	}

	if !section.In(string(raw)) {
		return false, util.ReplaceFile(path, []byte(body), 0o644)
	}
	next, err := section.Replace(string(raw), body)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return true, util.ReplaceFile(path, []byte(next), 0o644)
}
