package resolver

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultExtensions are tried, in order, when an import omits the file extension.
var DefaultExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".json"}

const defaultCacheSize = 4096

// emitted extension -> source extensions that compile to it
var sourceForEmitted = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// Resolver maps import tokens to file paths using path rules only. It is safe
// for concurrent use.
type Resolver struct {
	extensions      []string
	excludedImports map[string]bool
	exists          *lru.Cache[string, bool]
	stat            func(string) (fs.FileInfo, error)
}

type Option func(*Resolver)

// WithExtensions replaces the extension candidates.
func WithExtensions(exts []string) Option {
	return func(r *Resolver) {
		if len(exts) == 0 {
			return
		}
		r.extensions = make([]string, 0, len(exts))
		for _, ext := range exts {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.extensions = append(r.extensions, ext)
		}
	}
}

// WithExcludedImports names modules or bindings never reported as unused.
func WithExcludedImports(names []string) Option {
	return func(r *Resolver) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				r.excludedImports[n] = true
			}
		}
	}
}

// WithCacheSize bounds the filesystem-existence cache.
func WithCacheSize(size int) Option {
	return func(r *Resolver) {
		if size <= 0 {
			return
		}
		if c, err := lru.New[string, bool](size); err == nil {
			r.exists = c
		}
	}
}

func New(opts ...Option) *Resolver {
	cache, _ := lru.New[string, bool](defaultCacheSize)
	r := &Resolver{
		extensions:      append([]string(nil), DefaultExtensions...),
		excludedImports: make(map[string]bool),
		exists:          cache,
		stat:            os.Stat,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns a relative or absolute import token into the path of an
// existing file. Filesystem errors are treated as "not found".
func (r *Resolver) Resolve(fromFile, token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" || IsExternal(token) {
		return "", false
	}
	if i := strings.IndexAny(token, "?#"); i >= 0 {
		token = token[:i]
	}

	base := filepath.FromSlash(token)
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(fromFile), base)
	}
	base = filepath.Clean(base)

	for _, candidate := range r.candidates(base) {
		if r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) candidates(base string) []string {
	out := make([]string, 0, 2+2*len(r.extensions))
	out = append(out, base)

	ext := filepath.Ext(base)
	if sources, ok := sourceForEmitted[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		for _, src := range sources {
			out = append(out, stem+src)
		}
	}
	for _, e := range r.extensions {
		out = append(out, base+e)
	}
	for _, e := range r.extensions {
		out = append(out, filepath.Join(base, "index"+e))
	}
	return out
}

func (r *Resolver) isFile(path string) bool {
	if ok, hit := r.exists.Get(path); hit {
		return ok
	}
	info, err := r.stat(path)
	ok := err == nil && info.Mode().IsRegular()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Debug("resolver stat failed", "path", path, "error", err)
	}
	r.exists.Add(path, ok)
	return ok
}

// IsExternal reports whether token names a package rather than a path.
func IsExternal(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	return !strings.HasPrefix(token, ".") && !strings.HasPrefix(token, "/")
}

// PackageName returns the installable package for an external token:
// "@scope/name/sub" -> "@scope/name", "lodash/fp" -> "lodash".
func PackageName(token string) string {
	token = strings.TrimPrefix(strings.TrimSpace(token), "node:")
	if token == "" {
		return ""
	}
	parts := strings.Split(token, "/")
	if strings.HasPrefix(token, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return token
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// IsBuiltin reports whether token names a Node.js core module.
func IsBuiltin(token string) bool {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "node:") {
		return true
	}
	return isNodeBuiltin(token) || isNodeBuiltin(PackageName(token))
}
