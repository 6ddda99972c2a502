package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	manifestName = "package.json"
	npmLockName  = "package-lock.json"
)

var lockfileManagers = []struct {
	file    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"bun.lock", "bun"},
	{npmLockName, "npm"},
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".hg":          true,
	".svn":         true,
}

type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	PackageManager       string            `json:"packageManager"`
	Workspaces           json.RawMessage   `json:"workspaces"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

type packageLock struct {
	LockfileVersion int `json:"lockfileVersion"`
	Packages        map[string]struct {
		Version    string `json:"version"`
		Deprecated string `json:"deprecated"`
		Dev        bool   `json:"dev"`
		Optional   bool   `json:"optional"`
	} `json:"packages"`
}

// SkipFunc reports whether a path under the root should be ignored.
type SkipFunc func(path string, isDir bool) bool

type Loader struct {
	skip SkipFunc
}

func NewLoader(skip SkipFunc) *Loader {
	return &Loader{skip: skip}
}

// Load reads every package.json under root plus the root npm lockfile. A
// malformed manifest is logged and skipped; only a failed walk is an error.
func (l *Loader) Load(ctx context.Context, root string) (*Set, error) {
	set := &Set{Root: root}

	paths := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && (skippedDirs[d.Name()] || (l.skip != nil && l.skip(path, true))) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == manifestName && (l.skip == nil || !l.skip(path, false)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk manifests under %s: %w", root, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		m, err := readManifest(path)
		if err != nil {
			slog.Warn("skipping malformed manifest", "path", path, "error", err)
			continue
		}
		set.Manifests = append(set.Manifests, m)
		set.Packages = append(set.Packages, m.Packages...)
	}

	lockPath := filepath.Join(root, npmLockName)
	if installed, err := readLockfile(lockPath); err == nil {
		set.Packages = append(set.Packages, installed...)
	} else if !os.IsNotExist(err) {
		slog.Warn("skipping unreadable lockfile", "path", lockPath, "error", err)
	}

	sortPackages(set.Packages)
	set.PackageManager = detectPackageManager(root, set)
	set.ProjectType = detectProjectType(root, set)
	return set, nil
}

func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Manifest{}, err
	}

	m := Manifest{
		Path:           path,
		Name:           raw.Name,
		Version:        raw.Version,
		PackageManager: managerFromField(raw.PackageManager),
		Workspaces:     parseWorkspaces(raw.Workspaces),
	}
	add := func(section Section, deps map[string]string) {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m.Packages = append(m.Packages, PackageInfo{
				Name:                 name,
				Version:              deps[name],
				Manifest:             path,
				Section:              section,
				IsDevDependency:      section == SectionDev,
				IsOptionalDependency: section == SectionOptional,
				IsPeerDependency:     section == SectionPeer,
				IsDirect:             true,
			})
		}
	}
	add(SectionDependencies, raw.Dependencies)
	add(SectionDev, raw.DevDependencies)
	add(SectionOptional, raw.OptionalDependencies)
	add(SectionPeer, raw.PeerDependencies)
	return m, nil
}

// parseWorkspaces accepts both ["a/*"] and {"packages": ["a/*"]}.
func parseWorkspaces(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

func readLockfile(path string) ([]PackageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock packageLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(lock.Packages))
	for key := range lock.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	out := make([]PackageInfo, 0)
	for _, key := range keys {
		i := strings.LastIndex(key, "node_modules/")
		if i < 0 {
			continue
		}
		entry := lock.Packages[key]
		name := key[i+len("node_modules/"):]
		id := name + "@" + entry.Version
		if name == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, PackageInfo{
			Name:                 name,
			Version:              entry.Version,
			Manifest:             path,
			Section:              SectionLockfile,
			IsDevDependency:      entry.Dev,
			IsOptionalDependency: entry.Optional,
			Deprecated:           entry.Deprecated,
		})
	}
	return out, nil
}

func detectPackageManager(root string, set *Set) string {
	for _, m := range set.Manifests {
		if filepath.Dir(m.Path) == root && m.PackageManager != "" {
			return m.PackageManager
		}
	}
	for _, lf := range lockfileManagers {
		if _, err := os.Stat(filepath.Join(root, lf.file)); err == nil {
			return lf.manager
		}
	}
	if set.Loaded() {
		return "npm"
	}
	return "unknown"
}

func detectProjectType(root string, set *Set) string {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return "typescript"
	}
	for _, p := range set.Packages {
		if p.IsDirect && p.Name == "typescript" {
			return "typescript"
		}
	}
	return "javascript"
}
