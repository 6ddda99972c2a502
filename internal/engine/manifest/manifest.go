// # internal/engine/manifest/manifest.go
package manifest

import (
	"sort"
	"strings"
)

type Section string

const (
	SectionDependencies Section = "dependencies"
	SectionDev          Section = "devDependencies"
	SectionOptional     Section = "optionalDependencies"
	SectionPeer         Section = "peerDependencies"
	SectionLockfile     Section = "lockfile"
)

// PackageInfo is one dependency declaration, or one installed package from a
// lockfile when IsDirect is false.
type PackageInfo struct {
	Name                 string  `json:"name"`
	Version              string  `json:"version"`
	Manifest             string  `json:"manifest"`
	Section              Section `json:"section"`
	IsDevDependency      bool    `json:"isDevDependency"`
	IsOptionalDependency bool    `json:"isOptionalDependency"`
	IsPeerDependency     bool    `json:"isPeerDependency"`
	IsDirect             bool    `json:"isDirect"`
	// Deprecated carries the registry deprecation notice recorded in a lockfile.
	Deprecated string `json:"deprecated,omitempty"`
}

// Manifest is one parsed package.json.
type Manifest struct {
	Path           string
	Name           string
	Version        string
	PackageManager string
	Workspaces     []string
	Packages       []PackageInfo
}

// Set is everything the loader found under a root.
type Set struct {
	Root           string
	Manifests      []Manifest
	Packages       []PackageInfo
	PackageManager string
	ProjectType    string
}

// Loaded reports whether at least one manifest was read.
func (s *Set) Loaded() bool {
	return s != nil && len(s.Manifests) > 0
}

// Declared returns the names declared directly in any manifest section.
func (s *Set) Declared() map[string]bool {
	out := make(map[string]bool)
	if s == nil {
		return out
	}
	for _, p := range s.Packages {
		if p.IsDirect {
			out[p.Name] = true
		}
	}
	return out
}

// WorkspaceNames returns the names of the project's own packages.
func (s *Set) WorkspaceNames() map[string]bool {
	out := make(map[string]bool)
	if s == nil {
		return out
	}
	for _, m := range s.Manifests {
		if m.Name != "" {
			out[m.Name] = true
		}
	}
	return out
}

// Direct returns direct declarations only.
func (s *Set) Direct() []PackageInfo {
	out := make([]PackageInfo, 0)
	if s == nil {
		return out
	}
	for _, p := range s.Packages {
		if p.IsDirect {
			out = append(out, p)
		}
	}
	return out
}

// UniqueNames counts distinct package names across all declarations.
func (s *Set) UniqueNames() int {
	if s == nil {
		return 0
	}
	seen := make(map[string]bool, len(s.Packages))
	for _, p := range s.Packages {
		seen[p.Name] = true
	}
	return len(seen)
}

func sortPackages(list []PackageInfo) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Manifest != b.Manifest {
			return a.Manifest < b.Manifest
		}
		if a.Section != b.Section {
			return sectionRank(a.Section) < sectionRank(b.Section)
		}
		return a.Name < b.Name
	})
}

func sectionRank(s Section) int {
	switch s {
	case SectionDependencies:
		return 0
	case SectionDev:
		return 1
	case SectionOptional:
		return 2
	case SectionPeer:
		return 3
	}
	return 4
}

// managerFromField turns "pnpm@9.1.0" into "pnpm".
func managerFromField(field string) string {
	field = strings.TrimSpace(field)
	if i := strings.Index(field, "@"); i > 0 {
		field = field[:i]
	}
	switch field {
	case "npm", "pnpm", "yarn", "bun":
		return field
	}
	return ""
}
