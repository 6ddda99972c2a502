package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/manifest"
)

func TestCompatibilityLine(t *testing.T) {
	tests := []struct {
		spec string
		want string
		ok   bool
	}{
		{"^18.2.0", "v18", true},
		{"~1.2.3", "v1", true},
		{">=2.0.0 <3.0.0", "v2", true},
		{"18.x", "v18", true},
		{"4", "v4", true},
		{"^0.3.1", "v0.3", true},
		{"1.0.0-beta.2", "v1", true},
		{"*", "", false},
		{"latest", "", false},
		{"workspace:*", "", false},
		{"file:../lib", "", false},
		{"github:user/repo", "", false},
		{"^16 || ^17", "", false},
	}
	for _, tc := range tests {
		got, ok := CompatibilityLine(tc.spec)
		assert.Equal(t, tc.ok, ok, tc.spec)
		assert.Equal(t, tc.want, got, tc.spec)
	}
}

func TestFindConflicts(t *testing.T) {
	pkgs := []manifest.PackageInfo{
		{Name: "react", Version: "^18.2.0", Manifest: "package.json", Section: manifest.SectionDependencies, IsDirect: true},
		{Name: "react", Version: "^17.0.2", Manifest: "packages/ui/package.json", Section: manifest.SectionDependencies, IsDirect: true},
		{Name: "react", Version: "18.3.1", Manifest: "package-lock.json", Section: manifest.SectionLockfile},
		{Name: "lodash", Version: "^4.17.0", Manifest: "package.json", Section: manifest.SectionDependencies, IsDirect: true},
		{Name: "lodash", Version: "~4.17.21", Manifest: "packages/ui/package.json", Section: manifest.SectionDev, IsDirect: true},
		{Name: "left-pad", Version: "latest", Manifest: "package.json", Section: manifest.SectionDependencies, IsDirect: true},
		{Name: "left-pad", Version: "^1.0.0", Manifest: "packages/ui/package.json", Section: manifest.SectionDependencies, IsDirect: true},
		{Name: "zod", Version: "^0.2.0", Manifest: "package.json", Section: manifest.SectionDependencies, IsDirect: true},
		{Name: "zod", Version: "^0.3.0", Manifest: "package.json", Section: manifest.SectionDev, IsDirect: true},
	}

	got := NewAnalyzer().FindConflicts(pkgs)
	require.Len(t, got, 2)

	react := got[0]
	assert.Equal(t, findings.KindVersionConflict, react.Kind)
	assert.Equal(t, "react", react.Version.Package)
	assert.Equal(t, []string{"v17", "v18"}, react.Version.Majors)
	assert.Len(t, react.Version.Declarations, 2)
	assert.Equal(t, "package.json", react.File)
	assert.Equal(t, findings.SeverityMedium, react.Severity)
	assert.NoError(t, react.Validate())

	zod := got[1]
	assert.Equal(t, []string{"v0.2", "v0.3"}, zod.Version.Majors)
}
