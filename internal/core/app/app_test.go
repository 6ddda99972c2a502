package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"depsentry/internal/core/config"
	domainErrors "depsentry/internal/core/errors"
	"depsentry/internal/data/history"
	"depsentry/internal/engine/findings"
	"depsentry/internal/engine/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func sampleProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json": `{
  "name": "demo",
  "dependencies": {"react": "^18.2.0", "request": "^2.88.0"},
  "devDependencies": {"react": "^17.0.2"}
}`,
		"src/a.ts": "import { b } from './b';\nexport const a = () => b();\n",
		"src/b.ts": "import { a } from './a';\nexport const b = () => a();\n",
		"src/c.ts": "import { helper } from './util';\n" +
			"import lodash from 'lodash';\n" +
			"import React from 'react';\n" +
			"import { useState } from 'react';\n" +
			"console.log(lodash, React, useState);\n",
		"src/util.ts":             "export const helper = 1;\n",
		"src/c.test.ts":           "import { nothing } from './nope';\n",
		"dist/bundle.js":          "import x from './missing';\n",
		"node_modules/x/index.js": "import y from './gone';\n",
	})
	return root
}

func analysisConfig(root string) config.Analysis {
	cfg := config.DefaultConfig(root).Analysis
	noTests := false
	cfg.IncludeTests = &noTests
	cfg.Workers = 2
	return cfg
}

func newTestAnalyzer(opts ...Option) *Analyzer {
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { return "run-1" }),
	}
	return New(append(base, opts...)...)
}

func kindsOf(list []findings.Finding) []findings.Kind {
	out := make([]findings.Kind, len(list))
	for i, f := range list {
		out[i] = f.Kind
	}
	return out
}

func TestAnalyze_ReportsEveryFindingKind(t *testing.T) {
	root := sampleProject(t)
	a := newTestAnalyzer()

	result, err := a.Analyze(context.Background(), analysisConfig(root))
	require.NoError(t, err)

	assert.Equal(t, []findings.Kind{
		findings.KindMissingDependency,
		findings.KindVersionConflict,
		findings.KindDeprecatedPackage,
		findings.KindCircularDependency,
		findings.KindUnusedImport,
		findings.KindDuplicateImport,
	}, kindsOf(result.Findings))

	assert.Equal(t, findings.SeverityHigh, result.Severity)
	assert.Equal(t, 6, result.Summary.TotalIssues)
	assert.Equal(t, 4, result.Summary.FilesAnalyzed)
	assert.Equal(t, 2, result.Summary.DependenciesAnalyzed)
	assert.Equal(t, 1, result.Summary.CriticalIssues)

	missing := result.Findings[0]
	assert.Equal(t, "lodash", missing.ImportToken)
	assert.Equal(t, filepath.Join(root, "src", "c.ts"), missing.File)
	assert.Equal(t, 2, missing.Line)

	cycle := result.Findings[3]
	require.NotNil(t, cycle.Cycle)
	assert.Equal(t, findings.SeverityLow, cycle.Severity)
	assert.Equal(t, 2, cycle.Cycle.Length())

	unused := result.Findings[4]
	assert.True(t, unused.AutoFixable)
	assert.Equal(t, "./util", unused.ImportToken)

	require.Len(t, result.StronglyConnected, 1)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "a.ts"),
		filepath.Join(root, "src", "b.ts"),
	}, result.StronglyConnected[0])

	assert.Equal(t, "run-1", result.Metadata.AnalysisID)
	assert.Equal(t, fixedTime, result.Metadata.AnalysisTimestamp)
	assert.Equal(t, "typescript", result.Metadata.ProjectType)
	assert.Equal(t, root, result.Metadata.RootDir)
	assert.Empty(t, result.Fixes)
}

func TestAnalyze_IsDeterministic(t *testing.T) {
	root := sampleProject(t)
	cfg := analysisConfig(root)
	cfg.Workers = 8

	first, err := newTestAnalyzer().Analyze(context.Background(), cfg)
	require.NoError(t, err)
	second, err := newTestAnalyzer().Analyze(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_DisabledChecksAndThresholds(t *testing.T) {
	root := sampleProject(t)
	cfg := analysisConfig(root)
	off := false
	cfg.CheckVersions = &off
	cfg.CheckDeprecated = &off
	cfg.SeverityThresholds = map[string]string{
		"unused_import":       "high",
		"circular_dependency": "low",
	}

	result, err := newTestAnalyzer().Analyze(context.Background(), cfg)
	require.NoError(t, err)

	counts := result.CountByKind()
	assert.Zero(t, counts[findings.KindVersionConflict])
	assert.Zero(t, counts[findings.KindDeprecatedPackage])
	for _, f := range result.Findings {
		switch f.Kind {
		case findings.KindUnusedImport:
			assert.Equal(t, findings.SeverityHigh, f.Severity)
		case findings.KindCircularDependency:
			assert.Equal(t, findings.SeverityLow, f.Severity)
		}
	}
}

func TestAnalyze_IncludesTestsWhenAsked(t *testing.T) {
	root := sampleProject(t)
	cfg := analysisConfig(root)
	cfg.IncludeTests = nil

	result, err := newTestAnalyzer().Analyze(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Summary.FilesAnalyzed)

	var relative int
	for _, f := range result.Findings {
		if f.Missing != nil && f.Missing.Relative {
			relative++
			assert.Equal(t, "./nope", f.ImportToken)
		}
	}
	assert.Equal(t, 1, relative)
}

type failingLoader struct{}

func (failingLoader) Load(context.Context, string) (*manifest.Set, error) {
	return nil, errors.New("manifest exploded")
}

type panickingLoader struct{}

func (panickingLoader) Load(context.Context, string) (*manifest.Set, error) {
	panic("boom")
}

func TestAnalyze_ManifestFailureContinuesWithoutPackages(t *testing.T) {
	for name, loader := range map[string]interface {
		Load(context.Context, string) (*manifest.Set, error)
	}{
		"error": failingLoader{},
		"panic": panickingLoader{},
	} {
		t.Run(name, func(t *testing.T) {
			root := sampleProject(t)
			result, err := newTestAnalyzer(WithManifestLoader(loader)).Analyze(context.Background(), analysisConfig(root))
			require.NoError(t, err)

			counts := result.CountByKind()
			assert.Equal(t, 1, counts[findings.KindCircularDependency])
			assert.Equal(t, 1, counts[findings.KindUnusedImport])
			assert.Zero(t, counts[findings.KindMissingDependency])
			assert.Zero(t, counts[findings.KindVersionConflict])
			assert.Zero(t, counts[findings.KindDeprecatedPackage])
			assert.Zero(t, result.Summary.DependenciesAnalyzed)
		})
	}
}

func TestAnalyze_InvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.ts")
	require.NoError(t, os.WriteFile(file, []byte("export {};\n"), 0o644))

	cases := map[string]config.Analysis{
		"missing root": {},
		"absent root":  {RootDir: filepath.Join(dir, "absent")},
		"file root":    {RootDir: file},
		"bad glob":     {RootDir: dir, Include: []string{"src/[a"}},
		"bad severity": {RootDir: dir, SeverityThresholds: map[string]string{"unused_import": "urgent"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := newTestAnalyzer().Analyze(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, domainErrors.IsCode(err, domainErrors.CodeInvalidConfig), err.Error())
		})
	}
}

func TestAnalyze_CancelledContextFailsWithStage(t *testing.T) {
	root := sampleProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAnalyzer().Analyze(ctx, analysisConfig(root))
	require.Error(t, err)
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeStageFailed))
	stage, ok := domainErrors.Stage(err)
	require.True(t, ok)
	assert.Equal(t, StageDiscover, stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_AutoFixRemovesUnusedImport(t *testing.T) {
	root := sampleProject(t)
	cfg := analysisConfig(root)
	cfg.AutoFix = true

	result, err := newTestAnalyzer().Analyze(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Fixes, 1)
	fix := result.Fixes[0]
	assert.True(t, fix.Applied)
	assert.Equal(t, findings.KindUnusedImport, fix.Kind)
	assert.Equal(t, filepath.Join(root, "src", "c.ts"), fix.File)

	// The report keeps the finding that was fixed.
	assert.Equal(t, 1, result.CountByKind()[findings.KindUnusedImport])

	content, err := os.ReadFile(filepath.Join(root, "src", "c.ts"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "./util")
	assert.Contains(t, string(content), "import lodash from 'lodash';")
}

func TestAnalyze_AutoFixDryRunLeavesFiles(t *testing.T) {
	root := sampleProject(t)
	cfg := analysisConfig(root)
	cfg.AutoFix = true
	cfg.DryRun = true
	path := filepath.Join(root, "src", "c.ts")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	result, err := newTestAnalyzer().Analyze(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Fixes, 1)
	assert.True(t, result.Fixes[0].DryRun)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAnalyze_ImpactUsesLastGraph(t *testing.T) {
	root := sampleProject(t)
	a := newTestAnalyzer()

	_, err := a.Impact(root, "src/a.ts")
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeNotFound))

	_, err = a.Analyze(context.Background(), analysisConfig(root))
	require.NoError(t, err)

	report, err := a.Impact(root, "src/util.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "c.ts")}, report.DirectDependents)

	_, err = a.Impact(root, "src/nowhere.ts")
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeNotFound))
}

func TestAnalyze_ImportChain(t *testing.T) {
	root := sampleProject(t)
	a := newTestAnalyzer()

	_, err := a.ImportChain(root, "src/a.ts", "src/b.ts")
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeNotFound))

	_, err = a.Analyze(context.Background(), analysisConfig(root))
	require.NoError(t, err)

	chain, err := a.ImportChain(root, "src/a.ts", "src/b.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "a.ts"), filepath.Join(root, "src", "b.ts")}, chain)

	_, err = a.ImportChain(root, "src/a.ts", "src/util.ts")
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeNotFound))

	_, err = a.ImportChain(root, "src/a.ts", "src/ghost.ts")
	assert.True(t, domainErrors.IsCode(err, domainErrors.CodeNotFound))
}

type memoryStore struct {
	saved []history.Snapshot
}

func (m *memoryStore) SaveSnapshot(projectKey string, s history.Snapshot) error {
	s.ProjectKey = projectKey
	m.saved = append(m.saved, s)
	return nil
}

func (m *memoryStore) LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error) {
	out := make([]history.Snapshot, 0)
	for _, s := range m.saved {
		if s.ProjectKey == projectKey && !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestRecordSnapshotAndTrend(t *testing.T) {
	root := sampleProject(t)
	a := newTestAnalyzer()
	result, err := a.Analyze(context.Background(), analysisConfig(root))
	require.NoError(t, err)

	store := &memoryStore{}
	snap, err := a.RecordSnapshot(store, "demo", result)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CycleCount)
	assert.Equal(t, 4, snap.FileCount)
	assert.Positive(t, snap.NodeCount)
	assert.Positive(t, snap.EdgeCount)

	report, err := Trend(store, "demo", fixedTime.Add(-time.Hour), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ScanCount)

	_, err = Trend(store, "other", time.Time{}, time.Hour)
	assert.Error(t, err)
}

func TestHealthService(t *testing.T) {
	root := sampleProject(t)
	a := newTestAnalyzer()
	health := NewHealthService(a, true)

	status := health.Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "no analysis yet", status.Components["graph"])
	assert.Equal(t, "enabled", status.Components["history"])
	assert.Contains(t, status.Components["memory"], "MB heap")

	_, err := a.Analyze(context.Background(), analysisConfig(root))
	require.NoError(t, err)
	status = health.Check(context.Background())
	assert.Contains(t, status.Components["graph"], "ok (")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, "down", health.Check(ctx).Status)
}
