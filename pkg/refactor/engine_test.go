package refactor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(cfg EngineConfig, metrics *Metrics) *Engine {
	return NewEngine(newTestDriver(DefaultOptions()), cfg, metrics, testLogger())
}

func TestEngineDryRunLeavesFilesUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "inventory.go", inventorySrc)

	report, err := newTestEngine(EngineConfig{DryRun: true}, nil).Run(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Changed())
	assert.False(t, report.Files[0].Written)
	assert.Greater(t, report.Extractions(), 0)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, inventorySrc, string(content))
}

func TestEngineContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	broken := writeSource(t, dir, "bad/broken.go", "package bad\n\nfunc {\n")
	good := writeSource(t, dir, "good/inventory.go", inventorySrc)
	metrics := NewMetrics()

	report, err := newTestEngine(EngineConfig{Workers: 2}, metrics).Run(context.Background(), []string{broken, good})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken, report.Failures[0].Path)
	require.Len(t, report.Changed(), 1)
	assert.True(t, report.Changed()[0].Written)

	content, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.NotEqual(t, inventorySrc, string(content))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.files.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.files.WithLabelValues(OutcomeChanged)))
	assert.Equal(t, float64(report.Extractions()), testutil.ToFloat64(metrics.extracts))
}

func TestEngineOrdersResults(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"c/c.go", "a/a.go", "b/b.go"} {
		paths = append(paths, writeSource(t, dir, name, "package x\n\nfunc f() {}\n"))
	}

	report, err := newTestEngine(EngineConfig{Workers: 3}, nil).Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, report.Files, 3)
	for i, want := range []string{"a/a.go", "b/b.go", "c/c.go"} {
		assert.Equal(t, filepath.Join(dir, want), report.Files[i].Path)
	}
	assert.Empty(t, report.Changed())
}

func TestEngineStopsOnCancel(t *testing.T) {
	path := writeSource(t, t.TempDir(), "inventory.go", inventorySrc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(EngineConfig{}, nil).Run(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetricsWriteFile(t *testing.T) {
	m := NewMetrics()
	m.file(OutcomeChanged)
	m.extracted()
	m.candidates(4)

	path := filepath.Join(t.TempDir(), "shortfunc.prom")
	require.NoError(t, m.WriteFile(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `shortfunc_files_total{outcome="changed"} 1`)
	assert.Contains(t, string(content), "shortfunc_candidates_total 4")

	var none *Metrics
	none.file(OutcomeFailed)
	assert.NoError(t, none.WriteFile(path))
	assert.True(t, strings.HasPrefix(string(content), "# HELP"))
}
