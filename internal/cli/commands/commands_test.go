package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/shortfunc/internal/cli"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

// longSrc has one function above the default threshold and one below.
func longSrc() string {
	var b strings.Builder
	b.WriteString("package p\n\nimport \"fmt\"\n\nfunc Banner(title string) {\n")
	b.WriteString("\tfmt.Println(title)\n")
	b.WriteString("\tx := 0\n\tx++\n\tfmt.Println(\"x\", x)\n")
	for i := 0; i < 32; i++ {
		fmt.Fprintf(&b, "\tfmt.Println(%d)\n", i)
	}
	b.WriteString("}\n\nfunc Short() {}\n")
	return b.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the command line args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := cli.NewApp(&stdout, &stderr)
	root := app.RootCommand()
	Register(root, app)
	root.SetArgs(append([]string{"--log-level=error"}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunCommand_DryRunPrintsDiff(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "banner.go", longSrc())

	out, _, err := execute(t, "run", "--dry-run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "--- a/"+path)
	assert.Contains(t, out, "\n+func ")
	assert.Contains(t, out, "would refactor 1 of 1 files")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, longSrc(), string(content))
}

func TestRunCommand_WritesFilesAndMetrics(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "banner.go", longSrc())
	writeFile(t, dir, "broken/broken.go", "package broken\n\nfunc {\n")
	metrics := filepath.Join(t.TempDir(), "run.prom")

	out, stderr, err := execute(t, "run", "--metrics-file", metrics, dir+"/...")
	require.NoError(t, err, "a failing file does not fail the run")
	assert.Contains(t, out, "refactored 1 of 2 files")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, stderr, "broken.go")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, longSrc(), string(content))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `shortfunc_files_total{outcome="changed"} 1`)
	assert.Contains(t, string(prom), `shortfunc_files_total{outcome="failed"} 1`)
}

func TestRunCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "banner.go", longSrc())

	out, _, err := execute(t, "--json", "run", "--dry-run", dir)
	require.NoError(t, err)

	var report refactor.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Scanned)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "Banner", report.Files[0].Rounds[0].Function)
	assert.False(t, report.Files[0].Written)
}

func TestRunCommand_MissingRootFails(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRunCommand_InvalidConfigFails(t *testing.T) {
	_, _, err := execute(t, "run", "--max-length=0", t.TempDir())
	assert.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "banner.go", longSrc())

	out, _, err := execute(t, "scan", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Banner")
	assert.NotContains(t, out, "Short")
	assert.Contains(t, out, "1 functions in 1 files")

	out, _, err = execute(t, "scan", "--all", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Short")

	out, _, err = execute(t, "--json", "scan", dir)
	require.NoError(t, err)
	var res cli.ScanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "Banner", res.Entries[0].Name)
	assert.True(t, res.Entries[0].Overlong)
	assert.NotNil(t, res.Entries[0].Best)
}

func TestCandidatesCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "banner.go", longSrc())

	out, _, err := execute(t, "candidates", path, "Banner")
	require.NoError(t, err)
	assert.Contains(t, out, "Helper")
	assert.Contains(t, out, "yes")

	out, _, err = execute(t, "--json", "candidates", "-n", "1", path, "Banner")
	require.NoError(t, err)
	var suggestions []refactor.Suggestion
	require.NoError(t, json.Unmarshal([]byte(out), &suggestions))
	require.Len(t, suggestions, 1)
	assert.True(t, suggestions[0].Eligible)

	_, _, err = execute(t, "candidates", path, "Missing")
	assert.Error(t, err)

	_, _, err = execute(t, "candidates", path)
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, _, err = execute(t, "config", "init", path)
	assert.Error(t, err, "existing files are kept")

	require.NoError(t, os.WriteFile(path, []byte("max_length: 40\n"), 0o644))
	out, _, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# read from "+path)
	assert.Contains(t, out, "max_length: 40\n")

	out, _, err = execute(t, "--config", path, "config", "show", "--max-length", "55")
	require.NoError(t, err)
	assert.Contains(t, out, "max_length: 55\n")

	_, _, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "max_length: 30\n")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "shortfunc version "+cli.Version+"\n", out)
}
