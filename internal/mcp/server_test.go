package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/shortfunc/pkg/config"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

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

func setup(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "banner.go"), []byte(longSrc()), 0o644))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(root, config.Default(), logger), root
}

func call(args map[string]any) mcpsdk.CallToolRequest {
	var req mcpsdk.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decode(t *testing.T, res *mcpsdk.CallToolResult, v any) {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcpsdk.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	require.False(t, res.IsError, tc.Text)
	require.NoError(t, json.Unmarshal([]byte(tc.Text), v), tc.Text)
}

func TestFindLongFunctions(t *testing.T) {
	s, root := setup(t)

	res, err := s.handleFindLongFunctions(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	var found []LongFunction
	decode(t, res, &found)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(root, "banner.go"), found[0].Path)
	assert.Equal(t, "Banner", found[0].Name)
	assert.Greater(t, found[0].Eligible, 0)

	res, err = s.handleFindLongFunctions(context.Background(), call(map[string]any{"path": "banner.go", "all": true}))
	require.NoError(t, err)
	decode(t, res, &found)
	assert.Len(t, found, 2)
}

func TestListCandidates(t *testing.T) {
	s, _ := setup(t)

	res, err := s.handleListCandidates(context.Background(), call(map[string]any{
		"file":     "banner.go",
		"function": "Banner",
		"limit":    float64(2),
	}))
	require.NoError(t, err)
	var suggestions []refactor.Suggestion
	decode(t, res, &suggestions)
	assert.Len(t, suggestions, 2)
	assert.True(t, suggestions[0].Eligible)

	res, err = s.handleListCandidates(context.Background(), call(map[string]any{"file": "banner.go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleListCandidates(context.Background(), call(map[string]any{"file": "banner.go", "function": "Nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRefactorFile(t *testing.T) {
	s, root := setup(t)
	path := filepath.Join(root, "banner.go")

	res, err := s.handleRefactorFile(context.Background(), call(map[string]any{"file": "banner.go", "dry_run": true}))
	require.NoError(t, err)
	type fileResult struct {
		Rounds  []refactor.Round `json:"rounds"`
		Written bool             `json:"written"`
		Diff    string           `json:"diff"`
	}
	var preview fileResult
	decode(t, res, &preview)
	assert.NotEmpty(t, preview.Rounds)
	assert.False(t, preview.Written)
	assert.Contains(t, preview.Diff, "+++ b/"+path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, longSrc(), string(content))

	res, err = s.handleRefactorFile(context.Background(), call(map[string]any{"file": path}))
	require.NoError(t, err)
	var written fileResult
	decode(t, res, &written)
	assert.True(t, written.Written)
	assert.Empty(t, written.Diff)

	res, err = s.handleRefactorFile(context.Background(), call(map[string]any{"file": "missing.go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRefactorTree(t *testing.T) {
	s, root := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bad"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad", "bad.go"), []byte("package bad\n\nfunc {\n"), 0o644))

	res, err := s.handleRefactorTree(context.Background(), call(map[string]any{"dry_run": true}))
	require.NoError(t, err)
	var tree struct {
		Files    []refactor.FileResult `json:"files"`
		Failures []struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		} `json:"failures"`
		Scanned int               `json:"scanned"`
		Diffs   map[string]string `json:"diffs"`
	}
	decode(t, res, &tree)
	assert.Equal(t, 2, tree.Scanned)
	require.Len(t, tree.Failures, 1)
	assert.Equal(t, filepath.Join(root, "bad", "bad.go"), tree.Failures[0].Path)
	assert.NotEmpty(t, tree.Failures[0].Error)
	assert.Contains(t, tree.Diffs, filepath.Join(root, "banner.go"))
}

func TestToolsStayInsideWorkspace(t *testing.T) {
	s, _ := setup(t)
	outside := t.TempDir()
	victim := filepath.Join(outside, "banner.go")
	require.NoError(t, os.WriteFile(victim, []byte(longSrc()), 0o644))

	rel, err := filepath.Rel(s.root, victim)
	require.NoError(t, err)

	for _, file := range []string{victim, rel} {
		res, err := s.handleRefactorFile(context.Background(), call(map[string]any{"file": file}))
		require.NoError(t, err)
		assert.True(t, res.IsError, file)
	}

	res, err := s.handleRefactorTree(context.Background(), call(map[string]any{"path": outside}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleFindLongFunctions(context.Background(), call(map[string]any{"path": ".."}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleListCandidates(context.Background(), call(map[string]any{"file": rel, "function": "Banner"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	content, err := os.ReadFile(victim)
	require.NoError(t, err)
	assert.Equal(t, longSrc(), string(content))
}
