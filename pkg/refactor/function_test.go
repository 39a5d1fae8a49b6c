package refactor

import (
	"go/ast"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/stmttree"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// loadFunc writes src into a fresh package directory and prepares the
// function called name (plain or Type.Method) for analysis.
func loadFunc(t *testing.T, src, name string) *function {
	t.Helper()
	path := writeSource(t, t.TempDir(), "src.go", src)
	_, file, err := analysis.NewParser(testLogger()).LoadPackage(path, []byte(src))
	require.NoError(t, err)

	for _, decl := range file.AST.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || funcName(fd) != name {
			continue
		}
		metrics, err := analysis.MeasureFunc(file.Text(fd.Pos(), fd.End()))
		require.NoError(t, err)
		fn, err := newFunction(file, fd, metrics)
		require.NoError(t, err)
		return fn
	}
	t.Fatalf("function %s not found", name)
	return nil
}

// windowOf builds the window [first, last] of the statement list reached by
// following path from the body, with the same follow-up statements the
// enumerator would compute.
func windowOf(t *testing.T, fn *function, path []int, first, last int) window {
	t.Helper()
	tree := fn.tree
	h := tree.Root()
	for _, i := range path {
		require.Less(t, i, len(tree.Node(h).Children))
		h = tree.Node(h).Children[i]
	}
	require.True(t, tree.IsList(h), "path %v does not lead to a statement list", path)

	stmts := tree.ChildStmts(h)
	next := concat(stmts[last+1:], nil)
	for cur := h; tree.Parent(cur) != stmttree.None; cur = tree.Parent(cur) {
		parent := tree.Parent(cur)
		next = concat(next, following(tree.Stmt(parent), tree.ChildStmts(parent), tree.Node(cur).Index, nil))
	}
	return window{list: h, first: first, last: last, stmts: stmts[first : last+1], next: next}
}

func analyze(t *testing.T, fn *function, path []int, first, last int) (*Candidate, error) {
	t.Helper()
	return newLegalityAnalyzer(fn, DefaultOptions()).Analyze(windowOf(t, fn, path, first, last))
}

func paramNames(c *Candidate) []string {
	names := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		names = append(names, p.Name())
	}
	return names
}

func TestNewFunction(t *testing.T) {
	fn := loadFunc(t, `package p

type List[T any] struct{ items []T }

func (l *List[T]) Push(v T) (n int) {
	l.items = append(l.items, v)
	n = len(l.items)
	return n
}
`, "List.Push")

	assert.Equal(t, "List.Push", fn.Name())
	assert.Equal(t, "l", fn.recvName)
	assert.True(t, fn.isMethodHelper())
	assert.True(t, fn.hasNamedResults())
	assert.Len(t, fn.results, 1)
	assert.Empty(t, fn.typeParams)
	assert.Equal(t, 5, fn.metrics.Lines)
}

func TestNewFunctionUnnamedReceiver(t *testing.T) {
	fn := loadFunc(t, `package p

type T struct{}

func (T) Name() string { return "t" }
`, "T.Name")

	assert.False(t, fn.isMethodHelper())
	assert.False(t, fn.hasNamedResults())
}

func TestLoopsAround(t *testing.T) {
	fn := loadFunc(t, `package p

func f(rows [][]int) int {
	sum := 0
	for _, row := range rows {
		for i := 0; i < len(row); i++ {
			sum += row[i]
		}
	}
	return sum
}
`, "f")

	// body -> range -> range body -> for -> for body
	inner := fn.tree.Node(fn.tree.Node(fn.tree.Node(fn.tree.Node(fn.tree.Root()).Children[1]).Children[0]).Children[0]).Children[0]
	loops := fn.loopsAround(inner)
	require.Len(t, loops, 2)
	assert.IsType(t, &ast.ForStmt{}, loops[0])
	assert.IsType(t, &ast.RangeStmt{}, loops[1])
	assert.Empty(t, fn.loopsAround(fn.tree.Root()))
}
