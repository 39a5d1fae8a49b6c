package analysis

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strings"

	"github.com/mamaar/shortfunc/pkg/types"
)

// FuncMetrics are the size and shape measurements used to score an
// extraction: printed line count, deepest block nesting and nesting area.
type FuncMetrics struct {
	Lines int
	Depth int
	Area  int
}

// Depth returns the maximum number of nested *ast.BlockStmt on any path
// from n downwards, counting n itself when it is a block. Function literal
// bodies are blocks too.
func Depth(n ast.Node) int {
	if n == nil {
		return 0
	}
	var (
		stack   []bool
		cur     int
		deepest int
	)
	ast.Inspect(n, func(node ast.Node) bool {
		if node == nil {
			if stack[len(stack)-1] {
				cur--
			}
			stack = stack[:len(stack)-1]
			return false
		}
		_, isBlock := node.(*ast.BlockStmt)
		if isBlock {
			cur++
			if cur > deepest {
				deepest = cur
			}
		}
		stack = append(stack, isBlock)
		return true
	})
	return deepest
}

// Area sums the nesting depth of every top-level statement of body.
func Area(body *ast.BlockStmt) int {
	if body == nil {
		return 0
	}
	area := 0
	for _, stmt := range body.List {
		area += Depth(stmt)
	}
	return area
}

// MeasureDecl computes metrics for an already parsed function whose line
// positions come from fset.
func MeasureDecl(fset *token.FileSet, fn *ast.FuncDecl) FuncMetrics {
	return FuncMetrics{
		Lines: fset.Position(fn.End()).Line - fset.Position(fn.Pos()).Line + 1,
		Depth: Depth(fn),
		Area:  Area(fn.Body),
	}
}

// MeasureFunc formats the source text of a single function declaration and
// measures its printed form.
func MeasureFunc(text string) (FuncMetrics, error) {
	src := "package p\n\n" + text + "\n"
	formatted, err := format.Source([]byte(src))
	if err != nil {
		return FuncMetrics{}, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("function text does not format: %v", err),
			Cause:   err,
		}
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", formatted, parser.SkipObjectResolution)
	if err != nil {
		return FuncMetrics{}, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("formatted function does not parse: %v", err),
			Cause:   err,
		}
	}

	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			return MeasureDecl(fset, fn), nil
		}
	}
	return FuncMetrics{}, types.Errorf(types.ParseError, "no function in %q", firstLine(text))
}

// FormatNode prints n with gofmt settings.
func FormatNode(fset *token.FileSet, n any) (string, error) {
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
