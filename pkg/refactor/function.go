package refactor

import (
	"go/ast"
	"go/token"
	gotypes "go/types"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/stmttree"
	"github.com/mamaar/shortfunc/pkg/types"
)

// function bundles one FuncDecl with everything the search needs: its
// statement tree, the resolver and its measured size.
type function struct {
	file     *types.File
	decl     *ast.FuncDecl
	resolver *analysis.Resolver
	tree     *stmttree.Tree
	metrics  analysis.FuncMetrics

	// recvName is the receiver name when helpers become methods, else "".
	recvName string

	// results holds the objects of the named results of decl.
	results map[gotypes.Object]bool

	// typeParams lists the type parameter names of a generic function.
	typeParams []string
}

// newFunction prepares decl for the candidate search. metrics is the
// measured size of decl.
func newFunction(file *types.File, decl *ast.FuncDecl, metrics analysis.FuncMetrics) (*function, error) {
	if decl.Body == nil {
		return nil, types.Errorf(types.InvalidOperation, "function %s has no body", decl.Name.Name)
	}

	pkg := file.Package
	fn := &function{
		file:     file,
		decl:     decl,
		resolver: analysis.NewResolver(pkg.TypesInfo, pkg.TypesPkg, decl),
		tree:     stmttree.Build(decl.Body),
		metrics:  metrics,
		results:  make(map[gotypes.Object]bool),
	}

	if decl.Recv != nil && len(decl.Recv.List) == 1 {
		if names := decl.Recv.List[0].Names; len(names) == 1 && names[0].Name != "_" {
			fn.recvName = names[0].Name
		}
	}
	if decl.Type.Results != nil {
		for _, field := range decl.Type.Results.List {
			for _, name := range field.Names {
				if obj := pkg.TypesInfo.Defs[name]; obj != nil {
					fn.results[obj] = true
				}
			}
		}
	}
	if decl.Type.TypeParams != nil {
		for _, field := range decl.Type.TypeParams.List {
			for _, name := range field.Names {
				fn.typeParams = append(fn.typeParams, name.Name)
			}
		}
	}

	return fn, nil
}

// Name returns the function name, qualified by its receiver type.
func (f *function) Name() string {
	return funcName(f.decl)
}

func funcName(decl *ast.FuncDecl) string {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return decl.Name.Name
	}
	return recvTypeName(decl.Recv.List[0].Type) + "." + decl.Name.Name
}

// recvTypeName strips pointers and type arguments from a receiver type.
func recvTypeName(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return recvTypeName(t.X)
	case *ast.ParenExpr:
		return recvTypeName(t.X)
	case *ast.IndexExpr:
		return recvTypeName(t.X)
	case *ast.IndexListExpr:
		return recvTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// hasNamedResults reports whether decl declares named results.
func (f *function) hasNamedResults() bool {
	results := f.decl.Type.Results
	return results != nil && len(results.List) > 0 && len(results.List[0].Names) > 0
}

// isMethodHelper reports whether extracted helpers get the receiver.
func (f *function) isMethodHelper() bool {
	return f.recvName != ""
}

// source returns the text of decl from the func keyword to its closing
// brace. Doc comments are not part of it.
func (f *function) source() string {
	return f.file.Text(f.decl.Pos(), f.decl.End())
}

// text returns the file text between two positions.
func (f *function) text(from, to token.Pos) string {
	return f.file.Text(from, to)
}

// offset is the byte offset of pos inside the file.
func (f *function) offset(pos token.Pos) int {
	return f.file.Offset(pos)
}

// loopsAround returns the for and range statements enclosing h, innermost
// first.
func (f *function) loopsAround(h stmttree.Handle) []ast.Stmt {
	var loops []ast.Stmt
	f.tree.Ancestors(h, func(a stmttree.Handle) bool {
		if s := f.tree.Stmt(a); isLoop(s) {
			loops = append(loops, s)
		}
		return true
	})
	return loops
}

func isLoop(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.ForStmt, *ast.RangeStmt:
		return true
	}
	return false
}
