package refactor

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	gotypes "go/types"

	"golang.org/x/tools/go/types/typeutil"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/stmttree"
)

// Reasons a window is rejected. They are reported at debug level only.
var (
	ErrWholeBody       = errors.New("window is the whole function body")
	ErrInnerReturn     = errors.New("return before the end of the window")
	ErrCaseClause      = errors.New("window spans case clauses")
	ErrEscapingBranch  = errors.New("break or continue targets a statement outside the window")
	ErrFrameBound      = errors.New("window uses defer or recover")
	ErrCrossingJump    = errors.New("goto or fallthrough crosses the window boundary")
	ErrBareNamedReturn = errors.New("bare return in a function with named results")
	ErrLocalDecl       = errors.New("window refers to a function-local constant or type")
	ErrUnwritableType  = errors.New("type cannot be written outside the function")
	ErrCopyUnsafe      = errors.New("value holds a lock and cannot be copied")
	ErrAddressTaken    = errors.New("address of an outer variable escapes the window")
	ErrClosureWrite    = errors.New("closure assigns an outer variable")
	ErrSharedVar       = errors.New("outer variable is shared with a closure or pointer outside the window")
	ErrParamShadow     = errors.New("declaration collides with a helper parameter")
	ErrOnlyReturn      = errors.New("window holds nothing but a bare return")
	ErrUninitialized   = errors.New("parameter might not have been initialized")
	ErrTooManyOutputs  = errors.New("too many values to return")
)

// window is a contiguous run of statements of one statement list.
type window struct {
	list  stmttree.Handle
	first int
	last  int
	stmts []ast.Stmt
	next  []ast.Stmt
}

func (w window) pos() token.Pos { return w.stmts[0].Pos() }
func (w window) end() token.Pos { return w.stmts[len(w.stmts)-1].End() }

func (w window) contains(p token.Pos) bool {
	return p >= w.pos() && p < w.end()
}

// Candidate is a window that can be moved into a helper.
type Candidate struct {
	Path  []int
	First int
	Last  int
	Stmts []ast.Stmt

	// Params are the outer variables the window reads or writes, in order
	// of first reference.
	Params []*analysis.Binding

	// Output is the single variable written in the window and read after
	// it, or nil.
	Output *analysis.Binding
	// OutputDeclared is set when Output is declared inside the window.
	OutputDeclared bool

	// EndsInReturn is set when the last statement returns values.
	EndsInReturn bool
	// KeepsReturn is set when the last statement is a bare return that
	// stays behind in the remainder.
	KeepsReturn bool
}

// LegalityAnalyzer decides whether a window can be extracted without
// changing behavior and computes its parameters and output.
type LegalityAnalyzer struct {
	fn   *function
	opts Options

	// shared maps locals captured by a function literal or whose address
	// is taken to the literals and & expressions that share them.
	shared map[gotypes.Object][]ast.Node
}

func newLegalityAnalyzer(fn *function, opts Options) *LegalityAnalyzer {
	a := &LegalityAnalyzer{fn: fn, opts: opts}
	a.shared = a.sharedVars()
	return a
}

// Analyze returns the candidate for w or the reason it was rejected.
func (a *LegalityAnalyzer) Analyze(w window) (*Candidate, error) {
	if w.list == a.fn.tree.Root() && w.first == 0 && w.last == len(a.fn.decl.Body.List)-1 {
		return nil, ErrWholeBody
	}
	for _, s := range w.stmts {
		switch s.(type) {
		case *ast.CaseClause, *ast.CommClause:
			return nil, ErrCaseClause
		}
	}

	if err := a.checkControlFlow(w); err != nil {
		return nil, err
	}

	c := &Candidate{
		Path:  a.fn.tree.Path(w.list),
		First: w.first,
		Last:  w.last,
		Stmts: w.stmts,
	}
	if ret, ok := w.stmts[len(w.stmts)-1].(*ast.ReturnStmt); ok {
		if len(ret.Results) > 0 {
			c.EndsInReturn = true
		} else {
			if a.fn.hasNamedResults() {
				return nil, ErrBareNamedReturn
			}
			if len(w.stmts) == 1 {
				return nil, ErrOnlyReturn
			}
			c.KeepsReturn = true
		}
	}

	fl := a.collectFlow(w)
	if fl.err != nil {
		return nil, fl.err
	}

	params, err := a.parameters(w, fl)
	if err != nil {
		return nil, err
	}
	c.Params = params

	if err := a.checkShadowing(w, params); err != nil {
		return nil, err
	}
	if err := a.checkLocalDecls(w); err != nil {
		return nil, err
	}

	if c.EndsInReturn || c.KeepsReturn {
		return c, nil
	}

	out, err := a.output(w, fl)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := a.checkType(out.Object.Type()); err != nil {
			return nil, fmt.Errorf("output %s: %w", out.Name(), err)
		}
		c.Output = out
		c.OutputDeclared = w.contains(out.Object.Pos())
	}
	return c, nil
}

// checkControlFlow rejects windows with returns before their end, jumps
// whose targets are on the other side of the window boundary, and
// statements bound to the enclosing call frame.
func (a *LegalityAnalyzer) checkControlFlow(w window) error {
	info := a.fn.resolver.Info()
	last := w.stmts[len(w.stmts)-1]

	for _, top := range w.stmts {
		var (
			stack []ast.Node
			err   error
		)
		ast.Inspect(top, func(n ast.Node) bool {
			if err != nil {
				return false
			}
			if n == nil {
				stack = stack[:len(stack)-1]
				return false
			}
			switch s := n.(type) {
			case *ast.FuncLit:
				return false
			case *ast.ReturnStmt:
				if s != last {
					err = ErrInnerReturn
				}
			case *ast.DeferStmt:
				err = ErrFrameBound
			case *ast.CallExpr:
				if a.isRecover(s) {
					err = ErrFrameBound
				}
			case *ast.BranchStmt:
				err = a.checkBranch(w, s, stack)
			}
			if err != nil {
				return false
			}
			stack = append(stack, n)
			return true
		})
		if err != nil {
			return err
		}
	}

	var err error
	ast.Inspect(a.fn.decl.Body, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		br, ok := n.(*ast.BranchStmt)
		if !ok || br.Tok != token.GOTO || w.contains(br.Pos()) || br.Label == nil {
			return true
		}
		if obj := info.Uses[br.Label]; obj != nil && w.contains(obj.Pos()) {
			err = ErrCrossingJump
		}
		return true
	})
	return err
}

func (a *LegalityAnalyzer) checkBranch(w window, br *ast.BranchStmt, stack []ast.Node) error {
	switch br.Tok {
	case token.GOTO:
		obj := a.fn.resolver.Info().Uses[br.Label]
		if obj == nil || !w.contains(obj.Pos()) {
			return ErrCrossingJump
		}
		return nil

	case token.FALLTHROUGH:
		for i := len(stack) - 1; i >= 0; i-- {
			if _, ok := stack[i].(*ast.CaseClause); ok {
				return nil
			}
		}
		return ErrCrossingJump

	case token.BREAK, token.CONTINUE:
		for i := len(stack) - 1; i >= 0; i-- {
			if breakTarget(br, stack[i]) {
				return nil
			}
		}
		return ErrEscapingBranch
	}
	return nil
}

// breakTarget reports whether n is the statement br transfers control to.
func breakTarget(br *ast.BranchStmt, n ast.Node) bool {
	if br.Label != nil {
		l, ok := n.(*ast.LabeledStmt)
		return ok && l.Label.Name == br.Label.Name
	}
	switch n.(type) {
	case *ast.ForStmt, *ast.RangeStmt:
		return true
	case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
		return br.Tok == token.BREAK
	}
	return false
}

func (a *LegalityAnalyzer) isRecover(call *ast.CallExpr) bool {
	if b, ok := typeutil.Callee(a.fn.resolver.Info(), call).(*gotypes.Builtin); ok {
		return b.Name() == "recover"
	}
	// unresolved calls are judged by spelling
	id, ok := ast.Unparen(call.Fun).(*ast.Ident)
	return ok && id.Name == "recover" && a.fn.resolver.ObjectOf(id) == nil
}

// parameters returns the outer local variables referenced in the window.
func (a *LegalityAnalyzer) parameters(w window, fl *flow) ([]*analysis.Binding, error) {
	var params []*analysis.Binding
	byName := make(map[string]gotypes.Object)

	for _, obj := range fl.refs {
		if w.contains(obj.Pos()) {
			continue
		}
		b := a.fn.resolver.Bind(obj)
		switch b.Kind {
		case analysis.LocalConst, analysis.LocalType:
			return nil, fmt.Errorf("%w: %s", ErrLocalDecl, obj.Name())
		case analysis.Receiver:
			if a.fn.isMethodHelper() {
				continue
			}
		}
		if !b.IsLocalVar() {
			continue
		}
		if a.sharedOutside(w, obj) {
			return nil, fmt.Errorf("%w: %s", ErrSharedVar, obj.Name())
		}
		if prev, ok := byName[obj.Name()]; ok && prev != obj {
			return nil, fmt.Errorf("%w: %s", ErrParamShadow, obj.Name())
		}
		byName[obj.Name()] = obj

		if a.opts.StrictInit && b.Kind == analysis.LocalVar && !b.HasValue {
			return nil, fmt.Errorf("%w: %s", ErrUninitialized, obj.Name())
		}
		if err := a.checkType(obj.Type()); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", obj.Name(), err)
		}
		params = append(params, b)
	}
	return params, nil
}

// checkShadowing rejects windows that declare, at their top level, a name
// that the helper already binds in its outermost scope.
func (a *LegalityAnalyzer) checkShadowing(w window, params []*analysis.Binding) error {
	taken := make(map[string]bool)
	for _, p := range params {
		taken[p.Name()] = true
	}
	if a.fn.isMethodHelper() {
		taken[a.fn.recvName] = true
	}
	for _, tp := range a.fn.typeParams {
		taken[tp] = true
	}

	for _, name := range a.topLevelNames(w.stmts) {
		if taken[name] {
			return fmt.Errorf("%w: %s", ErrParamShadow, name)
		}
	}
	return nil
}

// checkLocalDecls rejects windows declaring a constant or type at their top
// level that the statements after the window still use.
func (a *LegalityAnalyzer) checkLocalDecls(w window) error {
	info := a.fn.resolver.Info()
	for _, s := range w.stmts {
		decl, ok := s.(*ast.DeclStmt)
		if !ok {
			continue
		}
		gen, ok := decl.Decl.(*ast.GenDecl)
		if !ok || gen.Tok == token.VAR {
			continue
		}
		for _, spec := range gen.Specs {
			var names []*ast.Ident
			switch sp := spec.(type) {
			case *ast.ValueSpec:
				names = sp.Names
			case *ast.TypeSpec:
				names = []*ast.Ident{sp.Name}
			}
			for _, name := range names {
				obj := info.Defs[name]
				if obj == nil {
					continue
				}
				for _, next := range w.next {
					if a.references(next, obj) {
						return fmt.Errorf("%w: %s is used after the window", ErrLocalDecl, name.Name)
					}
				}
			}
		}
	}
	return nil
}

// topLevelNames lists the names declared directly in stmts. Variables a
// short declaration merely reassigns are not declarations.
func (a *LegalityAnalyzer) topLevelNames(stmts []ast.Stmt) []string {
	info := a.fn.resolver.Info()
	var names []string
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.DeclStmt:
			gen, ok := st.Decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gen.Specs {
				switch sp := spec.(type) {
				case *ast.ValueSpec:
					for _, n := range sp.Names {
						names = append(names, n.Name)
					}
				case *ast.TypeSpec:
					names = append(names, sp.Name.Name)
				}
			}
		case *ast.AssignStmt:
			if st.Tok != token.DEFINE {
				continue
			}
			for _, lhs := range st.Lhs {
				if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" && info.Defs[id] != nil {
					names = append(names, id.Name)
				}
			}
		}
	}
	return names
}

// output finds the single variable the window hands back to the remainder.
func (a *LegalityAnalyzer) output(w window, fl *flow) (*analysis.Binding, error) {
	loops := a.fn.loopsAround(w.list)

	var out *analysis.Binding
	for _, obj := range fl.writeOrder {
		b := a.fn.resolver.Bind(obj)
		if !b.IsLocalVar() {
			continue
		}
		if !a.liveAfter(obj, w, loops) {
			continue
		}
		if out != nil && out.Object != obj {
			return nil, fmt.Errorf("%w: %s and %s", ErrTooManyOutputs, out.Name(), obj.Name())
		}
		out = b
	}
	return out, nil
}

// liveAfter reports whether obj may be read once the window has run: named
// results are always observable by the caller, other variables count when
// the statements after the window reference them or, for variables
// declared outside an enclosing loop, when the loop references them at all.
func (a *LegalityAnalyzer) liveAfter(obj gotypes.Object, w window, loops []ast.Stmt) bool {
	if a.fn.results[obj] {
		return true
	}
	for _, s := range w.next {
		if a.references(s, obj) {
			return true
		}
	}
	for _, loop := range loops {
		if obj.Pos() >= loop.Pos() && obj.Pos() < loop.End() {
			continue
		}
		if a.references(loop, obj) {
			return true
		}
	}
	return false
}

func (a *LegalityAnalyzer) references(n ast.Node, obj gotypes.Object) bool {
	found := false
	ast.Inspect(n, func(node ast.Node) bool {
		if found {
			return false
		}
		if id, ok := node.(*ast.Ident); ok && a.fn.resolver.ObjectOf(id) == obj {
			found = true
		}
		return !found
	})
	return found
}
