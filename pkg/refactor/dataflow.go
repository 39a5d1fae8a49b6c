package refactor

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
)

// flow is what a window reads and writes.
type flow struct {
	refs       []gotypes.Object // every referenced object, first reference first
	writeOrder []gotypes.Object // every variable whose value may change
	err        error

	seen    map[gotypes.Object]bool
	written map[gotypes.Object]bool
}

func (fl *flow) ref(obj gotypes.Object) {
	if !fl.seen[obj] {
		fl.seen[obj] = true
		fl.refs = append(fl.refs, obj)
	}
}

func (fl *flow) write(obj gotypes.Object) {
	if !fl.written[obj] {
		fl.written[obj] = true
		fl.writeOrder = append(fl.writeOrder, obj)
	}
}

// collectFlow walks the window, function literals included. Besides plain
// assignments it treats as writes everything that can change a variable's
// value in place: var declarations, ++/--, range assignment, taking its
// address, calling a pointer method on it and slicing it when it is an
// array.
func (a *LegalityAnalyzer) collectFlow(w window) *flow {
	fl := &flow{
		seen:    make(map[gotypes.Object]bool),
		written: make(map[gotypes.Object]bool),
	}
	info := a.fn.resolver.Info()

	for _, top := range w.stmts {
		var stack []ast.Node
		closures := 0

		write := func(e ast.Expr) {
			obj := a.rootVar(e)
			if obj == nil {
				return
			}
			if closures > 0 && a.isOuterLocal(w, obj) {
				fl.err = ErrClosureWrite
				return
			}
			fl.write(obj)
		}

		ast.Inspect(top, func(n ast.Node) bool {
			if fl.err != nil {
				return false
			}
			if n == nil {
				if _, ok := stack[len(stack)-1].(*ast.FuncLit); ok {
					closures--
				}
				stack = stack[:len(stack)-1]
				return false
			}

			switch x := n.(type) {
			case *ast.Ident:
				if obj := a.fn.resolver.ObjectOf(x); obj != nil {
					fl.ref(obj)
				}
			case *ast.FuncLit:
				closures++
			case *ast.AssignStmt:
				for _, lhs := range x.Lhs {
					write(lhs)
				}
			case *ast.IncDecStmt:
				write(x.X)
			case *ast.ValueSpec:
				for _, name := range x.Names {
					write(name)
				}
			case *ast.RangeStmt:
				if x.Tok == token.ASSIGN {
					if x.Key != nil {
						write(x.Key)
					}
					if x.Value != nil {
						write(x.Value)
					}
				}
			case *ast.UnaryExpr:
				if x.Op == token.AND {
					if obj := a.rootVar(x.X); obj != nil && a.isOuterLocal(w, obj) && !isCallArg(stack, x) {
						fl.err = ErrAddressTaken
						return false
					}
					write(x.X)
				}
			case *ast.SelectorExpr:
				if sel := info.Selections[x]; sel != nil && sel.Kind() == gotypes.MethodVal &&
					!sel.Indirect() && hasPointerRecv(sel.Obj()) && !isPointer(a.fn.resolver.TypeOf(x.X)) {
					write(x.X)
				}
			case *ast.SliceExpr:
				if t := a.fn.resolver.TypeOf(x.X); t != nil {
					if _, ok := t.Underlying().(*gotypes.Array); ok {
						write(x.X)
					}
				}
			}
			if fl.err != nil {
				return false
			}

			stack = append(stack, n)
			return true
		})
		if fl.err != nil {
			break
		}
	}
	return fl
}

// rootVar returns the variable whose storage e denotes: x, x.f and x[i]
// for struct and array values all name part of x. Anything reached through
// a pointer, slice or map names shared storage and yields nil.
func (a *LegalityAnalyzer) rootVar(e ast.Expr) *gotypes.Var {
	switch x := e.(type) {
	case *ast.Ident:
		if v, ok := a.fn.resolver.ObjectOf(x).(*gotypes.Var); ok && !v.IsField() {
			return v
		}
	case *ast.ParenExpr:
		return a.rootVar(x.X)
	case *ast.SelectorExpr:
		sel := a.fn.resolver.Info().Selections[x]
		if sel == nil || sel.Kind() != gotypes.FieldVal || sel.Indirect() {
			return nil
		}
		return a.rootVar(x.X)
	case *ast.IndexExpr:
		if t := a.fn.resolver.TypeOf(x.X); t != nil {
			if _, ok := t.Underlying().(*gotypes.Array); ok {
				return a.rootVar(x.X)
			}
		}
	}
	return nil
}

// sharedVars finds the locals that can change or be observed without being
// named: those a function literal captures and those whose address is
// taken.
func (a *LegalityAnalyzer) sharedVars() map[gotypes.Object][]ast.Node {
	shared := make(map[gotypes.Object][]ast.Node)
	add := func(obj gotypes.Object, n ast.Node) {
		nodes := shared[obj]
		if len(nodes) > 0 && nodes[len(nodes)-1] == n {
			return
		}
		shared[obj] = append(nodes, n)
	}

	ast.Inspect(a.fn.decl.Body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			ast.Inspect(x.Body, func(inner ast.Node) bool {
				id, ok := inner.(*ast.Ident)
				if !ok {
					return true
				}
				obj := a.fn.resolver.ObjectOf(id)
				if obj == nil || (obj.Pos() >= x.Pos() && obj.Pos() < x.End()) {
					return true
				}
				if a.fn.resolver.Bind(obj).IsLocalVar() {
					add(obj, x)
				}
				return true
			})
		case *ast.UnaryExpr:
			if x.Op != token.AND {
				break
			}
			if obj := a.rootVar(x.X); obj != nil && a.fn.resolver.Bind(obj).IsLocalVar() {
				add(obj, x)
			}
		}
		return true
	})
	return shared
}

// sharedOutside reports whether obj is captured or addressed somewhere the
// window does not cover. The helper would work on a copy the other party
// never sees.
func (a *LegalityAnalyzer) sharedOutside(w window, obj gotypes.Object) bool {
	for _, n := range a.shared[obj] {
		if n.Pos() < w.pos() || n.End() > w.end() {
			return true
		}
	}
	return false
}

// isOuterLocal reports whether obj is a function-local variable declared
// before the window.
func (a *LegalityAnalyzer) isOuterLocal(w window, obj gotypes.Object) bool {
	if w.contains(obj.Pos()) {
		return false
	}
	return a.fn.resolver.Bind(obj).IsLocalVar()
}

func isCallArg(stack []ast.Node, e ast.Expr) bool {
	if len(stack) == 0 {
		return false
	}
	call, ok := stack[len(stack)-1].(*ast.CallExpr)
	if !ok {
		return false
	}
	for _, arg := range call.Args {
		if arg == e {
			return true
		}
	}
	return false
}

func hasPointerRecv(obj gotypes.Object) bool {
	fn, ok := obj.(*gotypes.Func)
	if !ok {
		return false
	}
	sig, ok := fn.Type().(*gotypes.Signature)
	if !ok || sig.Recv() == nil {
		return false
	}
	return isPointer(sig.Recv().Type())
}

func isPointer(t gotypes.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Underlying().(*gotypes.Pointer)
	return ok
}
