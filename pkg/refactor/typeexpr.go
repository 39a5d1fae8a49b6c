package refactor

import (
	"fmt"
	"go/ast"
	gotypes "go/types"
	"strconv"

	"github.com/mamaar/shortfunc/pkg/analysis"
)

// checkType rejects types the helper signature cannot spell: types declared
// inside a function, types of packages the file does not import, unexported
// types of other packages, and anything the checker could not resolve. It
// also rejects values that embed a lock, since passing or returning them
// copies the lock.
func (a *LegalityAnalyzer) checkType(t gotypes.Type) error {
	q := newQualifier(a.fn)
	if err := q.writable(t, make(map[gotypes.Type]bool)); err != nil {
		return err
	}
	if holdsLock(t, make(map[gotypes.Type]bool)) {
		return ErrCopyUnsafe
	}
	return nil
}

// qualifier names packages the way the file being edited imports them.
type qualifier struct {
	self    *gotypes.Package
	imports map[string]string // import path -> local name

	// typeParams is set when the helper can name the type parameters in
	// scope, through its own type parameter list or the receiver.
	typeParams bool
}

func newQualifier(fn *function) *qualifier {
	q := &qualifier{
		self:       fn.resolver.Package(),
		imports:    make(map[string]string),
		typeParams: fn.isMethodHelper() || len(fn.typeParams) > 0,
	}
	info := fn.resolver.Info()
	for _, spec := range fn.file.AST.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		var obj gotypes.Object
		if spec.Name != nil {
			obj = info.Defs[spec.Name]
		} else {
			obj = info.Implicits[spec]
		}
		switch {
		case spec.Name != nil && spec.Name.Name == ".":
			q.imports[path] = ""
		case spec.Name != nil && spec.Name.Name == "_":
		case obj != nil:
			q.imports[path] = obj.Name()
		case spec.Name != nil:
			q.imports[path] = spec.Name.Name
		}
	}
	return q
}

// name implements gotypes.Qualifier.
func (q *qualifier) name(p *gotypes.Package) string {
	if p == q.self {
		return ""
	}
	if n, ok := q.imports[p.Path()]; ok {
		return n
	}
	return p.Name()
}

func (q *qualifier) writable(t gotypes.Type, seen map[gotypes.Type]bool) error {
	if t == nil {
		return ErrUnwritableType
	}
	if seen[t] {
		return nil
	}
	seen[t] = true

	switch tt := t.(type) {
	case *gotypes.Basic:
		if tt.Kind() == gotypes.Invalid || tt.Info()&gotypes.IsUntyped != 0 {
			return fmt.Errorf("%w: %s", ErrUnwritableType, tt)
		}
	case *gotypes.Pointer:
		return q.writable(tt.Elem(), seen)
	case *gotypes.Slice:
		return q.writable(tt.Elem(), seen)
	case *gotypes.Array:
		return q.writable(tt.Elem(), seen)
	case *gotypes.Chan:
		return q.writable(tt.Elem(), seen)
	case *gotypes.Map:
		if err := q.writable(tt.Key(), seen); err != nil {
			return err
		}
		return q.writable(tt.Elem(), seen)
	case *gotypes.Signature:
		for _, tuple := range []*gotypes.Tuple{tt.Params(), tt.Results()} {
			for i := 0; i < tuple.Len(); i++ {
				if err := q.writable(tuple.At(i).Type(), seen); err != nil {
					return err
				}
			}
		}
	case *gotypes.Struct:
		for i := 0; i < tt.NumFields(); i++ {
			if err := q.writable(tt.Field(i).Type(), seen); err != nil {
				return err
			}
		}
	case *gotypes.Interface:
		for i := 0; i < tt.NumExplicitMethods(); i++ {
			if err := q.writable(tt.ExplicitMethod(i).Type(), seen); err != nil {
				return err
			}
		}
	case *gotypes.Alias:
		return q.writable(gotypes.Unalias(tt), seen)
	case *gotypes.Named:
		obj := tt.Obj()
		if pkg := obj.Pkg(); pkg != nil {
			if obj.Parent() != pkg.Scope() {
				return fmt.Errorf("%w: %s is declared inside a function", ErrUnwritableType, obj.Name())
			}
			if pkg != q.self {
				if !obj.Exported() {
					return fmt.Errorf("%w: %s is unexported", ErrUnwritableType, obj.Name())
				}
				if _, ok := q.imports[pkg.Path()]; !ok {
					return fmt.Errorf("%w: %s is not imported", ErrUnwritableType, pkg.Path())
				}
			}
		}
		if args := tt.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				if err := q.writable(args.At(i), seen); err != nil {
					return err
				}
			}
		}
	case *gotypes.TypeParam:
		if !q.typeParams {
			return fmt.Errorf("%w: type parameter %s", ErrUnwritableType, tt)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnwritableType, t)
	}
	return nil
}

// holdsLock reports whether copying a value of type t copies a value from
// package sync or sync/atomic.
func holdsLock(t gotypes.Type, seen map[gotypes.Type]bool) bool {
	if t == nil || seen[t] {
		return false
	}
	seen[t] = true

	switch tt := gotypes.Unalias(t).(type) {
	case *gotypes.Named:
		if pkg := tt.Obj().Pkg(); pkg != nil && (pkg.Path() == "sync" || pkg.Path() == "sync/atomic") {
			return true
		}
		return holdsLock(tt.Underlying(), seen)
	case *gotypes.Struct:
		for i := 0; i < tt.NumFields(); i++ {
			if holdsLock(tt.Field(i).Type(), seen) {
				return true
			}
		}
	case *gotypes.Array:
		return holdsLock(tt.Elem(), seen)
	}
	return false
}

// typeText renders the type of b for a helper signature. The declared type
// expression is reused when the source spells one out, so aliases and
// qualifiers read as the author wrote them.
func (s *MethodSynthesizer) typeText(b *analysis.Binding) string {
	if b.TypeExpr != nil {
		if ell, ok := b.TypeExpr.(*ast.Ellipsis); ok {
			return "[]" + s.fn.text(ell.Elt.Pos(), ell.Elt.End())
		}
		return s.fn.text(b.TypeExpr.Pos(), b.TypeExpr.End())
	}
	return gotypes.TypeString(b.Object.Type(), newQualifier(s.fn).name)
}
