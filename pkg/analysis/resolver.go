package analysis

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
)

// BindingKind says what kind of declaration an identifier resolves to.
type BindingKind int

const (
	// External covers everything declared outside the package: imports,
	// builtins, universe constants and functions or methods anywhere.
	External BindingKind = iota
	Param
	Receiver
	Result
	LocalVar
	ShortVar
	RangeVar
	TypeSwitchVar
	Field
	PackageLevel
	LocalConst
	LocalType
	Label
)

func (k BindingKind) String() string {
	switch k {
	case External:
		return "external"
	case Param:
		return "param"
	case Receiver:
		return "receiver"
	case Result:
		return "result"
	case LocalVar:
		return "var"
	case ShortVar:
		return "short-var"
	case RangeVar:
		return "range-var"
	case TypeSwitchVar:
		return "type-switch-var"
	case Field:
		return "field"
	case PackageLevel:
		return "package-level"
	case LocalConst:
		return "local-const"
	case LocalType:
		return "local-type"
	case Label:
		return "label"
	default:
		return "unknown"
	}
}

// Binding is the declaration an identifier resolves to. Two bindings denote
// the same variable iff their Objects are identical.
type Binding struct {
	Kind   BindingKind
	Object gotypes.Object

	// Decl is the syntax that introduces the object: *ast.Field,
	// *ast.ValueSpec, *ast.AssignStmt, *ast.RangeStmt, *ast.CaseClause,
	// *ast.TypeSpec or *ast.LabeledStmt. Nil for objects outside the function.
	Decl ast.Node

	// TypeExpr is the declared type when the source spells one out.
	TypeExpr ast.Expr

	// HasValue reports whether the declaration assigns an initial value.
	HasValue bool
}

func (b *Binding) Name() string {
	return b.Object.Name()
}

// IsLocalVar reports whether b is a variable owned by the function body or
// its signature.
func (b *Binding) IsLocalVar() bool {
	switch b.Kind {
	case Param, Receiver, Result, LocalVar, ShortVar, RangeVar, TypeSwitchVar:
		return true
	case External, Field, PackageLevel, LocalConst, LocalType, Label:
		return false
	}
	return false
}

// Resolver answers "what does this identifier refer to" for one function,
// backed by the package's type information.
type Resolver struct {
	info  *gotypes.Info
	pkg   *gotypes.Package
	local map[gotypes.Object]*Binding
}

// NewResolver indexes every declaration inside fn.
func NewResolver(info *gotypes.Info, pkg *gotypes.Package, fn *ast.FuncDecl) *Resolver {
	r := &Resolver{
		info:  info,
		pkg:   pkg,
		local: make(map[gotypes.Object]*Binding),
	}
	r.index(fn)
	return r
}

// Info exposes the underlying type information.
func (r *Resolver) Info() *gotypes.Info {
	return r.info
}

// Package returns the type-checked package, which may be nil.
func (r *Resolver) Package() *gotypes.Package {
	return r.pkg
}

// ObjectOf returns the object id defines or uses, or nil.
func (r *Resolver) ObjectOf(id *ast.Ident) gotypes.Object {
	if obj := r.info.Defs[id]; obj != nil {
		return obj
	}
	return r.info.Uses[id]
}

// TypeOf returns the type of e, or nil when the checker recorded none.
func (r *Resolver) TypeOf(e ast.Expr) gotypes.Type {
	return r.info.TypeOf(e)
}

// Resolve classifies id. It returns nil when id denotes no object, such as
// the blank identifier or an unresolved name.
func (r *Resolver) Resolve(id *ast.Ident) *Binding {
	obj := r.ObjectOf(id)
	if obj == nil {
		return nil
	}
	return r.Bind(obj)
}

// Bind classifies obj.
func (r *Resolver) Bind(obj gotypes.Object) *Binding {
	if b, ok := r.local[obj]; ok {
		return b
	}

	switch o := obj.(type) {
	case *gotypes.Var:
		if o.IsField() {
			return &Binding{Kind: Field, Object: obj}
		}
	case *gotypes.Label:
		return &Binding{Kind: Label, Object: obj}
	}

	if r.pkg != nil && obj.Pkg() == r.pkg && obj.Parent() == r.pkg.Scope() {
		return &Binding{Kind: PackageLevel, Object: obj}
	}
	return &Binding{Kind: External, Object: obj}
}

func (r *Resolver) define(id *ast.Ident, b Binding) {
	if id == nil || id.Name == "_" {
		return
	}
	obj := r.info.Defs[id]
	if obj == nil {
		return
	}
	b.Object = obj
	r.local[obj] = &b
}

func (r *Resolver) defineFields(list *ast.FieldList, kind BindingKind) {
	if list == nil {
		return
	}
	for _, field := range list.List {
		for _, name := range field.Names {
			r.define(name, Binding{Kind: kind, Decl: field, TypeExpr: field.Type, HasValue: true})
		}
	}
}

func (r *Resolver) index(fn *ast.FuncDecl) {
	r.defineFields(fn.Recv, Receiver)
	r.defineFields(fn.Type.Params, Param)
	r.defineFields(fn.Type.Results, Result)
	if fn.Body == nil {
		return
	}

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncLit:
			r.defineFields(node.Type.Params, Param)
			r.defineFields(node.Type.Results, Result)

		case *ast.GenDecl:
			for _, spec := range node.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					kind := LocalVar
					if node.Tok == token.CONST {
						kind = LocalConst
					}
					for _, name := range s.Names {
						r.define(name, Binding{Kind: kind, Decl: s, TypeExpr: s.Type, HasValue: len(s.Values) > 0})
					}
				case *ast.TypeSpec:
					r.define(s.Name, Binding{Kind: LocalType, Decl: s})
				}
			}

		case *ast.AssignStmt:
			if node.Tok == token.DEFINE {
				for _, lhs := range node.Lhs {
					if id, ok := lhs.(*ast.Ident); ok {
						r.define(id, Binding{Kind: ShortVar, Decl: node, HasValue: true})
					}
				}
			}

		case *ast.RangeStmt:
			if node.Tok == token.DEFINE {
				for _, e := range []ast.Expr{node.Key, node.Value} {
					if id, ok := e.(*ast.Ident); ok {
						r.define(id, Binding{Kind: RangeVar, Decl: node, HasValue: true})
					}
				}
			}

		case *ast.TypeSwitchStmt:
			for _, stmt := range node.Body.List {
				clause, ok := stmt.(*ast.CaseClause)
				if !ok {
					continue
				}
				obj := r.info.Implicits[clause]
				if obj == nil {
					continue
				}
				b := &Binding{Kind: TypeSwitchVar, Object: obj, Decl: clause, HasValue: true}
				if len(clause.List) == 1 {
					if id, isIdent := clause.List[0].(*ast.Ident); !isIdent || id.Name != "nil" {
						b.TypeExpr = clause.List[0]
					}
				}
				r.local[obj] = b
			}

		case *ast.LabeledStmt:
			r.define(node.Label, Binding{Kind: Label, Decl: node})
		}
		return true
	})
}
