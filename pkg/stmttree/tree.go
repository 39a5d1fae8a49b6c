// Package stmttree holds a function body as an arena of statement nodes
// addressed by Handle. Every node knows its parent.
package stmttree

import "go/ast"

// Handle addresses a node inside one Tree.
type Handle int

// None is the parent of the root.
const None Handle = -1

// Node is one statement of the function body.
type Node struct {
	Stmt     ast.Stmt
	Parent   Handle
	Index    int // position among the parent's children
	Children []Handle
}

// Tree is the statement arena of one function body. It is rebuilt from a
// fresh parse after every rewrite and never mutated afterwards.
type Tree struct {
	nodes  []Node
	lookup map[ast.Stmt]Handle
}

// Build indexes body and every statement reachable through statement
// children. Function literals are expressions and are not entered.
func Build(body *ast.BlockStmt) *Tree {
	t := &Tree{lookup: make(map[ast.Stmt]Handle)}
	t.add(body, None, 0)
	return t
}

func (t *Tree) add(stmt ast.Stmt, parent Handle, index int) Handle {
	h := Handle(len(t.nodes))
	t.nodes = append(t.nodes, Node{Stmt: stmt, Parent: parent, Index: index})
	t.lookup[stmt] = h

	kids := Children(stmt)
	handles := make([]Handle, 0, len(kids))
	for i, kid := range kids {
		handles = append(handles, t.add(kid, h, i))
	}
	t.nodes[h].Children = handles
	return h
}

// Children returns the statement children of stmt.
func Children(stmt ast.Stmt) []ast.Stmt {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		return s.List
	case *ast.IfStmt:
		if s.Else != nil {
			return []ast.Stmt{s.Body, s.Else}
		}
		return []ast.Stmt{s.Body}
	case *ast.ForStmt:
		return []ast.Stmt{s.Body}
	case *ast.RangeStmt:
		return []ast.Stmt{s.Body}
	case *ast.SwitchStmt:
		return []ast.Stmt{s.Body}
	case *ast.TypeSwitchStmt:
		return []ast.Stmt{s.Body}
	case *ast.SelectStmt:
		return []ast.Stmt{s.Body}
	case *ast.CaseClause:
		return s.Body
	case *ast.CommClause:
		return s.Body
	case *ast.LabeledStmt:
		return []ast.Stmt{s.Stmt}
	}
	return nil
}

// Root returns the handle of the function body.
func (t *Tree) Root() Handle {
	return 0
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node behind h.
func (t *Tree) Node(h Handle) *Node {
	return &t.nodes[h]
}

// Stmt returns the statement behind h.
func (t *Tree) Stmt(h Handle) ast.Stmt {
	return t.nodes[h].Stmt
}

// Parent returns the parent handle of h, or None for the root.
func (t *Tree) Parent(h Handle) Handle {
	return t.nodes[h].Parent
}

// Lookup finds the handle of stmt.
func (t *Tree) Lookup(stmt ast.Stmt) (Handle, bool) {
	h, ok := t.lookup[stmt]
	return h, ok
}

// IsList reports whether the children of h form a real statement list that
// contiguous windows can be cut from. The children of an if, a loop, a
// switch or a label are alternative paths, not a sequence.
func (t *Tree) IsList(h Handle) bool {
	switch t.nodes[h].Stmt.(type) {
	case *ast.BlockStmt, *ast.CaseClause, *ast.CommClause:
		return true
	}
	return false
}

// ChildStmts returns the statements of h's children in order.
func (t *Tree) ChildStmts(h Handle) []ast.Stmt {
	kids := t.nodes[h].Children
	out := make([]ast.Stmt, len(kids))
	for i, k := range kids {
		out[i] = t.nodes[k].Stmt
	}
	return out
}

// Path returns the child indexes leading from the root to h.
func (t *Tree) Path(h Handle) []int {
	var rev []int
	for cur := h; t.nodes[cur].Parent != None; cur = t.nodes[cur].Parent {
		rev = append(rev, t.nodes[cur].Index)
	}
	path := make([]int, len(rev))
	for i, idx := range rev {
		path[len(rev)-1-i] = idx
	}
	return path
}

// Ancestors calls fn for h's parent, grandparent and so on up to the root,
// stopping early when fn returns false.
func (t *Tree) Ancestors(h Handle, fn func(Handle) bool) {
	for cur := t.nodes[h].Parent; cur != None; cur = t.nodes[cur].Parent {
		if !fn(cur) {
			return
		}
	}
}
