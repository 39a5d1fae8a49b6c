package refactor

import (
	"go/ast"
	"go/token"
	"log/slog"

	"github.com/mamaar/shortfunc/pkg/stmttree"
)

// CandidateEnumerator lists every extractable window of a function body.
type CandidateEnumerator struct {
	fn       *function
	analyzer *LegalityAnalyzer
	opts     Options
	logger   *slog.Logger
}

func newCandidateEnumerator(fn *function, opts Options, logger *slog.Logger) *CandidateEnumerator {
	return &CandidateEnumerator{
		fn:       fn,
		analyzer: newLegalityAnalyzer(fn, opts),
		opts:     opts,
		logger:   logger,
	}
}

// Enumerate visits the statement tree depth-first. Windows inside a child
// come before the windows of its parent list; within one list windows are
// ordered by first statement, then by last statement. Selection breaks ties
// in favor of the earliest candidate, so this order is observable.
func (e *CandidateEnumerator) Enumerate() []*Candidate {
	var out []*Candidate
	e.visit(e.fn.tree.Root(), nil, &out)
	return out
}

func (e *CandidateEnumerator) visit(h stmttree.Handle, next []ast.Stmt, out *[]*Candidate) {
	tree := e.fn.tree
	stmts := tree.ChildStmts(h)

	for i, child := range tree.Node(h).Children {
		e.visit(child, following(tree.Stmt(h), stmts, i, next), out)
	}

	if !tree.IsList(h) {
		return
	}
	for begin := 0; begin+e.opts.MinStatements <= len(stmts); begin++ {
		for end := begin + e.opts.MinStatements - 1; end < len(stmts); end++ {
			w := window{
				list:  h,
				first: begin,
				last:  end,
				stmts: stmts[begin : end+1],
				next:  concat(stmts[end+1:], next),
			}
			c, err := e.analyzer.Analyze(w)
			if err != nil {
				e.logger.Debug("window rejected",
					"function", e.fn.Name(),
					"path", tree.Path(h),
					"first", begin,
					"last", end,
					"reason", err)
				continue
			}
			*out = append(*out, c)
		}
	}
}

// following returns the statements that can run after stmts[i], the i-th
// child of parent, followed by next. The branches of an if exclude each
// other, and a case clause only continues into the next one through
// fallthrough.
func following(parent ast.Stmt, stmts []ast.Stmt, i int, next []ast.Stmt) []ast.Stmt {
	switch stmts[i].(type) {
	case *ast.CaseClause:
		end := i + 1
		for end < len(stmts) && fallsThrough(stmts[end-1]) {
			end++
		}
		return concat(stmts[i+1:end], next)
	case *ast.CommClause:
		return next
	}
	if _, ok := parent.(*ast.IfStmt); ok {
		return next
	}
	return concat(stmts[i+1:], next)
}

func fallsThrough(s ast.Stmt) bool {
	clause, ok := s.(*ast.CaseClause)
	if !ok || len(clause.Body) == 0 {
		return false
	}
	br, ok := clause.Body[len(clause.Body)-1].(*ast.BranchStmt)
	return ok && br.Tok == token.FALLTHROUGH
}

func concat(a, b []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
