package refactor

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/mamaar/shortfunc/pkg/types"
)

// MethodSynthesizer turns a candidate into source text: the helper
// declaration, the rewritten original function and the edits that realize
// both in the file.
type MethodSynthesizer struct {
	fn     *function
	locals map[string]bool
}

func newMethodSynthesizer(fn *function) *MethodSynthesizer {
	return &MethodSynthesizer{fn: fn}
}

// Extraction is a synthesized candidate.
type Extraction struct {
	Candidate *Candidate
	Name      string
	Call      string // statement that replaces the window
	Helper    string // helper declaration
	Remainder string // original function after the replacement
	Changes   []types.Change
}

// Synthesize builds the helper and the remainder for c.
func (s *MethodSynthesizer) Synthesize(c *Candidate) (*Extraction, error) {
	name := s.helperName(c)
	from, to := s.span(c)
	body := s.fn.text(c.Stmts[0].Pos(), to)
	if c.Output != nil {
		body += "\nreturn " + c.Output.Name()
	}

	var helper strings.Builder
	helper.WriteString("func ")
	if s.fn.isMethodHelper() {
		recv := s.fn.decl.Recv.List[0]
		fmt.Fprintf(&helper, "(%s %s) ", s.fn.recvName, s.fn.text(recv.Type.Pos(), recv.Type.End()))
	}
	helper.WriteString(name)
	if tp := s.fn.decl.Type.TypeParams; tp != nil && !s.fn.isMethodHelper() {
		helper.WriteString(s.fn.text(tp.Pos(), tp.End()))
	}
	helper.WriteString("(" + s.paramList(c) + ")")
	helper.WriteString(s.resultList(c))
	helper.WriteString(" {\n" + body + "\n}")

	call := s.callStmt(c, name)

	declStart := s.fn.offset(s.fn.decl.Pos())
	src := s.fn.source()
	remainder := src[:s.fn.offset(from)-declStart] + call + src[s.fn.offset(to)-declStart:]

	file := s.fn.file.Path
	end := s.fn.offset(s.fn.decl.End())
	return &Extraction{
		Candidate: c,
		Name:      name,
		Call:      call,
		Helper:    helper.String(),
		Remainder: remainder,
		Changes: []types.Change{
			{
				File:        file,
				Start:       s.fn.offset(from),
				End:         s.fn.offset(to),
				OldText:     s.fn.text(from, to),
				NewText:     call,
				Description: fmt.Sprintf("call %s from %s", name, s.fn.Name()),
			},
			{
				File:        file,
				Start:       end,
				End:         end,
				NewText:     "\n\n" + helper.String(),
				Description: fmt.Sprintf("declare %s", name),
			},
		},
	}, nil
}

// span is the source range the call replaces. A trailing bare return stays
// where it is.
func (s *MethodSynthesizer) span(c *Candidate) (token.Pos, token.Pos) {
	last := c.Stmts[len(c.Stmts)-1]
	if c.KeepsReturn {
		last = c.Stmts[len(c.Stmts)-2]
	}
	return c.Stmts[0].Pos(), last.End()
}

func (s *MethodSynthesizer) paramList(c *Candidate) string {
	parts := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		parts = append(parts, p.Name()+" "+s.typeText(p))
	}
	return strings.Join(parts, ", ")
}

// resultList returns the helper's result types with a leading space, or ""
// for a helper without results.
func (s *MethodSynthesizer) resultList(c *Candidate) string {
	switch {
	case c.EndsInReturn:
		var parts []string
		for _, field := range s.fn.decl.Type.Results.List {
			t := s.fn.text(field.Type.Pos(), field.Type.End())
			for range max(1, len(field.Names)) {
				parts = append(parts, t)
			}
		}
		if len(parts) == 1 {
			return " " + parts[0]
		}
		return " (" + strings.Join(parts, ", ") + ")"
	case c.Output != nil:
		return " " + s.typeText(c.Output)
	}
	return ""
}

func (s *MethodSynthesizer) callStmt(c *Candidate, name string) string {
	args := make([]string, 0, len(c.Params))
	for _, p := range c.Params {
		args = append(args, p.Name())
	}

	callee := name
	switch {
	case s.fn.isMethodHelper():
		callee = s.fn.recvName + "." + name
	case len(s.fn.typeParams) > 0:
		callee = name + "[" + strings.Join(s.fn.typeParams, ", ") + "]"
	}
	call := callee + "(" + strings.Join(args, ", ") + ")"

	switch {
	case c.EndsInReturn:
		return "return " + call
	case c.Output == nil:
		return call
	case c.OutputDeclared:
		return c.Output.Name() + " := " + call
	}
	return c.Output.Name() + " = " + call
}

