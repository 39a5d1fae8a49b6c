package refactor

import (
	"context"
	"fmt"
	"go/ast"
	"go/format"
	"log/slog"
	"os"
	"sort"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/types"
)

// Driver repeatedly extracts the best helper out of the first overlong
// function of a file until no function qualifies.
type Driver struct {
	parser  *analysis.GoParser
	opts    Options
	scorer  *CandidateScorer
	metrics *Metrics
	logger  *slog.Logger
}

func NewDriver(parser *analysis.GoParser, opts Options, metrics *Metrics, logger *slog.Logger) *Driver {
	return &Driver{
		parser:  parser,
		opts:    opts,
		scorer:  NewCandidateScorer(opts),
		metrics: metrics,
		logger:  logger,
	}
}

// Options returns the thresholds the driver runs with.
func (d *Driver) Options() Options {
	return d.opts
}

// Round records one applied extraction.
type Round struct {
	Function    string  `json:"function"`
	Helper      string  `json:"helper"`
	Line        int     `json:"line"`
	Params      int     `json:"params"`
	Score       float64 `json:"score"`
	LinesBefore int     `json:"lines_before"`
	LinesAfter  int     `json:"lines_after"`
	HelperLines int     `json:"helper_lines"`
}

// FileResult is the outcome of refactoring one file.
type FileResult struct {
	Path    string  `json:"path"`
	Rounds  []Round `json:"rounds"`
	Written bool    `json:"written"`
	Before  []byte  `json:"-"`
	After   []byte  `json:"-"`
}

// Changed reports whether at least one extraction was applied.
func (r *FileResult) Changed() bool {
	return len(r.Rounds) > 0
}

// RefactorSource runs rounds over content as the file at path. Nothing is
// written; the final text is in the result.
func (d *Driver) RefactorSource(ctx context.Context, path string, content []byte) (*FileResult, error) {
	res := &FileResult{Path: path, Before: content, After: content}

	for len(res.Rounds) < d.opts.MaxRounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, file, err := d.parser.LoadPackage(path, res.After)
		if err != nil {
			return nil, err
		}
		round, out, err := d.round(file)
		if err != nil {
			return nil, err
		}
		if round == nil {
			break
		}
		d.logger.Info("extracted helper",
			"file", path,
			"function", round.Function,
			"helper", round.Helper,
			"score", round.Score,
			"lines", fmt.Sprintf("%d -> %d + %d", round.LinesBefore, round.LinesAfter, round.HelperLines))
		d.metrics.extracted()
		res.Rounds = append(res.Rounds, *round)
		res.After = out
	}
	if len(res.Rounds) == d.opts.MaxRounds {
		d.logger.Warn("round limit reached", "file", path, "rounds", d.opts.MaxRounds)
	}
	return res, nil
}

// RefactorFile reads path, refactors it and, when write is set and
// something changed, writes the result back with the original permissions.
func (d *Driver) RefactorFile(ctx context.Context, path string, write bool) (*FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
	}

	res, err := d.RefactorSource(ctx, path, content)
	if err != nil {
		return nil, err
	}
	if write && res.Changed() {
		if err := os.WriteFile(path, res.After, info.Mode().Perm()); err != nil {
			return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
		}
		res.Written = true
	}
	return res, nil
}

// round applies the best candidate of the first qualifying function that
// has one. It returns a nil round when no function can be improved.
func (d *Driver) round(file *types.File) (*Round, []byte, error) {
	for _, decl := range file.AST.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		metrics, err := analysis.MeasureFunc(file.Text(fd.Pos(), fd.End()))
		if err != nil {
			d.logger.Debug("cannot measure function", "function", funcName(fd), "error", err)
			continue
		}
		if metrics.Lines <= d.opts.MaxLength {
			continue
		}

		ranked, err := d.rank(file, fd, metrics)
		if err != nil {
			return nil, nil, err
		}
		for _, ac := range ranked {
			if !ac.Eligible {
				break
			}
			out, err := d.apply(file, ac)
			if err != nil {
				d.logger.Warn("discarding candidate", "function", funcName(fd), "helper", ac.Name, "error", err)
				continue
			}
			return &Round{
				Function:    funcName(fd),
				Helper:      ac.Name,
				Line:        file.Line(fd.Pos()),
				Params:      len(ac.Candidate.Params),
				Score:       ac.Score,
				LinesBefore: metrics.Lines,
				LinesAfter:  ac.RemainderSize.Lines,
				HelperLines: ac.HelperSize.Lines,
			}, out, nil
		}
		d.logger.Debug("no applicable candidate", "function", funcName(fd), "lines", metrics.Lines)
	}
	return nil, nil, nil
}

// rank enumerates, synthesizes and scores every candidate of decl. Eligible
// candidates come first, by descending score; equal scores keep
// enumeration order.
func (d *Driver) rank(file *types.File, decl *ast.FuncDecl, metrics analysis.FuncMetrics) ([]*ApplicableCandidate, error) {
	fn, err := newFunction(file, decl, metrics)
	if err != nil {
		return nil, err
	}
	cands := newCandidateEnumerator(fn, d.opts, d.logger).Enumerate()
	d.metrics.candidates(len(cands))

	synth := newMethodSynthesizer(fn)
	ranked := make([]*ApplicableCandidate, 0, len(cands))
	for _, c := range cands {
		x, err := synth.Synthesize(c)
		if err != nil {
			d.logger.Debug("cannot synthesize candidate", "function", fn.Name(), "error", err)
			continue
		}
		ac, err := d.scorer.Measure(metrics, x)
		if err != nil {
			d.logger.Debug("cannot measure candidate", "function", fn.Name(), "helper", x.Name, "error", err)
			continue
		}
		ranked = append(ranked, ac)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Eligible != ranked[j].Eligible {
			return ranked[i].Eligible
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

func (d *Driver) apply(file *types.File, ac *ApplicableCandidate) ([]byte, error) {
	out, err := types.ApplyChanges(file.Content, ac.Changes)
	if err != nil {
		return nil, err
	}
	formatted, err := format.Source(out)
	if err != nil {
		return nil, types.Errorf(types.InvalidOperation, "extraction of %s does not format: %v", ac.Name, err)
	}
	return formatted, nil
}

// FunctionReport describes one function of a scanned file.
type FunctionReport struct {
	Name       string      `json:"name"`
	Line       int         `json:"line"`
	Lines      int         `json:"lines"`
	Depth      int         `json:"depth"`
	Area       int         `json:"area"`
	Overlong   bool        `json:"overlong"`
	Candidates int         `json:"candidates"`
	Eligible   int         `json:"eligible"`
	Best       *Suggestion `json:"best,omitempty"`
}

// Suggestion summarizes a ranked candidate.
type Suggestion struct {
	Helper    string   `json:"helper"`
	FirstLine int      `json:"first_line"`
	LastLine  int      `json:"last_line"`
	Params    []string `json:"params"`
	Output    string   `json:"output,omitempty"`
	Score     float64  `json:"score"`
	Eligible  bool     `json:"eligible"`
	HelperLen int      `json:"helper_lines"`
	Remainder int      `json:"remainder_lines"`
}

// Inspect measures every function of content without changing it. Only
// overlong functions are searched for candidates.
func (d *Driver) Inspect(path string, content []byte) ([]FunctionReport, error) {
	_, file, err := d.parser.LoadPackage(path, content)
	if err != nil {
		return nil, err
	}

	var reports []FunctionReport
	for _, decl := range file.AST.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		metrics, err := analysis.MeasureFunc(file.Text(fd.Pos(), fd.End()))
		if err != nil {
			continue
		}
		rep := FunctionReport{
			Name:     funcName(fd),
			Line:     file.Line(fd.Pos()),
			Lines:    metrics.Lines,
			Depth:    metrics.Depth,
			Area:     metrics.Area,
			Overlong: metrics.Lines > d.opts.MaxLength,
		}
		if rep.Overlong {
			ranked, err := d.rank(file, fd, metrics)
			if err != nil {
				return nil, err
			}
			rep.Candidates = len(ranked)
			for _, ac := range ranked {
				if ac.Eligible {
					rep.Eligible++
				}
			}
			if len(ranked) > 0 && ranked[0].Eligible {
				rep.Best = suggest(file, ranked[0])
			}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Candidates ranks the candidates of the named function regardless of its
// length. name is either a plain function name or Type.Method.
func (d *Driver) Candidates(path string, content []byte, name string) ([]Suggestion, error) {
	_, file, err := d.parser.LoadPackage(path, content)
	if err != nil {
		return nil, err
	}
	for _, decl := range file.AST.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil || (funcName(fd) != name && fd.Name.Name != name) {
			continue
		}
		metrics, err := analysis.MeasureFunc(file.Text(fd.Pos(), fd.End()))
		if err != nil {
			return nil, err
		}
		ranked, err := d.rank(file, fd, metrics)
		if err != nil {
			return nil, err
		}
		out := make([]Suggestion, 0, len(ranked))
		for _, ac := range ranked {
			out = append(out, *suggest(file, ac))
		}
		return out, nil
	}
	return nil, types.Errorf(types.InvalidOperation, "function %s not found in %s", name, path)
}

// Proposal is a ranked extraction together with the formatted file text
// it produces.
type Proposal struct {
	Function string `json:"function"`
	Suggestion
	After []byte `json:"-"`
}

// Propose applies the eligible candidates of the overlong function
// enclosing line (1-based) to content, best first. At most limit
// proposals are returned when limit is positive. A line outside every
// overlong function yields no proposals.
func (d *Driver) Propose(path string, content []byte, line, limit int) ([]Proposal, error) {
	_, file, err := d.parser.LoadPackage(path, content)
	if err != nil {
		return nil, err
	}
	for _, decl := range file.AST.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil || line < file.Line(fd.Pos()) || line > file.Line(fd.End()) {
			continue
		}
		metrics, err := analysis.MeasureFunc(file.Text(fd.Pos(), fd.End()))
		if err != nil || metrics.Lines <= d.opts.MaxLength {
			return nil, nil
		}
		ranked, err := d.rank(file, fd, metrics)
		if err != nil {
			return nil, err
		}
		var out []Proposal
		for _, ac := range ranked {
			if !ac.Eligible || (limit > 0 && len(out) == limit) {
				break
			}
			after, err := d.apply(file, ac)
			if err != nil {
				d.logger.Debug("discarding candidate", "function", funcName(fd), "helper", ac.Name, "error", err)
				continue
			}
			out = append(out, Proposal{Function: funcName(fd), Suggestion: *suggest(file, ac), After: after})
		}
		return out, nil
	}
	return nil, nil
}

func suggest(file *types.File, ac *ApplicableCandidate) *Suggestion {
	c := ac.Candidate
	s := &Suggestion{
		Helper:    ac.Name,
		FirstLine: file.Line(c.Stmts[0].Pos()),
		LastLine:  file.Line(c.Stmts[len(c.Stmts)-1].End()),
		Params:    make([]string, 0, len(c.Params)),
		Score:     ac.Score,
		Eligible:  ac.Eligible,
		HelperLen: ac.HelperSize.Lines,
		Remainder: ac.RemainderSize.Lines,
	}
	for _, p := range c.Params {
		s.Params = append(s.Params, p.Name())
	}
	if c.Output != nil {
		s.Output = c.Output.Name()
	}
	return s
}
