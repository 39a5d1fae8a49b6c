package refactor

import (
	"math"

	"github.com/mamaar/shortfunc/pkg/analysis"
)

// ApplicableCandidate is a synthesized candidate with its measurements.
type ApplicableCandidate struct {
	*Extraction
	OriginalSize  analysis.FuncMetrics
	HelperSize    analysis.FuncMetrics
	RemainderSize analysis.FuncMetrics
	Score         float64
	Eligible      bool
}

// CandidateScorer measures extractions and ranks them.
type CandidateScorer struct {
	opts Options
}

func NewCandidateScorer(opts Options) *CandidateScorer {
	return &CandidateScorer{opts: opts}
}

// Measure formats and measures the helper and the remainder of x.
func (sc *CandidateScorer) Measure(original analysis.FuncMetrics, x *Extraction) (*ApplicableCandidate, error) {
	helper, err := analysis.MeasureFunc(x.Helper)
	if err != nil {
		return nil, err
	}
	remaining, err := analysis.MeasureFunc(x.Remainder)
	if err != nil {
		return nil, err
	}
	ac := &ApplicableCandidate{
		Extraction:    x,
		OriginalSize:  original,
		HelperSize:    helper,
		RemainderSize: remaining,
	}
	ac.Eligible = helper.Lines < original.Lines &&
		remaining.Lines < original.Lines &&
		remaining.Lines >= sc.opts.MinMethodLength
	ac.Score = sc.Score(original, helper, remaining, x.Candidate)
	return ac, nil
}

// Score rewards balanced splits that reduce nesting and take few
// parameters. The four components are summed.
func (sc *CandidateScorer) Score(orig, helper, rem analysis.FuncMetrics, c *Candidate) float64 {
	length := math.Min(sc.opts.LengthWeight*float64(min(helper.Lines, rem.Lines)), sc.opts.MaxScoreLength)

	depth := float64(min(orig.Depth-rem.Depth, orig.Depth-helper.Depth))

	var area float64
	if orig.Area != 0 {
		reduction := min(orig.Area-helper.Area, orig.Area-rem.Area)
		area = 2 * float64(orig.Depth) * float64(reduction) / float64(orig.Area)
	}

	params := 4 - float64(len(c.Params))
	if c.EndsInReturn || c.Output != nil {
		params--
	}

	return length + depth + area + params
}

