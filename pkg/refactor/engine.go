package refactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mamaar/shortfunc/pkg/types"
)

// EngineConfig contains configuration options for a multi-file run
type EngineConfig struct {
	// Workers is the number of package directories processed at once.
	Workers int
	// DryRun leaves every file untouched.
	DryRun bool
}

// Engine runs the driver over many files. A file that fails is logged and
// counted; the run goes on with the next one.
type Engine struct {
	driver  *Driver
	config  EngineConfig
	metrics *Metrics
	logger  *slog.Logger
}

func NewEngine(driver *Driver, config EngineConfig, metrics *Metrics, logger *slog.Logger) *Engine {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Engine{driver: driver, config: config, metrics: metrics, logger: logger}
}

// Failure is a file the engine gave up on.
type Failure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{f.Path, msg})
}

// Report summarizes a run. Files and Failures are ordered by path.
type Report struct {
	Files    []*FileResult `json:"files"`
	Failures []Failure     `json:"failures"`
	Scanned  int           `json:"scanned"`
}

// Extractions is the number of helpers extracted over all files.
func (r *Report) Extractions() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Rounds)
	}
	return n
}

// Changed returns the files that received at least one extraction.
func (r *Report) Changed() []*FileResult {
	var out []*FileResult
	for _, f := range r.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}
	return out
}

// Run processes files. Files of one directory always run in sequence on one
// goroutine, because loading a file reads its siblings from disk. The only
// error returned is the context's.
func (e *Engine) Run(ctx context.Context, files []string) (*Report, error) {
	byDir := make(map[string][]string)
	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if _, ok := byDir[dir]; !ok {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], f)
	}
	sort.Strings(dirs)

	var (
		mu     sync.Mutex
		report = &Report{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for _, dir := range dirs {
		g.Go(func() error {
			for _, path := range byDir[dir] {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := e.process(gctx, path)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}

				mu.Lock()
				report.Scanned++
				switch {
				case err != nil:
					e.logger.Error("failed to refactor file", "file", path, "error", err)
					e.metrics.file(OutcomeFailed)
					report.Failures = append(report.Failures, Failure{Path: path, Err: err})
				case res.Changed():
					e.metrics.file(OutcomeChanged)
					report.Files = append(report.Files, res)
				default:
					e.metrics.file(OutcomeUnchanged)
					report.Files = append(report.Files, res)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Files, func(i, j int) bool { return report.Files[i].Path < report.Files[j].Path })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Path < report.Failures[j].Path })
	return report, nil
}

// process refactors one file. A panic is returned as an error.
func (e *Engine) process(ctx context.Context, path string) (res *FileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &types.RefactorError{
				Type:    types.InvalidOperation,
				Message: fmt.Sprintf("panic while refactoring: %v", r),
				File:    path,
			}
		}
	}()
	e.logger.Debug("refactoring file", "file", path)
	return e.driver.RefactorFile(ctx, path, !e.config.DryRun)
}
