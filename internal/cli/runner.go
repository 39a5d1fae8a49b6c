package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/config"
	"github.com/mamaar/shortfunc/pkg/discover"
	"github.com/mamaar/shortfunc/pkg/refactor"
	"github.com/mamaar/shortfunc/pkg/types"
	"github.com/mamaar/shortfunc/pkg/watch"
)

// WatchDebounce is how long the watcher waits for edits to settle.
const WatchDebounce = 300 * time.Millisecond

// Runner holds everything a command needs once the configuration is known.
type Runner struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *refactor.Metrics
	Driver  *refactor.Driver
}

func NewRunner(cfg *config.Config, logger *slog.Logger, metrics *refactor.Metrics) *Runner {
	return &Runner{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Driver:  refactor.NewDriver(analysis.NewParser(logger), cfg.RefactorOptions(), metrics, logger),
	}
}

// Discover lists the files below roots. No roots means the working
// directory; a trailing "/..." is accepted and ignored since every root is
// searched recursively anyway.
func (r *Runner) Discover(roots []string) ([]string, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSuffix(filepath.ToSlash(root), "...")
		if root == "" {
			root = "."
		}
		cleaned = append(cleaned, filepath.FromSlash(root))
	}
	return discover.Files(cleaned, r.Config.DiscoverOptions())
}

// Run refactors every file below roots.
func (r *Runner) Run(ctx context.Context, roots []string, dryRun bool) (*refactor.Report, error) {
	files, err := r.Discover(roots)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("refactoring", "files", len(files), "workers", r.Config.Workers, "dry_run", dryRun)
	engine := refactor.NewEngine(r.Driver, r.Config.EngineConfig(dryRun), r.Metrics, r.Logger)
	return engine.Run(ctx, files)
}

// ScanEntry is one function found by Scan.
type ScanEntry struct {
	Path string `json:"path"`
	refactor.FunctionReport
}

// ScanResult lists the functions of every scanned file.
type ScanResult struct {
	Entries  []ScanEntry        `json:"functions"`
	Failures []refactor.Failure `json:"failures"`
	Scanned  int                `json:"scanned"`
}

// Scan inspects every file below roots without changing anything. Unless
// all is set only overlong functions are listed.
func (r *Runner) Scan(ctx context.Context, roots []string, all bool) (*ScanResult, error) {
	files, err := r.Discover(roots)
	if err != nil {
		return nil, err
	}
	res := &ScanResult{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Scanned++
		reports, err := r.inspect(path)
		if err != nil {
			r.Logger.Warn("cannot scan file", "file", path, "error", err)
			res.Failures = append(res.Failures, refactor.Failure{Path: path, Err: err})
			continue
		}
		for _, rep := range reports {
			if all || rep.Overlong {
				res.Entries = append(res.Entries, ScanEntry{Path: path, FunctionReport: rep})
			}
		}
	}
	return res, nil
}

func (r *Runner) inspect(path string) ([]refactor.FunctionReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
	}
	return r.Driver.Inspect(path, content)
}

// Candidates ranks the candidates of function name in file.
func (r *Runner) Candidates(file, name string) ([]refactor.Suggestion, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: file, Cause: err}
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	return r.Driver.Candidates(abs, content, name)
}

// Watch refactors files below root whenever they are saved, until ctx is
// done.
func (r *Runner) Watch(ctx context.Context, root string, report func(*refactor.FileResult)) error {
	opts := r.Config.DiscoverOptions()
	w, err := watch.NewWatcher(root, WatchDebounce, func(path string) bool {
		return discover.Accept(path, opts)
	}, r.Logger)
	if err != nil {
		return &types.RefactorError{Type: types.WalkError, Message: "cannot watch " + root + ": " + err.Error(), File: root, Cause: err}
	}
	defer func() { _ = w.Close() }()

	r.Logger.Info("watching", "root", root)
	return watch.NewRefactorer(r.Driver, r.Logger).Watch(ctx, w, report)
}
