package watch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mamaar/shortfunc/pkg/refactor"
)

// Refactorer runs the driver over files reported by a Watcher and writes
// the results back.
type Refactorer struct {
	driver *refactor.Driver
	logger *slog.Logger

	mu sync.Mutex
	// content last written per path; the write echoes back as an event
	written map[string][]byte
}

func NewRefactorer(driver *refactor.Driver, logger *slog.Logger) *Refactorer {
	return &Refactorer{
		driver:  driver,
		logger:  logger,
		written: make(map[string][]byte),
	}
}

// HandleChanges refactors every file of the batch in path order. Files that
// fail, typically because they are saved mid-edit and do not parse, are
// logged and skipped. Only files that changed are returned.
func (r *Refactorer) HandleChanges(ctx context.Context, events []ChangeEvent) ([]*refactor.FileResult, error) {
	start := time.Now()
	paths := make([]string, 0, len(events))
	for _, ev := range events {
		paths = append(paths, ev.Path)
	}
	sort.Strings(paths)

	var results []*refactor.FileResult
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if r.echo(path) {
			r.logger.Debug("skipping own write", "file", path)
			continue
		}

		res, err := r.driver.RefactorFile(ctx, path, true)
		if errors.Is(err, context.Canceled) {
			return results, err
		}
		if err != nil {
			r.logger.Warn("cannot refactor saved file", "file", path, "error", err)
			continue
		}
		if res.Written {
			r.remember(path, res.After)
			results = append(results, res)
		}
	}

	r.logger.Info("batch complete",
		"files", len(paths),
		"changed", len(results),
		"elapsed", time.Since(start).String())
	return results, nil
}

// Watch feeds the batches of w into HandleChanges until ctx is done or w
// is closed. report, when not nil, is called for every changed file.
func (r *Refactorer) Watch(ctx context.Context, w *Watcher, report func(*refactor.FileResult)) error {
	batches := make(chan []ChangeEvent)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, batches)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case batch, ok := <-batches:
				if !ok {
					return nil
				}
				results, err := r.HandleChanges(gctx, batch)
				if err != nil {
					return err
				}
				if report != nil {
					for _, res := range results {
						report(res)
					}
				}
			}
		}
	})
	return g.Wait()
}

func (r *Refactorer) remember(path string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written[path] = content
}

// echo reports whether path still holds exactly what was last written to
// it, and forgets it either way.
func (r *Refactorer) echo(path string) bool {
	r.mu.Lock()
	last, ok := r.written[path]
	delete(r.written, path)
	r.mu.Unlock()
	if !ok {
		return false
	}
	current, err := os.ReadFile(path)
	return err == nil && bytes.Equal(current, last)
}
