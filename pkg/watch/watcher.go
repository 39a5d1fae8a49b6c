package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamaar/shortfunc/pkg/discover"
)

// ChangeEvent is a file that was created or written.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// Watcher watches a tree for saved source files and emits debounced batches.
type Watcher struct {
	root     string
	debounce time.Duration
	accept   func(path string) bool
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher recursively watches root. Directories discover.SkipDir names
// are left out. Only files for which accept returns true are reported.
func NewWatcher(root string, debounce time.Duration, accept func(path string) bool, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		accept:   accept,
		logger:   logger,
		fsw:      fsw,
	}

	if err := w.addDirs(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run forwards batches of changed files to out until ctx is done or the
// watcher is closed. Edits to the same file within the debounce interval
// are reported once. out is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, out chan<- []ChangeEvent) error {
	defer close(out)

	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && w.isNewDir(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 && w.accept(ev.Name) {
				pending[ev.Name] |= ev.Op
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]ChangeEvent, 0, len(pending))
			for p, op := range pending {
				batch = append(batch, ChangeEvent{Path: p, Op: op})
			}
			pending = make(map[string]fsnotify.Op)

			select {
			case out <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// isNewDir starts watching path when it is a freshly created directory.
func (w *Watcher) isNewDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if discover.SkipDir(filepath.Base(path)) {
		return true
	}
	if err := w.addDirs(path); err != nil {
		w.logger.Debug("could not add to watch", "path", path, "error", err)
	}
	return true
}
