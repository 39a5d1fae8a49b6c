package watch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

// longSrc has a function well above the default length threshold whose
// second to fourth statements form a self-contained block.
func longSrc() string {
	var b strings.Builder
	b.WriteString("package p\n\nimport \"fmt\"\n\nfunc Banner(title string) {\n")
	b.WriteString("\tfmt.Println(title)\n")
	b.WriteString("\tx := 0\n\tx++\n\tfmt.Println(\"x\", x)\n")
	for i := 0; i < 32; i++ {
		fmt.Fprintf(&b, "\tfmt.Println(%d)\n", i)
	}
	b.WriteString("}\n")
	return b.String()
}

func newTestRefactorer() *Refactorer {
	logger := testLogger()
	driver := refactor.NewDriver(analysis.NewParser(logger), refactor.DefaultOptions(), nil, logger)
	return NewRefactorer(driver, logger)
}

func TestRefactorer_RewritesSavedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "banner.go", longSrc())
	short := writeGoFile(t, dir, "short.go", "package p\n\nfunc Short() {}\n")

	r := newTestRefactorer()
	results, err := r.HandleChanges(context.Background(), []ChangeEvent{
		{Path: short, Op: fsnotify.Write},
		{Path: path, Op: fsnotify.Write},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
	assert.True(t, results[0].Written)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(results[0].After), string(content))

	// the echo of our own write is ignored
	results, err = r.HandleChanges(context.Background(), []ChangeEvent{{Path: path, Op: fsnotify.Write}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRefactorer_SkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	broken := writeGoFile(t, dir, "broken.go", "package p\n\nfunc {\n")
	path := writeGoFile(t, t.TempDir(), "banner.go", longSrc())

	results, err := newTestRefactorer().HandleChanges(context.Background(), []ChangeEvent{
		{Path: broken, Op: fsnotify.Write},
		{Path: path, Op: fsnotify.Create},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
}

func TestRefactorer_Watch(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, acceptGo, testLogger())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reported := make(chan *refactor.FileResult, 1)
	done := make(chan error, 1)
	go func() {
		done <- newTestRefactorer().Watch(ctx, w, func(res *refactor.FileResult) {
			select {
			case reported <- res:
			default:
			}
		})
	}()

	time.Sleep(50 * time.Millisecond)
	path := writeGoFile(t, dir, "banner.go", longSrc())

	select {
	case res := <-reported:
		assert.Equal(t, path, res.Path)
		assert.True(t, res.Changed())
	case <-ctx.Done():
		t.Fatal("no file was refactored")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRefactorer_WatchEndsWhenWatcherCloses(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 50*time.Millisecond, acceptGo, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- newTestRefactorer().Watch(ctx, w, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Watch did not return after the watcher closed")
	}
}
