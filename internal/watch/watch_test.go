package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestWatcher_RerunsOnHTMLChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "<p>v1</p>")

	w, err := New(root, nil, nil)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	runs := make(chan int, 16)
	n := 0
	run := func(ctx context.Context) int {
		n++
		runs <- n
		return n
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- w.Run(ctx, run) }()

	waitRun(t, runs, 1)
	writeFile(t, filepath.Join(root, "index.html"), "<p>v2</p>")
	waitRun(t, runs, 2)

	cancel()
	select {
	case code := <-done:
		assert.GreaterOrEqual(t, code, 2, "返回最后一次检查的退出码")
	case <-time.After(5 * time.Second):
		t.Fatal("ctx 取消后 Run 未返回")
	}
	require.NoError(t, w.Close())
}

func TestWatcher_IgnoredPaths(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{
		root:     root,
		excluded: []string{filepath.Join(root, "node_modules")},
	}

	assert.True(t, w.ignored(filepath.Join(root, ".git", "index.html")))
	assert.True(t, w.ignored(filepath.Join(root, ".report.json.tmp-123")))
	assert.True(t, w.ignored(filepath.Join(root, "node_modules", "x.html")))
	assert.False(t, w.ignored(filepath.Join(root, "pages", "a.html")))
	assert.False(t, w.ignored(root))
}

func TestWatcher_HandleFiltersEvents(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{root: root, log: zap.NewNop()}

	assert.True(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "a.html"), Op: fsnotify.Write}))
	assert.True(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "style.css"), Op: fsnotify.Remove}))
	assert.True(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "pagegate.yaml"), Op: fsnotify.Write}))
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "a.html"), Op: fsnotify.Chmod}))
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}))
	assert.False(t, w.handle(fsnotify.Event{Name: filepath.Join(root, ".cache", "a.html"), Op: fsnotify.Write}))
}

func waitRun(t *testing.T, runs <-chan int, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-runs:
			if got >= want {
				return
			}
		case <-deadline:
			t.Fatalf("等待第 %d 次检查超时", want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
