// Package watch 在文件变化后重新执行检查（pagegate watch）。
//
// 每次检查仍是单线程顺序执行；watch 只负责串行地触发下一次，不会让两次检查重叠。
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/John-Robertt/pagegate/internal/config"
)

// DefaultDebounce 是连续保存时合并事件的窗口。
const DefaultDebounce = 300 * time.Millisecond

// RunFunc 执行一次完整检查并返回退出码。
type RunFunc func(ctx context.Context) int

// Watcher 监听 root 下所有非隐藏、未排除的目录。
type Watcher struct {
	root     string
	excluded []string
	debounce time.Duration
	log      *zap.Logger

	fsw *fsnotify.Watcher
}

// New 创建 Watcher 并把目录树加入监听。excludeDirs 的语义与扫描阶段一致（相对 root）。
func New(root string, excludeDirs []string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
		log:      log,
		fsw:      fsw,
	}
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if !filepath.IsAbs(x) {
			x = filepath.Join(w.root, x)
		}
		w.excluded = append(w.excluded, filepath.Clean(x))
	}

	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce 修改事件合并窗口（d <= 0 时忽略）。
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Close 释放底层 fsnotify 资源。
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run 先执行一次检查，之后每当相关文件变化（合并 debounce 窗口内的事件）就再执行一次，
// 直到 ctx 结束。返回最后一次检查的退出码。
func (w *Watcher) Run(ctx context.Context, run RunFunc) int {
	code := run(ctx)

	// 计时器只在收到相关事件后才启动。
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return code

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return code
			}
			if w.handle(ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return code
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			w.log.Info("change detected, re-running checks")
			code = run(ctx)
		}
	}
}

// handle 处理单个事件，返回是否需要触发重新检查。
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if w.ignored(ev.Name) {
		return false
	}

	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch add failed", zap.String("path", ev.Name), zap.Error(err))
			}
			// 新目录里可能已经有文件（例如整体拷贝进来）。
			return true
		}
	}

	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !relevant(ev.Name) {
		return false
	}
	w.log.Debug("watch event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	return true
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// 目录在遍历过程中被删掉：忽略即可，删除事件会另行触发。
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// ignored 判断路径是否位于隐藏目录/隐藏文件或排除目录之下。
func (w *Watcher) ignored(path string) bool {
	path = filepath.Clean(path)
	for _, x := range w.excluded {
		if path == x || strings.HasPrefix(path, x+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func relevant(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico":
		return true
	}
	return filepath.Base(path) == config.FileName
}
