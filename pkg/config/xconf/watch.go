package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

// WatchFunc 在每次重载尝试后调用；err 非 nil 表示重载失败，Store 仍是旧快照。
type WatchFunc func(s *Store, err error)

// WatchOption 配置 Watch。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间，d <= 0 时忽略。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watch 监视配置文件并在变更时重载，阻塞直到 ctx 取消。
//
// 返回 nil 表示 ctx 正常取消；fn 在 Watch 的 goroutine 中串行调用。
func (s *Store) Watch(ctx context.Context, fn WatchFunc, opts ...WatchOption) (err error) {
	if s.path == "" {
		return ErrNotWatchable
	}
	o := watchOptions{debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("xconf: create watcher: %w", err)
	}
	defer func() { err = errors.Join(err, w.Close()) }()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("xconf: watch %s: %w", dir, err)
	}
	name := filepath.Base(s.path)

	timer := time.NewTimer(o.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(o.debounce)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if fn != nil {
				fn(s, fmt.Errorf("xconf: watch: %w", werr))
			}
		case <-timer.C:
			rerr := s.Reload()
			if fn != nil {
				fn(s, rerr)
			}
		}
	}
}
