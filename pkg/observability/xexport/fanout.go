package xexport

import (
	"context"
	"errors"
)

// Fanout 把每个条目分发给多个 Processor，各自保持自己的处理纪律。
type Fanout[T any] struct {
	procs []Processor[T]
}

// NewFanout 创建分发器，忽略 nil Processor。
func NewFanout[T any](procs ...Processor[T]) *Fanout[T] {
	f := &Fanout[T]{procs: make([]Processor[T], 0, len(procs))}
	for _, p := range procs {
		if p != nil {
			f.procs = append(f.procs, p)
		}
	}
	return f
}

// Len 返回下游 Processor 数量。
func (f *Fanout[T]) Len() int {
	return len(f.procs)
}

// OnEnd 把条目交给每个下游 Processor。
func (f *Fanout[T]) OnEnd(item T) {
	for _, p := range f.procs {
		p.OnEnd(item)
	}
}

// ForceFlush 依次刷新所有下游，合并错误。
func (f *Fanout[T]) ForceFlush(ctx context.Context) error {
	var errs []error
	for _, p := range f.procs {
		errs = append(errs, p.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown 依次关闭所有下游，共享同一个 ctx 截止时间，合并错误。
func (f *Fanout[T]) Shutdown(ctx context.Context) error {
	var errs []error
	for _, p := range f.procs {
		errs = append(errs, p.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Stats 汇总所有下游的统计信息。
func (f *Fanout[T]) Stats() []Stats {
	var out []Stats
	for _, p := range f.procs {
		if r, ok := p.(StatsReporter); ok {
			out = append(out, r.Stats()...)
		}
	}
	return out
}

var (
	_ Processor[int] = (*Fanout[int])(nil)
	_ StatsReporter  = (*Fanout[int])(nil)
)
