package xexport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ImmediateProcessor 同步处理器：每个条目在 OnEnd 中立即导出。
//
// 调用方会等待 Export 返回，适合开发环境的控制台 sink。
type ImmediateProcessor[T any] struct {
	exp     Exporter[T]
	name    string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once

	enqueued      atomic.Uint64
	exported      atomic.Uint64
	dropped       atomic.Uint64
	failedBatches atomic.Uint64
}

// ImmediateOption 配置 ImmediateProcessor。
type ImmediateOption func(*immediateOptions)

type immediateOptions struct {
	name    string
	timeout time.Duration
	logger  *slog.Logger
}

// WithImmediateName 设置统计与日志中使用的名称。
func WithImmediateName(name string) ImmediateOption {
	return func(o *immediateOptions) { o.name = name }
}

// WithImmediateTimeout 设置单次 Export 超时。
func WithImmediateTimeout(d time.Duration) ImmediateOption {
	return func(o *immediateOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithImmediateLogger 设置内部告警 logger。
func WithImmediateLogger(l *slog.Logger) ImmediateOption {
	return func(o *immediateOptions) { o.logger = l }
}

// NewImmediateProcessor 创建同步处理器。exp 为 nil 时返回 ErrNilExporter。
func NewImmediateProcessor[T any](exp Exporter[T], opts ...ImmediateOption) (*ImmediateProcessor[T], error) {
	if exp == nil {
		return nil, ErrNilExporter
	}
	o := immediateOptions{name: "immediate", timeout: DefaultExportTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &ImmediateProcessor[T]{
		exp:     exp,
		name:    o.name,
		timeout: o.timeout,
		logger:  internalLogger(o.logger).With(slog.String("processor", o.name)),
	}, nil
}

// OnEnd 同步导出一个条目；失败只记录告警。
func (p *ImmediateProcessor[T]) OnEnd(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.dropped.Add(1)
		return
	}
	p.enqueued.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.exp.Export(ctx, []T{item}); err != nil {
		p.failedBatches.Add(1)
		p.logger.Warn("xexport: export failed", slog.Any("error", err))
		return
	}
	p.exported.Add(1)
}

// ForceFlush 无待发送条目，直接返回。
func (p *ImmediateProcessor[T]) ForceFlush(context.Context) error {
	return nil
}

// Shutdown 关闭 Exporter，之后的 OnEnd 被丢弃。重复调用返回 nil。
func (p *ImmediateProcessor[T]) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		if e := p.exp.Shutdown(ctx); e != nil {
			err = fmt.Errorf("xexport: %s shutdown: %w", p.name, e)
		}
	})
	return err
}

// Stats 返回处理器统计。
func (p *ImmediateProcessor[T]) Stats() []Stats {
	return []Stats{{
		Name:          p.name,
		Discipline:    "immediate",
		Enqueued:      p.enqueued.Load(),
		Exported:      p.exported.Load(),
		Dropped:       p.dropped.Load(),
		FailedBatches: p.failedBatches.Load(),
	}}
}

var (
	_ Processor[int] = (*ImmediateProcessor[int])(nil)
	_ StatsReporter  = (*ImmediateProcessor[int])(nil)
)
