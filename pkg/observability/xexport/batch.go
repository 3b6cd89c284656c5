package xexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// 默认批处理参数，与 OTel SDK 默认值一致。
const (
	DefaultScheduledDelay     = 5 * time.Second
	DefaultMaxExportBatchSize = 512
	DefaultMaxQueueSize       = 2048
	DefaultExportTimeout      = 30 * time.Second
)

// BatchConfig 批处理参数。零值字段使用默认值。
type BatchConfig struct {
	// Name 用于日志与统计。
	Name string
	// ScheduledDelay 距上次刷新超过该时长即导出。
	ScheduledDelay time.Duration
	// MaxExportBatchSize 队列达到该长度立即导出，也是单次导出的上限。
	MaxExportBatchSize int
	// MaxQueueSize 队列容量，超过后丢弃最新条目。
	MaxQueueSize int
	// ExportTimeout 单次 Export 调用的超时。
	ExportTimeout time.Duration
	// Logger 内部告警输出，nil 时使用 stderr。
	Logger *slog.Logger
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.ScheduledDelay <= 0 {
		c.ScheduledDelay = DefaultScheduledDelay
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.MaxExportBatchSize <= 0 {
		c.MaxExportBatchSize = DefaultMaxExportBatchSize
	}
	if c.MaxExportBatchSize > c.MaxQueueSize {
		c.MaxExportBatchSize = c.MaxQueueSize
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
	if c.Name == "" {
		c.Name = "batch"
	}
	return c
}

// BatchProcessor 批量处理器。
//
// 一个后台 goroutine 负责定时与按量导出；OnEnd 只在锁内追加到队列，
// 不等待任何 I/O。同一时刻最多一个 Export 调用在执行。
type BatchProcessor[T any] struct {
	exp    Exporter[T]
	cfg    BatchConfig
	logger *slog.Logger

	mu    sync.Mutex
	queue []T

	// exportSem 串行化 Export 调用（worker、ForceFlush、Shutdown），
	// 获取时可被 ctx 打断
	exportSem chan struct{}

	// runCtx 约束 worker 的导出，Shutdown 的 ctx 结束时被取消
	runCtx    context.Context
	cancelRun context.CancelFunc

	kick     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool

	enqueued      atomic.Uint64
	exported      atomic.Uint64
	dropped       atomic.Uint64
	failedBatches atomic.Uint64
	dropWarned    atomic.Bool
}

// NewBatchProcessor 创建并启动批量处理器。exp 为 nil 时返回 ErrNilExporter。
func NewBatchProcessor[T any](exp Exporter[T], cfg BatchConfig) (*BatchProcessor[T], error) {
	if exp == nil {
		return nil, ErrNilExporter
	}
	cfg = cfg.withDefaults()
	runCtx, cancelRun := context.WithCancel(context.Background())
	p := &BatchProcessor[T]{
		exp:       exp,
		cfg:       cfg,
		logger:    internalLogger(cfg.Logger).With(slog.String("processor", cfg.Name)),
		queue:     make([]T, 0, cfg.MaxExportBatchSize),
		exportSem: make(chan struct{}, 1),
		runCtx:    runCtx,
		cancelRun: cancelRun,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// OnEnd 入队一个条目。队列已满或处理器已关闭时丢弃该条目并计数。
func (p *BatchProcessor[T]) OnEnd(item T) {
	p.mu.Lock()
	if p.stopped.Load() {
		p.mu.Unlock()
		p.drop(1, "processor shut down")
		return
	}
	if len(p.queue) >= p.cfg.MaxQueueSize {
		p.mu.Unlock()
		p.drop(1, "queue full")
		return
	}
	p.queue = append(p.queue, item)
	full := len(p.queue) >= p.cfg.MaxExportBatchSize
	p.mu.Unlock()

	p.enqueued.Add(1)
	if full {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

func (p *BatchProcessor[T]) drop(n int, reason string) {
	total := p.dropped.Add(uint64(n))
	// 每段连续丢弃只告警一次，成功导出后重置
	if p.dropWarned.CompareAndSwap(false, true) {
		p.logger.Warn("xexport: dropping telemetry",
			slog.String("reason", reason),
			slog.Uint64("dropped_total", total),
			slog.Int("max_queue_size", p.cfg.MaxQueueSize))
	}
}

func (p *BatchProcessor[T]) run() {
	defer close(p.done)

	timer := time.NewTimer(p.cfg.ScheduledDelay)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-p.kick:
			p.exportFull()
			timer.Reset(p.cfg.ScheduledDelay)
		case <-timer.C:
			_ = p.exportAll(p.runCtx)
			timer.Reset(p.cfg.ScheduledDelay)
		}
	}
}

// exportFull 只导出满批次，剩余不足一批的条目等待定时器。
func (p *BatchProcessor[T]) exportFull() {
	if p.acquire(p.runCtx) != nil {
		return
	}
	defer p.release()
	for !p.stopped.Load() {
		batch := p.take(true)
		if batch == nil {
			return
		}
		_ = p.export(p.runCtx, batch)
	}
}

func (p *BatchProcessor[T]) acquire(ctx context.Context) error {
	select {
	case p.exportSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BatchProcessor[T]) release() { <-p.exportSem }

// exportAll 分批导出当前队列中的全部条目，ctx 结束时停止。
func (p *BatchProcessor[T]) exportAll(ctx context.Context) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()

	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		batch := p.take(false)
		if batch == nil {
			return errors.Join(errs...)
		}
		if err := p.export(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
}

// take 从队首取出至多 MaxExportBatchSize 个条目。
// onlyFull 为 true 时不足一批返回 nil。
func (p *BatchProcessor[T]) take(onlyFull bool) []T {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.queue)
	if n == 0 || (onlyFull && n < p.cfg.MaxExportBatchSize) {
		return nil
	}
	n = min(n, p.cfg.MaxExportBatchSize)
	batch := make([]T, n)
	copy(batch, p.queue[:n])
	rest := copy(p.queue, p.queue[n:])
	clear(p.queue[rest:])
	p.queue = p.queue[:rest]
	return batch
}

func (p *BatchProcessor[T]) export(ctx context.Context, batch []T) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ExportTimeout)
	defer cancel()

	if err := p.exp.Export(ctx, batch); err != nil {
		p.failedBatches.Add(1)
		p.logger.Warn("xexport: export failed",
			slog.Int("batch_size", len(batch)),
			slog.Any("error", err))
		return fmt.Errorf("%w: %s: %w", ErrExport, p.cfg.Name, err)
	}
	p.exported.Add(uint64(len(batch)))
	p.dropWarned.Store(false)
	return nil
}

// ForceFlush 立即导出全部待发送条目，返回本次导出中出现的错误。
func (p *BatchProcessor[T]) ForceFlush(ctx context.Context) error {
	if p.stopped.Load() {
		return ErrShutdown
	}
	return p.exportAll(ctx)
}

// Shutdown 停止后台 goroutine，在 ctx 截止前排空队列，然后关闭 Exporter。
// ctx 结束时 worker 正在进行的导出也被取消。
// 截止时仍未导出的条目被丢弃并记录告警。重复调用返回 nil。
func (p *BatchProcessor[T]) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		defer p.cancelRun()
		stopCancel := context.AfterFunc(ctx, p.cancelRun)
		defer stopCancel()

		p.stopped.Store(true)
		close(p.stop)

		select {
		case <-p.done:
		case <-ctx.Done():
		}

		flushErr := p.exportAll(ctx)
		if left := p.discard(); left > 0 {
			p.dropped.Add(uint64(left))
			p.logger.Warn("xexport: shutdown deadline reached, discarding telemetry",
				slog.Int("discarded", left))
			flushErr = errors.Join(flushErr, fmt.Errorf("%w: %d", ErrDiscarded, left))
		}
		err = errors.Join(flushErr, p.exp.Shutdown(ctx))
	})
	return err
}

func (p *BatchProcessor[T]) discard() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	p.queue = nil
	return n
}

// Stats 返回处理器统计。
func (p *BatchProcessor[T]) Stats() []Stats {
	p.mu.Lock()
	queued := len(p.queue)
	p.mu.Unlock()
	return []Stats{{
		Name:          p.cfg.Name,
		Discipline:    "batch",
		Enqueued:      p.enqueued.Load(),
		Exported:      p.exported.Load(),
		Dropped:       p.dropped.Load(),
		FailedBatches: p.failedBatches.Load(),
		Queued:        queued,
	}}
}

var (
	_ Processor[int] = (*BatchProcessor[int])(nil)
	_ StatsReporter  = (*BatchProcessor[int])(nil)
)
