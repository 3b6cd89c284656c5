package xexport

import (
	"context"
	"log/slog"
	"os"
)

// Exporter 把一批条目发送到某个 sink。
//
// Export 不会被同一 Processor 并发调用。
type Exporter[T any] interface {
	Export(ctx context.Context, items []T) error
	Shutdown(ctx context.Context) error
}

// Processor 接收已关闭的条目并按自身纪律转交 Exporter。
type Processor[T any] interface {
	// OnEnd 接收一个已关闭的条目，永不阻塞、永不失败。
	OnEnd(item T)
	// ForceFlush 导出当前所有待发送条目。
	ForceFlush(ctx context.Context) error
	// Shutdown 排空队列并关闭 Exporter，可重复调用。
	Shutdown(ctx context.Context) error
}

// Stats 是单个 Processor 的运行统计。
type Stats struct {
	Name          string `json:"name"`
	Discipline    string `json:"discipline"`
	Enqueued      uint64 `json:"enqueued"`
	Exported      uint64 `json:"exported"`
	Dropped       uint64 `json:"dropped"`
	FailedBatches uint64 `json:"failed_batches"`
	Queued        int    `json:"queued"`
}

// StatsReporter 由可以报告统计信息的 Processor 实现。
type StatsReporter interface {
	Stats() []Stats
}

// ExporterFunc 把函数适配为 Exporter，Shutdown 为空操作。
type ExporterFunc[T any] func(ctx context.Context, items []T) error

// Export 实现 Exporter。
func (f ExporterFunc[T]) Export(ctx context.Context, items []T) error {
	return f(ctx, items)
}

// Shutdown 实现 Exporter。
func (f ExporterFunc[T]) Shutdown(context.Context) error {
	return nil
}

// internalLogger 返回管线内部使用的 logger。
//
// 内部告警走独立的 stderr handler，不能回到 xlog 管线。
func internalLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
