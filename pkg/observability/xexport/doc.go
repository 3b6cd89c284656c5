// Package xexport 提供遥测信号的批量导出管线。
//
// 每种信号（span、日志）有一个队列和若干 sink，sink 各自选择处理纪律：
//
//   - [BatchProcessor]: 累积已关闭的条目，满足 ScheduledDelay 到期或
//     队列达到 MaxExportBatchSize 任一条件即导出；队列满时丢弃最新条目并计数，
//     入队永不阻塞请求路径。
//   - [ImmediateProcessor]: 每个条目关闭时同步导出，用于开发控制台。
//
// [Fanout] 把同一信号分发给多个 Processor。
//
// # 错误处理
//
// 导出失败不会传播到业务代码：错误写入内部 *slog.Logger 并计数，
// 下一次自然的定时刷新是唯一的重试。内部日志使用独立的 stderr logger，
// 不经过被服务的 xlog 管线，避免递归。
//
// # 关闭
//
// Shutdown(ctx) 在 ctx 截止前尽量导出全部剩余条目；
// 超时后剩余条目被丢弃并记录一条警告，不视为致命错误。
//
// # Span 与日志
//
//   - [SpanProcessor] 实现 sdktrace.SpanProcessor，把已结束且被采样的 span
//     交给任意 Processor[sdktrace.ReadOnlySpan]。
//   - [FromSpanExporter] 把 sdktrace.SpanExporter（如 otlptracehttp）适配为 Exporter。
//   - [LogRecord] 是日志信号的导出单元。
package xexport
