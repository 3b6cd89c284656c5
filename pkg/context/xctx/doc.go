// Package xctx 提供请求级遥测上下文的承载能力（Context Carrier）。
//
// 当前活跃的工作单元（unit of work）由 OpenTelemetry 的 [trace.SpanContext] 表示：
//   - trace_id    : 128-bit，同一逻辑请求内所有工作单元共享
//   - span_id     : 64-bit，每个工作单元唯一
//   - trace_flags : 采样标志，在根节点决定一次，子节点继承
//
// 另外维护业务层面的 request_id（uuid v4）。
//
// # 传播模型
//
// Go 中没有隐式的协程局部存储，context.Context 就是承载体：
// 嵌套调用只要沿调用链传递 ctx，就能通过 [Current] 找到"当前工作单元"，
// 无需显式传递 span 句柄。
//
// 由于 context 不可变，[Run] 派生出的 ctx 只在 fn 内可见；
// fn 返回、panic 或并发交错执行时，调用方持有的 ctx 不受影响，
// 不存在"恢复上一个上下文"的时序问题。两个并发请求各自持有独立的 ctx 链，
// 不会互相污染。
//
// # 哨兵值
//
// 没有活跃工作单元时，[Current] 返回零值 SpanContext，
// [CorrelationIDs] 返回全零哨兵 [SentinelTraceID] / [SentinelSpanID]。
// 缺失是正常状态，不是错误。
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：缺失时返回零值
//	EnsureXxx(ctx)         - 确保存在：若已存在则返回，否则自动生成
//
// 读取顺序：优先使用 ctx 中活跃的 OTel span context，
// 其次回退到 WithTraceID/WithSpanID/WithTraceFlags 注入的字符串值
// （例如从 X-Trace-ID / X-Span-ID 头部解析得到、但尚未建立 span 的场景）。
package xctx
