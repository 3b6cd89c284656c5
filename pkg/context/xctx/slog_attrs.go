package xctx

import (
	"context"
	"log/slog"
)

// AppendTraceAttrs 将 context 中的追踪信息追加到现有切片。
//
// trace_id 与 span_id 总是存在：没有活跃工作单元时使用全零哨兵，
// 保证日志的关联字段从不缺失。request_id 与 trace_flags 仅在非空时追加。
// 调用方可传入预分配的切片以避免堆分配。
func AppendTraceAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	traceID, spanID := CorrelationIDs(ctx)
	attrs = append(attrs,
		slog.String(KeyTraceID, traceID),
		slog.String(KeySpanID, spanID),
	)
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	if v := TraceFlags(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceFlags, v))
	}
	return attrs
}

// TraceAttrs 从 context 提取追踪信息，转换为 slog.Attr 切片。
// 每次调用会分配新切片，热路径建议使用 AppendTraceAttrs。
func TraceAttrs(ctx context.Context) []slog.Attr {
	return AppendTraceAttrs(make([]slog.Attr, 0, traceFieldCount), ctx)
}
