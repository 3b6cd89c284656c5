package xctx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// 常量
// =============================================================================

const (
	// TraceIDSize W3C 规范: 128-bit (16 bytes) -> 32 hex chars
	TraceIDSize = 16

	// SpanIDSize W3C 规范: 64-bit (8 bytes) -> 16 hex chars
	SpanIDSize = 8

	// SentinelTraceID 无活跃工作单元时日志中使用的 trace_id。
	SentinelTraceID = "00000000000000000000000000000000"

	// SentinelSpanID 无活跃工作单元时日志中使用的 span_id。
	SentinelSpanID = "0000000000000000"
)

// Trace Key 常量，遵循 OpenTelemetry 语义约定（下划线分隔）
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyRequestID  = "request_id"
	KeyTraceFlags = "trace_flags"

	traceFieldCount = 4
)

const (
	keyTraceID    = contextKey("xctx:trace_id")
	keySpanID     = contextKey("xctx:span_id")
	keyRequestID  = contextKey("xctx:request_id")
	keyTraceFlags = contextKey("xctx:trace_flags")
)

// =============================================================================
// 工作单元：Current / Run
// =============================================================================

// Current 返回 ctx 中当前活跃的工作单元。
//
// 没有活跃工作单元（或 ctx 为 nil）时返回零值 SpanContext：
// TraceID/SpanID 全零、未采样。该函数从不失败。
func Current(ctx context.Context) trace.SpanContext {
	if ctx == nil {
		return trace.SpanContext{}
	}
	return trace.SpanContextFromContext(ctx)
}

// IsActive 判断 ctx 中是否存在有效的工作单元。
func IsActive(ctx context.Context) bool {
	return Current(ctx).IsValid()
}

// Run 在 sc 作为活跃工作单元的派生 context 中执行 fn。
//
// 派生 context 仅对 fn 及其传递下去的调用可见。fn 返回或 panic 后，
// 调用方的 ctx 保持原样（context 不可变），因此无需显式恢复。
// ctx 为 nil 时使用 context.Background()；fn 为 nil 时直接返回 nil。
func Run(ctx context.Context, sc trace.SpanContext, fn func(ctx context.Context) error) error {
	_, err := RunValue(ctx, sc, func(ctx context.Context) (struct{}, error) {
		if fn == nil {
			return struct{}{}, nil
		}
		return struct{}{}, fn(ctx)
	})
	return err
}

// RunValue 与 Run 相同，但 fn 可以返回一个值。
func RunValue[T any](ctx context.Context, sc trace.SpanContext, fn func(ctx context.Context) (T, error)) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		var zero T
		return zero, nil
	}
	return fn(trace.ContextWithSpanContext(ctx, sc))
}

// CorrelationIDs 返回用于日志关联的 trace_id / span_id。
//
// 与 TraceID/SpanID 不同，缺失时返回全零哨兵而不是空字符串，
// 保证每条日志都带有这两个字段。
func CorrelationIDs(ctx context.Context) (traceID, spanID string) {
	traceID, spanID = TraceID(ctx), SpanID(ctx)
	if traceID == "" {
		traceID = SentinelTraceID
	}
	if spanID == "" {
		spanID = SentinelSpanID
	}
	return traceID, spanID
}

// =============================================================================
// TraceID / SpanID / TraceFlags
// =============================================================================

// WithTraceID 将 trace ID 以字符串形式注入 context。
//
// 仅在 ctx 中没有活跃 span context 时才会被 TraceID 读取到；
// 活跃 span 始终优先。如果 ctx 为 nil，返回 ErrNilContext。
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyTraceID, traceID), nil
}

// TraceID 返回当前 trace ID（32 位小写十六进制），不存在返回空字符串。
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if v, ok := ctx.Value(keyTraceID).(string); ok {
		return v
	}
	return ""
}

// WithSpanID 将 span ID 以字符串形式注入 context。
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keySpanID, spanID), nil
}

// SpanID 返回当前 span ID（16 位小写十六进制），不存在返回空字符串。
func SpanID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	if v, ok := ctx.Value(keySpanID).(string); ok {
		return v
	}
	return ""
}

// WithTraceFlags 将 trace flags 注入 context。
//
// 格式: 2 位十六进制字符串（"01" 表示已采样，"00" 表示未采样）。
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithTraceFlags(ctx context.Context, flags string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyTraceFlags, flags), nil
}

// TraceFlags 返回当前 trace flags，不存在返回空字符串。
func TraceFlags(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return fmt.Sprintf("%02x", byte(sc.TraceFlags()))
	}
	if v, ok := ctx.Value(keyTraceFlags).(string); ok {
		return v
	}
	return ""
}

// =============================================================================
// RequestID
// =============================================================================

// WithRequestID 将 request ID 注入 context。
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyRequestID, requestID), nil
}

// RequestID 从 context 提取 request ID，不存在返回空字符串
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// GenerateRequestID 生成 RequestID（uuid v4 字符串）。
func GenerateRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID 确保 context 中存在 RequestID。
//
// 已存在则原样返回（不验证），否则生成新的并注入。
// 如果 ctx 为 nil，返回 ErrNilContext。
func EnsureRequestID(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if RequestID(ctx) != "" {
		return ctx, nil
	}
	return WithRequestID(ctx, GenerateRequestID())
}

// =============================================================================
// Trace 结构体（批量注入）
// =============================================================================

// Trace 批量注入的追踪字段，空字段被跳过。
type Trace struct {
	TraceID    string
	SpanID     string
	RequestID  string
	TraceFlags string
}

// WithTrace 将 Trace 中的非空字段批量注入 context。
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithTrace(ctx context.Context, tr Trace) (context.Context, error) {
	return applyOptionalFields(ctx, []contextFieldSetter{
		{value: tr.TraceID, set: WithTraceID},
		{value: tr.SpanID, set: WithSpanID},
		{value: tr.RequestID, set: WithRequestID},
		{value: tr.TraceFlags, set: WithTraceFlags},
	})
}
