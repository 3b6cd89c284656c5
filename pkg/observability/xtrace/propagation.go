package xtrace

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtel/pkg/context/xctx"
)

// HTTP Header 名称
const (
	HeaderTraceparent = "traceparent"
	HeaderTracestate  = "tracestate"
	HeaderRequestID   = "X-Request-ID"

	// 兼容旧调用方的自定义 Header，仅在缺少 traceparent 时读取
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// maxRequestIDLen 超长的外部 request id 不予采信。
const maxRequestIDLen = 128

var propagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator 返回本包使用的传播器（W3C Trace Context + Baggage），
// 可用于 otel.SetTextMapPropagator。
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// ExtractHTTP 从 HTTP Header 提取远端 span context 与 request id，注入返回的 ctx。
//
// traceparent 缺失或非法时退回 X-Trace-ID / X-Span-ID；两者都不可用时
// ctx 中没有远端父节点，下一个 span 将成为新的根。
func ExtractHTTP(ctx context.Context, h http.Header) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if h == nil {
		return ctx
	}
	ctx = propagator.Extract(ctx, propagation.HeaderCarrier(h))
	ctx = withFallbackParent(ctx, h.Get(HeaderTraceID), h.Get(HeaderSpanID))
	return withRequestID(ctx, h.Get(HeaderRequestID))
}

// InjectHTTP 把 ctx 中的活跃 span context 与 request id 写入 HTTP Header。
func InjectHTTP(ctx context.Context, h http.Header) {
	if ctx == nil || h == nil {
		return
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(h))
	if id := xctx.RequestID(ctx); id != "" {
		h.Set(HeaderRequestID, id)
	}
}

// withFallbackParent 把自定义头部中的 trace_id / span_id 记入 ctx，
// 由 Start 还原为远端父节点。自定义头部不携带采样标志，按已采样处理。
func withFallbackParent(ctx context.Context, traceID, spanID string) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	traceID = strings.ToLower(strings.TrimSpace(traceID))
	spanID = strings.ToLower(strings.TrimSpace(spanID))
	if _, err := trace.TraceIDFromHex(traceID); err != nil {
		return ctx
	}
	if _, err := trace.SpanIDFromHex(spanID); err != nil {
		return ctx
	}
	next, err := xctx.WithTrace(ctx, xctx.Trace{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: "01",
	})
	if err != nil {
		return ctx
	}
	return next
}

func withRequestID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxRequestIDLen || xctx.RequestID(ctx) != "" {
		return ctx
	}
	if next, err := xctx.WithRequestID(ctx, id); err == nil {
		return next
	}
	return ctx
}
