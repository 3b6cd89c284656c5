package xtrace

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// Span 是一个 open → closed 的工作单元句柄。
//
// 所有方法在 span 关闭后调用都是空操作，nil *Span 也可以安全调用。
type Span struct {
	span    trace.Span
	endOnce sync.Once
}

// End 关闭 span 并交给导出管线。幂等。
func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	s.endOnce.Do(func() {
		s.span.End()
	})
}

// EndAt 以指定时间关闭 span，用于回放已发生的工作单元。与 End 共享幂等语义。
func (s *Span) EndAt(ts time.Time) {
	if s == nil || s.span == nil {
		return
	}
	s.endOnce.Do(func() {
		s.span.End(trace.WithTimestamp(ts))
	})
}

// SetStatus 设置结束状态。StatusError 时 msg 作为描述。
func (s *Span) SetStatus(status Status, msg string) {
	if s == nil || s.span == nil {
		return
	}
	switch status {
	case StatusOK:
		s.span.SetStatus(codes.Ok, "")
	case StatusError:
		s.span.SetStatus(codes.Error, msg)
	default:
		s.span.SetStatus(codes.Unset, "")
	}
}

// SetAttributes 设置属性，同一 key 后写者生效。
func (s *Span) SetAttributes(attrs ...xattr.Attr) {
	if s == nil || s.span == nil || len(attrs) == 0 {
		return
	}
	s.span.SetAttributes(xattr.ToOTel(attrs)...)
}

// AddEvent 追加一个带时间戳的事件。
func (s *Span) AddEvent(name string, attrs ...xattr.Attr) {
	if s == nil || s.span == nil {
		return
	}
	addEvent(s.span, name, attrs)
}

// RecordException 记录一个异常事件。message 非空时附加为 exception.context 属性。
// 不修改 span 状态。
func (s *Span) RecordException(err error, message string) {
	if s == nil || s.span == nil {
		return
	}
	recordException(s.span, err, message)
}

// SpanContext 返回 span 的标识（trace_id、span_id、sampled）。
func (s *Span) SpanContext() trace.SpanContext {
	if s == nil || s.span == nil {
		return trace.SpanContext{}
	}
	return s.span.SpanContext()
}

// IsRecording 返回 span 是否仍在记录（未关闭且被采样或需记录）。
func (s *Span) IsRecording() bool {
	if s == nil || s.span == nil {
		return false
	}
	return s.span.IsRecording()
}

// fail 记录错误、设置 error 状态并关闭。
func (s *Span) fail(err error) {
	s.RecordException(err, "")
	s.SetStatus(StatusError, err.Error())
	s.End()
}

// =============================================================================
// 作用于活跃 span 的包级函数
// =============================================================================

// active 返回 ctx 中仍在记录的 span，没有时返回 nil。
func active(ctx context.Context) trace.Span {
	if ctx == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}
	return span
}

// SetAttributes 为活跃 span 设置属性；没有活跃 span 时静默忽略。
func SetAttributes(ctx context.Context, attrs ...xattr.Attr) {
	if span := active(ctx); span != nil && len(attrs) > 0 {
		span.SetAttributes(xattr.ToOTel(attrs)...)
	}
}

// AddEvent 为活跃 span 追加事件；没有活跃 span 时静默忽略。
func AddEvent(ctx context.Context, name string, attrs ...xattr.Attr) {
	if span := active(ctx); span != nil {
		addEvent(span, name, attrs)
	}
}

// RecordException 为活跃 span 记录异常；没有活跃 span 或 err 为 nil 时静默忽略。
func RecordException(ctx context.Context, err error, message string) {
	if span := active(ctx); span != nil {
		recordException(span, err, message)
	}
}

func addEvent(span trace.Span, name string, attrs []xattr.Attr) {
	if kvs := xattr.ToOTel(attrs); len(kvs) > 0 {
		span.AddEvent(name, trace.WithAttributes(kvs...))
		return
	}
	span.AddEvent(name)
}

func recordException(span trace.Span, err error, message string) {
	if err == nil {
		return
	}
	opts := []trace.EventOption{trace.WithStackTrace(true)}
	if message != "" {
		opts = append(opts, trace.WithAttributes(attribute.String("exception.context", message)))
	}
	span.RecordError(err, opts...)
}
