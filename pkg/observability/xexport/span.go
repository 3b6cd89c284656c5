package xexport

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanProcessor 实现 sdktrace.SpanProcessor，把已结束且被采样的 span
// 交给下游 Processor。
//
// OTel SDK 保证每个 span 只调用一次 OnEnd，重复 End 不会产生重复导出。
type SpanProcessor struct {
	next Processor[sdktrace.ReadOnlySpan]
}

// NewSpanProcessor 创建 span 处理器。next 为 nil 时返回 ErrNilExporter。
func NewSpanProcessor(next Processor[sdktrace.ReadOnlySpan]) (*SpanProcessor, error) {
	if next == nil {
		return nil, ErrNilExporter
	}
	return &SpanProcessor{next: next}, nil
}

// OnStart 实现 sdktrace.SpanProcessor，无操作。
func (p *SpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd 实现 sdktrace.SpanProcessor。未采样的 span 直接忽略。
func (p *SpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsSampled() {
		return
	}
	p.next.OnEnd(s)
}

// ForceFlush 实现 sdktrace.SpanProcessor。
func (p *SpanProcessor) ForceFlush(ctx context.Context) error {
	return p.next.ForceFlush(ctx)
}

// Shutdown 实现 sdktrace.SpanProcessor。
func (p *SpanProcessor) Shutdown(ctx context.Context) error {
	return p.next.Shutdown(ctx)
}

// Stats 返回下游统计（下游不支持时为 nil）。
func (p *SpanProcessor) Stats() []Stats {
	if r, ok := p.next.(StatsReporter); ok {
		return r.Stats()
	}
	return nil
}

// spanExporterAdapter 把 sdktrace.SpanExporter 适配为 Exporter。
type spanExporterAdapter struct {
	exp sdktrace.SpanExporter
}

// FromSpanExporter 把任意 sdktrace.SpanExporter（如 otlptracehttp）适配为 Exporter。
func FromSpanExporter(exp sdktrace.SpanExporter) Exporter[sdktrace.ReadOnlySpan] {
	if exp == nil {
		return nil
	}
	return spanExporterAdapter{exp: exp}
}

func (a spanExporterAdapter) Export(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return a.exp.ExportSpans(ctx, spans)
}

func (a spanExporterAdapter) Shutdown(ctx context.Context) error {
	return a.exp.Shutdown(ctx)
}

var (
	_ sdktrace.SpanProcessor = (*SpanProcessor)(nil)
	_ StatsReporter          = (*SpanProcessor)(nil)
)
