package xlog

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xexport"
)

// ExportHandler 将每条日志复制一份交给日志导出管道，再委托给底层 handler。
//
// 记录交给处理器后即不再修改：Attributes 为独立构建的 map。
// trace_id/span_id 取自 ctx 并写入 LogRecord 的专用字段，不重复出现在 Attributes 中。
// 处理器的 OnEnd 不阻塞，导出失败由管道自身记录，不会回到本 logger。
type ExportHandler struct {
	base   slog.Handler
	proc   xexport.LogProcessor
	attrs  []slog.Attr
	groups []string
}

// NewExportHandler 创建 ExportHandler。proc 为 nil 时直接返回 base。
func NewExportHandler(base slog.Handler, proc xexport.LogProcessor) (slog.Handler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	if proc == nil {
		return base, nil
	}
	return &ExportHandler{base: base, proc: proc}, nil
}

// Enabled 委托给底层 handler，导出与本地输出使用同一级别
func (h *ExportHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 构建 LogRecord 交给处理器，然后写入底层 handler。
func (h *ExportHandler) Handle(ctx context.Context, r slog.Record) error {
	h.proc.OnEnd(h.record(ctx, r))
	return h.base.Handle(ctx, r)
}

func (h *ExportHandler) record(ctx context.Context, r slog.Record) xexport.LogRecord {
	traceID, spanID := xctx.CorrelationIDs(ctx)
	level := Level(r.Level)

	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		putAttr(attrs, "", a)
	}
	prefix := groupPrefix(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		putAttr(attrs, prefix, a)
		return true
	})
	// 追踪字段已有专用位置
	delete(attrs, prefix+xctx.KeyTraceID)
	delete(attrs, prefix+xctx.KeySpanID)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return xexport.LogRecord{
		Timestamp:    ts,
		Severity:     level.Severity(),
		SeverityText: level.Severity().String(),
		Body:         r.Message,
		Attributes:   attrs,
		TraceID:      traceID,
		SpanID:       spanID,
	}
}

// WithAttrs 返回带额外属性的新 handler
func (h *ExportHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := groupPrefix(h.groups)
	grouped := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	grouped = append(grouped, h.attrs...)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		grouped = append(grouped, a)
	}
	return &ExportHandler{
		base:   h.base.WithAttrs(attrs),
		proc:   h.proc,
		attrs:  grouped,
		groups: h.groups,
	}
}

// WithGroup 返回带分组的新 handler，导出时分组以 "." 连接到 key 前缀
func (h *ExportHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ExportHandler{
		base:   h.base.WithGroup(name),
		proc:   h.proc,
		attrs:  h.attrs,
		groups: append(slices.Clip(h.groups), name),
	}
}

func groupPrefix(groups []string) string {
	var prefix string
	for _, g := range groups {
		prefix += g + "."
	}
	return prefix
}

// putAttr 展平 group 属性，解析 LogValuer。
func putAttr(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return
	}
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			putAttr(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = attrValue(v)
}

func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return float64(v.Duration()) / float64(time.Millisecond)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	}
}
