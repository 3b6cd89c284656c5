package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xtel/pkg/context/xctx"
)

// ErrNilHandler 当 base handler 为 nil 时返回
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 从 context 提取追踪信息并注入每条日志
//
// trace_id 与 span_id 总是存在：没有活跃工作单元时使用全零哨兵。
// request_id 与 trace_flags 仅在 context 中有值时注入。
//
// 对 EnrichHandler 调用 WithGroup 后，注入字段也会归入该 group。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 注入追踪字段后交给底层 handler。
//
// 根据 slog 契约先 Clone record 再修改。ctx 为 nil 时注入哨兵值。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [4]slog.Attr
	attrs := xctx.AppendTraceAttrs(buf[:0], ctx)

	r = r.Clone()
	r.AddAttrs(attrs...)
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
