package xtrace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// DefaultInstrumentationName 默认 instrumentation scope 名称。
const DefaultInstrumentationName = "github.com/omeyang/xtel"

// Option 配置 Tracer。
type Option func(*options)

type options struct {
	provider trace.TracerProvider
	name     string
}

// WithTracerProvider 设置 TracerProvider，nil 时使用全局 provider。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.provider = tp
		}
	}
}

// WithInstrumentationName 设置 instrumentation scope 名称。
func WithInstrumentationName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// Tracer 创建 span。并发安全。
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer 创建 Tracer。
func NewTracer(opts ...Option) *Tracer {
	o := options{name: DefaultInstrumentationName}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.provider == nil {
		o.provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: o.provider.Tracer(o.name)}
}

// Default 返回基于全局 TracerProvider 的 Tracer。
//
// 全局 provider 在 otel.SetTracerProvider 之前为委托实现，
// 设置之后创建的 span 自动使用新的 provider。
func Default() *Tracer {
	return NewTracer()
}

// SpanOptions 定义 span 的创建参数。
type SpanOptions struct {
	// Kind 标识 span 类型，默认 KindInternal。
	Kind Kind
	// Attrs 初始属性。
	Attrs []xattr.Attr
	// Timestamp 开始时间，零值表示当前时间。
	Timestamp time.Time
}

// Start 以 ctx 中的活跃工作单元为父节点开启一个 span。
//
// 返回的 ctx 中新 span 为活跃工作单元。ctx 为 nil 时使用 context.Background()。
// 调用方必须调用 Span.End，推荐使用 Run 以保证关闭。
func (t *Tracer) Start(ctx context.Context, name string, opts SpanOptions) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ensureParent(ctx)

	startOpts := []trace.SpanStartOption{trace.WithSpanKind(opts.Kind.otel())}
	if kvs := xattr.ToOTel(opts.Attrs); len(kvs) > 0 {
		startOpts = append(startOpts, trace.WithAttributes(kvs...))
	}
	if !opts.Timestamp.IsZero() {
		startOpts = append(startOpts, trace.WithTimestamp(opts.Timestamp))
	}
	ctx, span := t.tracer.Start(ctx, name, startOpts...)
	return ctx, &Span{span: span}
}

// ensureParent 当 ctx 中没有 span context、但通过 xctx 注入了合法的
// trace_id / span_id 字符串时，把它们还原为远端父节点。
func ensureParent(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	traceID, spanID := xctx.TraceID(ctx), xctx.SpanID(ctx)
	if traceID == "" || spanID == "" {
		return ctx
	}
	tid, err := trace.TraceIDFromHex(traceID)
	if err != nil {
		return ctx
	}
	sid, err := trace.SpanIDFromHex(spanID)
	if err != nil {
		return ctx
	}
	var flags trace.TraceFlags
	if xctx.TraceFlags(ctx) == "01" {
		flags = trace.FlagsSampled
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// Run 在新 span 中同步执行 fn，保证 span 在所有退出路径上恰好关闭一次。
//
// fn 返回的 error 原样返回；fn 的 panic 在记录并关闭 span 后原样重新抛出。
func (t *Tracer) Run(ctx context.Context, name string, opts SpanOptions, fn func(ctx context.Context) error) error {
	_, err := RunValue(ctx, t, name, opts, func(ctx context.Context) (struct{}, error) {
		if fn == nil {
			return struct{}{}, nil
		}
		return struct{}{}, fn(ctx)
	})
	return err
}

// RunValue 与 Tracer.Run 相同，但 fn 可以返回一个值。
func RunValue[T any](ctx context.Context, t *Tracer, name string, opts SpanOptions, fn func(ctx context.Context) (T, error)) (result T, err error) {
	ctx, span := t.Start(ctx, name, opts)
	defer func() {
		if r := recover(); r != nil {
			span.fail(panicError(r))
			panic(r)
		}
		if err != nil {
			span.fail(err)
			return
		}
		span.SetStatus(StatusOK, "")
		span.End()
	}()
	if fn == nil {
		return result, nil
	}
	return fn(ctx)
}

// Go 在新 goroutine 中以新 span 执行 fn，关闭语义与 Run 相同。
//
// 返回的 channel 恰好收到一个结果后关闭；fn panic 时收到包装了 ErrPanic 的错误。
// span 在 Go 返回前已经开启，因此调用方之后开启的兄弟 span 不会成为它的子节点。
func (t *Tracer) Go(ctx context.Context, name string, opts SpanOptions, fn func(ctx context.Context) error) <-chan error {
	ctx, span := t.Start(ctx, name, opts)
	out := make(chan error, 1)
	go func() {
		defer close(out)
		out <- runStarted(ctx, span, fn)
	}()
	return out
}

func runStarted(ctx context.Context, span *Span, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
		if err != nil {
			span.fail(err)
			return
		}
		span.SetStatus(StatusOK, "")
		span.End()
	}()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}
