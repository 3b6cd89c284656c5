package xwrap

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/omeyang/xtel/pkg/observability/xattr"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/observability/xtrace"
)

// 指标名称
const (
	MetricRequestCount    = "http.server.request.count"
	MetricRequestDuration = "http.server.request.duration"
	MetricRequestErrors   = "http.server.request.errors"
	MetricActiveRequests  = "http.server.active_requests"
)

// 指标标签
const (
	AttrRoute       = "http.route"
	AttrMethod      = "http.method"
	AttrStatusCode  = "http.status_code"
	AttrStatusClass = "http.status_class"
	AttrRouteParams = "http.route.params"
)

// DefaultDurationBuckets 请求耗时直方图的默认桶边界（毫秒）。
var DefaultDurationBuckets = []float64{5, 10, 25, 50, 75, 100, 250, 500, 750, 1000, 2500, 5000, 7500, 10000}

// Instrumenter 持有包装器共享的 tracer、指标与 logger。并发安全。
type Instrumenter struct {
	tracer *xtrace.Tracer
	logger xlog.Logger

	count    *xmetrics.Instrument
	duration *xmetrics.Instrument
	errors   *xmetrics.Instrument
	active   *xmetrics.Instrument

	buckets    []float64
	respondErr ErrorResponder
}

// New 创建 Instrumenter 并注册 HTTP 指标。
//
// tracer 为 nil 时使用 xtrace.Default()，logger 为 nil 时使用 xlog.Default()。
func New(tracer *xtrace.Tracer, reg *xmetrics.Registry, logger xlog.Logger, opts ...Option) (*Instrumenter, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if tracer == nil {
		tracer = xtrace.Default()
	}
	if logger == nil {
		logger = xlog.Default()
	}
	in := &Instrumenter{
		tracer:     tracer,
		logger:     logger,
		buckets:    DefaultDurationBuckets,
		respondErr: defaultErrorResponder,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(in)
		}
	}

	var err error
	if in.count, err = reg.Counter(MetricRequestCount, xmetrics.InstrumentOptions{
		Description: "Number of HTTP requests handled", Unit: "{request}",
	}); err != nil {
		return nil, fmt.Errorf("xwrap: %w", err)
	}
	if in.duration, err = reg.Histogram(MetricRequestDuration, xmetrics.InstrumentOptions{
		Description: "HTTP request duration", Unit: "ms", Buckets: in.buckets,
	}); err != nil {
		return nil, fmt.Errorf("xwrap: %w", err)
	}
	if in.errors, err = reg.Counter(MetricRequestErrors, xmetrics.InstrumentOptions{
		Description: "Number of HTTP requests with status >= 400", Unit: "{request}",
	}); err != nil {
		return nil, fmt.Errorf("xwrap: %w", err)
	}
	if in.active, err = reg.UpDownCounter(MetricActiveRequests, xmetrics.InstrumentOptions{
		Description: "Number of in-flight HTTP requests", Unit: "{request}",
	}); err != nil {
		return nil, fmt.Errorf("xwrap: %w", err)
	}
	return in, nil
}

// StatusClass 返回 "1xx".."5xx"；范围外的状态码返回 "unknown"。
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// recordRequest 记录请求数、耗时，以及 status >= 400 时的错误数。
func (in *Instrumenter) recordRequest(ctx context.Context, route, method string, status int, d time.Duration, withErrors bool) {
	attrs := []xattr.Attr{
		xattr.String(AttrRoute, route),
		xattr.String(AttrMethod, method),
		xattr.Int(AttrStatusCode, status),
		xattr.String(AttrStatusClass, StatusClass(status)),
	}
	in.count.Record(ctx, 1, attrs...)
	in.duration.Record(ctx, float64(d)/float64(time.Millisecond), attrs...)
	if withErrors && status >= 400 {
		in.errors.Record(ctx, 1, attrs...)
	}
}

// enter active_requests +1，返回的函数 -1。
func (in *Instrumenter) enter(ctx context.Context, route string) func() {
	attr := xattr.String(AttrRoute, route)
	in.active.Record(ctx, 1, attr)
	return func() { in.active.Record(ctx, -1, attr) }
}
