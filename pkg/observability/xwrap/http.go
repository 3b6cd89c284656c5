package xwrap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xattr"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xtrace"
)

// ErrorHandler 返回 error 的 HTTP handler。
type ErrorHandler func(w http.ResponseWriter, r *http.Request) error

// Wrap 包装 h。h 为 nil 时返回的 handler 以 500 响应。
func (in *Instrumenter) Wrap(h http.Handler, o Options) http.Handler {
	if h == nil {
		h = nilHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o.skip(r.URL.Path) {
			h.ServeHTTP(w, r)
			return
		}
		in.serve(w, r, o, func(w http.ResponseWriter, r *http.Request) error {
			h.ServeHTTP(w, r)
			return nil
		})
	})
}

// WrapE 包装返回 error 的 handler。
//
// handler 返回的 error 被记录到 span 与日志，然后交给 ErrorResponder 写出响应；
// 指标中的状态码取已写出的 >=400 状态，否则为 500。
func (in *Instrumenter) WrapE(h ErrorHandler, o Options) http.Handler {
	if h == nil {
		return in.Wrap(nil, o)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o.skip(r.URL.Path) {
			if err := h(w, r); err != nil {
				in.respondErr(w, r, err)
			}
			return
		}
		in.serve(w, r, o, h)
	})
}

// WrapLight 只记录请求数与耗时：不开启 span、不写日志、不计入错误数与在途请求数。
func (in *Instrumenter) WrapLight(h http.Handler, o Options) http.Handler {
	if h == nil {
		h = nilHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o.skip(r.URL.Path) {
			h.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		status := http.StatusInternalServerError
		defer func() {
			in.recordRequest(r.Context(), routeOf(r), r.Method, status, time.Since(start), false)
		}()
		h.ServeHTTP(rec, r)
		status = rec.Status()
	})
}

func (in *Instrumenter) serve(w http.ResponseWriter, r *http.Request, o Options, h ErrorHandler) {
	start := time.Now()
	route := routeOf(r)

	ctx := xtrace.ExtractHTTP(r.Context(), r.Header)
	if next, err := xctx.EnsureRequestID(ctx); err == nil {
		ctx = next
	}

	defer in.enter(ctx, route)()

	xlog.HTTPRequest(ctx, in.logger, r)

	name := o.Name
	if name == "" {
		name = r.Method + " " + route
	}
	ctx, span := in.tracer.Start(ctx, name, xtrace.SpanOptions{
		Kind:  xtrace.KindServer,
		Attrs: in.spanAttrs(r, route, o),
	})
	defer span.End()

	rec := &recorder{ResponseWriter: w}
	req := r.WithContext(ctx)

	defer func() {
		rv := recover()
		if rv == nil {
			return
		}
		err := panicError(rv)
		d := time.Since(start)
		span.RecordException(err, "")
		span.SetAttributes(xattr.Int(string(semconv.HTTPResponseStatusCodeKey), http.StatusInternalServerError))
		span.SetStatus(xtrace.StatusError, err.Error())
		in.recordRequest(ctx, route, r.Method, http.StatusInternalServerError, d, true)
		in.logger.Error(ctx, "http handler panic",
			xlog.Method(r.Method), xlog.Route(route), xlog.StatusCode(http.StatusInternalServerError),
			xlog.Duration(d), xlog.Err(err))
		panic(rv)
	}()

	if err := h(rec, req); err != nil {
		in.respondErr(rec, req, err)
		status := rec.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		d := time.Since(start)
		span.RecordException(err, "")
		span.SetAttributes(xattr.Int(string(semconv.HTTPResponseStatusCodeKey), status))
		span.SetStatus(xtrace.StatusError, err.Error())
		in.recordRequest(ctx, route, r.Method, status, d, true)
		xlog.HTTPResponse(ctx, in.logger, r.Method, route, status, d, xlog.Err(err))
		return
	}

	status := rec.Status()
	d := time.Since(start)
	span.SetAttributes(xattr.Int(string(semconv.HTTPResponseStatusCodeKey), status))
	if status >= http.StatusBadRequest {
		span.SetStatus(xtrace.StatusError, "HTTP "+strconv.Itoa(status))
	} else {
		span.SetStatus(xtrace.StatusOK, "")
	}
	in.recordRequest(ctx, route, r.Method, status, d, true)
	xlog.HTTPResponse(ctx, in.logger, r.Method, route, status, d)
}

func (in *Instrumenter) spanAttrs(r *http.Request, route string, o Options) []xattr.Attr {
	attrs := make([]xattr.Attr, 0, 5+len(o.CustomAttributes))
	attrs = append(attrs,
		xattr.String(string(semconv.HTTPRequestMethodKey), r.Method),
		xattr.String(string(semconv.URLFullKey), r.URL.String()),
		xattr.String(string(semconv.HTTPRouteKey), route),
	)
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, xattr.String(string(semconv.UserAgentOriginalKey), ua))
	}
	attrs = append(attrs, o.CustomAttributes...)
	if params := routeParams(r); params != "" {
		attrs = append(attrs, xattr.String(AttrRouteParams, params))
	}
	return attrs
}

func nilHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, ErrNilHandler.Error(), http.StatusInternalServerError)
	})
}

// logResponse 供没有 *http.Request 的调用方（gRPC）复用响应日志字段
func (in *Instrumenter) logResponse(ctx context.Context, method, route string, status int, d time.Duration, attrs ...slog.Attr) {
	xlog.HTTPResponse(ctx, in.logger, method, route, status, d, attrs...)
}
