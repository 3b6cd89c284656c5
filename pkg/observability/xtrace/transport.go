package xtrace

import (
	"net/http"
	"strconv"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// Transport 返回一个 http.RoundTripper：每个出站请求开启一个 client span，
// 并注入 traceparent 与 X-Request-ID。base 为 nil 时使用 http.DefaultTransport。
//
// 状态码 >= 400 或网络错误时 span 状态为 error。
func (t *Tracer) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &tracingTransport{base: base, tracer: t}
}

// Transport 使用 Default() Tracer 包装 base。
func Transport(base http.RoundTripper) http.RoundTripper {
	return Default().Transport(base)
}

type tracingTransport struct {
	base   http.RoundTripper
	tracer *Tracer
}

func (rt *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := rt.tracer.Start(req.Context(), "HTTP "+req.Method, SpanOptions{
		Kind: KindClient,
		Attrs: []xattr.Attr{
			xattr.String(string(semconv.HTTPRequestMethodKey), req.Method),
			xattr.String(string(semconv.URLFullKey), req.URL.Redacted()),
			xattr.String(string(semconv.ServerAddressKey), req.URL.Host),
		},
	})
	defer span.End()

	// RoundTripper 不得修改入参请求
	out := req.Clone(ctx)
	InjectHTTP(ctx, out.Header)

	resp, err := rt.base.RoundTrip(out)
	if err != nil {
		span.RecordException(err, "")
		span.SetStatus(StatusError, err.Error())
		return resp, err
	}
	span.SetAttributes(xattr.Int(string(semconv.HTTPResponseStatusCodeKey), resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(StatusError, "HTTP "+strconv.Itoa(resp.StatusCode))
	} else {
		span.SetStatus(StatusOK, "")
	}
	return resp, nil
}
