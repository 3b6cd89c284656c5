package xwrap_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xwrap"
)

func TestUnaryServerInterceptor(t *testing.T) {
	h := newHarness(t)
	interceptor := h.in.UnaryServerInterceptor("/grpc.health.v1.Health/")
	info := &grpc.UnaryServerInfo{FullMethod: "/shop.Orders/Get"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	))
	resp, err := interceptor(ctx, "req", info, func(ctx context.Context, _ any) (any, error) {
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", xctx.TraceID(ctx))
		return "resp", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "resp", resp)

	_, err = interceptor(context.Background(), "req", info, func(context.Context, any) (any, error) {
		return nil, status.Error(grpccodes.NotFound, "no such order")
	})
	assert.Equal(t, grpccodes.NotFound, status.Code(err))

	spans := h.spans.GetSpans().Snapshots()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "no such order", spans[1].Status().Description)

	assert.InDelta(t, 2.0, h.sum(t, xwrap.MetricRequestCount, map[string]any{xwrap.AttrRoute: "/shop.Orders/Get"}), 1e-9)
	assert.InDelta(t, 1.0, h.sum(t, xwrap.MetricRequestErrors, map[string]any{xwrap.AttrStatusCode: int64(404)}), 1e-9)
	assert.InDelta(t, 0.0, h.sum(t, xwrap.MetricActiveRequests, nil), 1e-9)
}

func TestUnaryServerInterceptor_SkipAndPanic(t *testing.T) {
	h := newHarness(t)
	interceptor := h.in.UnaryServerInterceptor("/grpc.health.v1.Health/")

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
		func(context.Context, any) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Empty(t, h.spans.GetSpans())

	assert.Panics(t, func() {
		_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/shop.Orders/Crash"},
			func(context.Context, any) (any, error) { panic("bad state") })
	})
	spans := h.spans.GetSpans().Snapshots()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.InDelta(t, 0.0, h.sum(t, xwrap.MetricActiveRequests, nil), 1e-9)
	assert.InDelta(t, 1.0, h.sum(t, xwrap.MetricRequestErrors, map[string]any{xwrap.AttrStatusCode: int64(500)}), 1e-9)
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[grpccodes.Code]int{
		grpccodes.OK:                http.StatusOK,
		grpccodes.Canceled:          499,
		grpccodes.InvalidArgument:   http.StatusBadRequest,
		grpccodes.Unauthenticated:   http.StatusUnauthorized,
		grpccodes.PermissionDenied:  http.StatusForbidden,
		grpccodes.NotFound:          http.StatusNotFound,
		grpccodes.AlreadyExists:     http.StatusConflict,
		grpccodes.ResourceExhausted: http.StatusTooManyRequests,
		grpccodes.Unimplemented:     http.StatusNotImplemented,
		grpccodes.Unavailable:       http.StatusServiceUnavailable,
		grpccodes.DeadlineExceeded:  http.StatusGatewayTimeout,
		grpccodes.Internal:          http.StatusInternalServerError,
		grpccodes.DataLoss:          http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, xwrap.HTTPStatusFromCode(code), code.String())
	}
}
