package xwrap

import (
	"context"
	"net/http"
	"time"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xattr"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xtrace"
)

// grpcMethod gRPC 调用在指标中的 http.method 标签
const grpcMethod = "POST"

// UnaryServerInterceptor 返回 gRPC 一元服务端拦截器。
//
// route 为完整方法名（/pkg.Service/Method），状态码由 gRPC code 映射为 HTTP 状态，
// 其余语义与 Wrap 相同：handler panic 在记录后原样重新抛出。
func (in *Instrumenter) UnaryServerInterceptor(skipMethods ...string) grpc.UnaryServerInterceptor {
	skip := Options{SkipPaths: skipMethods}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if skip.skip(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		route := info.FullMethod

		ctx = xtrace.ExtractGRPC(ctx)
		if next, idErr := xctx.EnsureRequestID(ctx); idErr == nil {
			ctx = next
		}
		defer in.enter(ctx, route)()

		ctx, span := in.tracer.Start(ctx, route, xtrace.SpanOptions{
			Kind: xtrace.KindServer,
			Attrs: []xattr.Attr{
				xattr.String(string(semconv.RPCSystemKey), "grpc"),
				xattr.String("rpc.method.full", route),
			},
		})
		defer span.End()

		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			perr := panicError(rv)
			d := time.Since(start)
			span.RecordException(perr, "")
			span.SetAttributes(xattr.Int64(string(semconv.RPCGRPCStatusCodeKey), int64(codes.Internal)))
			span.SetStatus(xtrace.StatusError, perr.Error())
			in.recordRequest(ctx, route, grpcMethod, http.StatusInternalServerError, d, true)
			in.logger.Error(ctx, "grpc handler panic", xlog.Route(route), xlog.Duration(d), xlog.Err(perr))
			panic(rv)
		}()

		resp, err = handler(ctx, req)

		code := status.Code(err)
		httpStatus := HTTPStatusFromCode(code)
		d := time.Since(start)
		span.SetAttributes(xattr.Int64(string(semconv.RPCGRPCStatusCodeKey), int64(code)))
		if err != nil {
			span.RecordException(err, "")
			span.SetStatus(xtrace.StatusError, status.Convert(err).Message())
		} else {
			span.SetStatus(xtrace.StatusOK, "")
		}
		in.recordRequest(ctx, route, grpcMethod, httpStatus, d, true)
		in.logResponse(ctx, grpcMethod, route, httpStatus, d, xlog.Err(err))
		return resp, err
	}
}

// HTTPStatusFromCode 把 gRPC 状态码映射为对应的 HTTP 状态码。
func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
