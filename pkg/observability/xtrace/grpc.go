package xtrace

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// gRPC metadata key（小写加连字符）。
const (
	MetaRequestID = "x-request-id"
	MetaTraceID   = "x-trace-id"
	MetaSpanID    = "x-span-id"
)

// metadataCarrier 把 metadata.MD 适配为 propagation.TextMapCarrier。
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	if v := metadata.MD(c).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

var _ propagation.TextMapCarrier = metadataCarrier(nil)

// ExtractGRPC 从 incoming metadata 提取远端 span context 与 request id。
func ExtractGRPC(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	carrier := metadataCarrier(md)
	ctx = propagator.Extract(ctx, carrier)
	ctx = withFallbackParent(ctx, carrier.Get(MetaTraceID), carrier.Get(MetaSpanID))
	return withRequestID(ctx, carrier.Get(MetaRequestID))
}

// InjectGRPC 把活跃 span context 与 request id 追加到 outgoing metadata。
func InjectGRPC(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	propagator.Inject(ctx, metadataCarrier(md))
	if id := xctx.RequestID(ctx); id != "" {
		md.Set(MetaRequestID, id)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryClientInterceptor 返回 gRPC 一元客户端拦截器：
// 每次调用开启 client span，并传播 trace context 与 request id。
func (t *Tracer) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		ctx, span := t.Start(ctx, method, SpanOptions{
			Kind: KindClient,
			Attrs: []xattr.Attr{
				xattr.String(string(semconv.RPCSystemKey), "grpc"),
				xattr.String("rpc.method.full", method),
			},
		})
		defer span.End()

		err := invoker(InjectGRPC(ctx), method, req, reply, cc, opts...)
		code := status.Code(err)
		span.SetAttributes(xattr.Int64(string(semconv.RPCGRPCStatusCodeKey), int64(code)))
		if code != codes.OK {
			span.RecordException(err, "")
			span.SetStatus(StatusError, status.Convert(err).Message())
			return err
		}
		span.SetStatus(StatusOK, "")
		return nil
	}
}

// GRPCUnaryClientInterceptor 使用 Default() Tracer 的客户端拦截器。
func GRPCUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return Default().UnaryClientInterceptor()
}
