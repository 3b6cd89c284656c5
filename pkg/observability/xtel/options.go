package xtel

import (
	"io"
	"log/slog"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtel/pkg/observability/xexport"
)

// Option 配置 New。
type Option func(*options)

type options struct {
	output        io.Writer
	internal      *slog.Logger
	setGlobal     bool
	spanExporters []sdktrace.SpanExporter
	logExporters  []xexport.LogExporter
	readers       []sdkmetric.Reader
}

// WithOutput 设置控制台输出（日志与控制台 span），默认 os.Stdout。
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithInternalLogger 设置导出管线与指标注册表的内部告警 logger。
// 该 logger 不能指向本实例的日志管线，否则导出失败会重入。
func WithInternalLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.internal = l
		}
	}
}

// WithSetGlobal 把 provider、propagator 与 logger 注册为进程全局默认值。
func WithSetGlobal() Option {
	return func(o *options) {
		o.setGlobal = true
	}
}

// WithSpanExporter 追加一个逐条导出的 span 导出器，常用于测试。
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		if exp != nil {
			o.spanExporters = append(o.spanExporters, exp)
		}
	}
}

// WithLogExporter 追加一个逐条导出的日志导出器。
func WithLogExporter(exp xexport.LogExporter) Option {
	return func(o *options) {
		if exp != nil {
			o.logExporters = append(o.logExporters, exp)
		}
	}
}

// WithMetricReader 追加一个指标 Reader，例如 sdkmetric.NewManualReader()。
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.readers = append(o.readers, r)
		}
	}
}
