package xtel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtel/pkg/observability/xexport"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/observability/xsampling"
	"github.com/omeyang/xtel/pkg/observability/xtrace"
	"github.com/omeyang/xtel/pkg/observability/xwrap"
)

// Telemetry 进程级遥测实例。除 Shutdown 外的方法都可并发调用。
type Telemetry struct {
	mu  sync.RWMutex
	cfg Config

	internal *slog.Logger
	sampler  *xsampling.ParentRatioSampler
	spans    *xexport.SpanProcessor
	logs     *xexport.Fanout[xexport.LogRecord]
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider

	tracer   *xtrace.Tracer
	registry *xmetrics.Registry
	logger   xlog.LoggerWithLevel
	closeLog func() error

	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New 按 cfg 创建遥测实例。cfg 必须通过 Validate。
//
// 构建过程中任何一步失败，已创建的部分会被关闭后返回错误。
func New(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{output: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.internal == nil {
		o.internal = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	t := &Telemetry{cfg: cfg, internal: o.internal}
	ok := false
	defer func() {
		if !ok {
			_ = t.shutdown(context.WithoutCancel(ctx))
		}
	}()

	res, err := newResource(ctx, cfg.Service)
	if err != nil {
		return nil, err
	}
	if t.sampler, err = xsampling.ParentRatio(cfg.Sampling.Ratio); err != nil {
		return nil, err
	}
	if err = t.initTraces(ctx, cfg, o, res); err != nil {
		return nil, err
	}
	if err = t.initMetrics(ctx, cfg, o, res); err != nil {
		return nil, err
	}
	if err = t.initLogs(cfg, o); err != nil {
		return nil, err
	}

	t.tracer = xtrace.NewTracer(xtrace.WithTracerProvider(t.tp))
	if o.setGlobal {
		otel.SetTracerProvider(t.tp)
		otel.SetMeterProvider(t.mp)
		otel.SetTextMapPropagator(xtrace.Propagator())
		xlog.SetDefault(t.logger)
	}
	ok = true
	return t, nil
}

func newResource(ctx context.Context, svc ServiceConfig) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(svc.Name)),
	}
	if svc.Version != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(svc.Version)))
	}
	if svc.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironment(svc.Environment)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("xtel: resource: %w", err)
	}
	return res, nil
}

func (t *Telemetry) batchConfig(name string, cfg Config) xexport.BatchConfig {
	return xexport.BatchConfig{
		Name:               name,
		ScheduledDelay:     cfg.Batch.ScheduledDelay,
		MaxExportBatchSize: cfg.Batch.MaxExportBatchSize,
		MaxQueueSize:       cfg.Batch.MaxQueueSize,
		ExportTimeout:      cfg.Batch.ExportTimeout,
		Logger:             t.internal,
	}
}

func (t *Telemetry) initTraces(ctx context.Context, cfg Config, o options, res *resource.Resource) error {
	var procs []xexport.Processor[sdktrace.ReadOnlySpan]

	if cfg.Traces.Console {
		p, err := xexport.NewImmediateProcessor[sdktrace.ReadOnlySpan](
			xexport.NewConsoleSpanExporter(o.output),
			xexport.WithImmediateName("console-spans"),
			xexport.WithImmediateLogger(t.internal),
		)
		if err != nil {
			return err
		}
		procs = append(procs, p)
	}
	if cfg.Traces.Endpoint != "" {
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Traces.Endpoint),
			otlptracehttp.WithHeaders(cfg.Traces.Headers),
		)
		if err != nil {
			return fmt.Errorf("xtel: otlp trace exporter: %w", err)
		}
		p, err := xexport.NewBatchProcessor(xexport.FromSpanExporter(exp), t.batchConfig("otlp-spans", cfg))
		if err != nil {
			return err
		}
		procs = append(procs, p)
	}
	for i, exp := range o.spanExporters {
		p, err := xexport.NewImmediateProcessor(xexport.FromSpanExporter(exp),
			xexport.WithImmediateName(fmt.Sprintf("spans-%d", i)),
			xexport.WithImmediateLogger(t.internal),
		)
		if err != nil {
			return err
		}
		procs = append(procs, p)
	}

	sp, err := xexport.NewSpanProcessor(xexport.NewFanout(procs...))
	if err != nil {
		return err
	}
	t.spans = sp
	t.tp = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(t.sampler),
		sdktrace.WithSpanProcessor(sp),
	)
	return nil
}

func (t *Telemetry) initMetrics(ctx context.Context, cfg Config, o options, res *resource.Resource) error {
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Metrics.Endpoint != "" {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(cfg.Metrics.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Metrics.Headers),
		)
		if err != nil {
			return fmt.Errorf("xtel: otlp metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.Metrics.Interval)),
		))
	}
	for _, r := range o.readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}
	t.mp = sdkmetric.NewMeterProvider(mpOpts...)

	reg, err := xmetrics.NewRegistry(
		xmetrics.WithMeterProvider(t.mp),
		xmetrics.WithCardinalityLimit(cfg.Metrics.CardinalityLimit),
		xmetrics.WithLogger(t.internal),
	)
	if err != nil {
		return err
	}
	t.registry = reg
	return nil
}

func (t *Telemetry) initLogs(cfg Config, o options) error {
	var procs []xexport.LogProcessor

	if cfg.Logs.Endpoint != "" {
		exp, err := xexport.NewHTTPLogExporter(xexport.HTTPLogConfig{
			Endpoint: cfg.Logs.Endpoint,
			Timeout:  cfg.Batch.ExportTimeout,
			Headers:  cfg.Logs.Headers,
			Logger:   t.internal,
		})
		if err != nil {
			return err
		}
		p, err := xexport.NewBatchProcessor[xexport.LogRecord](exp, t.batchConfig("http-logs", cfg))
		if err != nil {
			return err
		}
		procs = append(procs, p)
	}
	if cfg.Logs.File != "" && cfg.Logs.Console {
		p, err := xexport.NewImmediateProcessor[xexport.LogRecord](xexport.NewConsoleLogExporter(o.output),
			xexport.WithImmediateName("console-logs"),
			xexport.WithImmediateLogger(t.internal),
		)
		if err != nil {
			return err
		}
		procs = append(procs, p)
	}
	for i, exp := range o.logExporters {
		p, err := xexport.NewImmediateProcessor(exp,
			xexport.WithImmediateName(fmt.Sprintf("logs-%d", i)),
			xexport.WithImmediateLogger(t.internal),
		)
		if err != nil {
			return err
		}
		procs = append(procs, p)
	}
	t.logs = xexport.NewFanout(procs...)

	b := xlog.New().
		SetLevelString(cfg.Logs.Level).
		SetFormat(cfg.Logs.Format).
		SetService(cfg.Service.Name, cfg.Service.Version, cfg.Service.Environment).
		SetOnError(func(err error) {
			t.internal.Warn("xtel: log handler failed", slog.Any("error", err))
		})
	switch {
	case cfg.Logs.File != "":
		b.SetRotation(cfg.Logs.File)
	case cfg.Logs.Console:
		b.SetOutput(o.output)
	default:
		b.SetOutput(io.Discard)
	}
	if t.logs.Len() > 0 {
		b.SetExporter(t.logs)
	}

	logger, closeLog, err := b.Build()
	if err != nil {
		return err
	}
	t.logger, t.closeLog = logger, closeLog
	return nil
}

// Tracer 返回绑定本实例 TracerProvider 的 Tracer。
func (t *Telemetry) Tracer() *xtrace.Tracer { return t.tracer }

// Registry 返回指标注册表。
func (t *Telemetry) Registry() *xmetrics.Registry { return t.registry }

// Logger 返回关联日志 logger。
func (t *Telemetry) Logger() xlog.LoggerWithLevel { return t.logger }

// TracerProvider 返回底层 TracerProvider，供第三方 instrumentation 使用。
func (t *Telemetry) TracerProvider() trace.TracerProvider { return t.tp }

// MeterProvider 返回底层 MeterProvider。
func (t *Telemetry) MeterProvider() metric.MeterProvider { return t.mp }

// Config 返回当前生效的配置（含 Apply 之后的变更）。
func (t *Telemetry) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

// Instrumenter 创建绑定本实例三条信号的请求包装器。
func (t *Telemetry) Instrumenter(opts ...xwrap.Option) (*xwrap.Instrumenter, error) {
	return xwrap.New(t.tracer, t.registry, t.logger, opts...)
}

// SetSamplingRatio 运行时调整根 span 采样比例。
func (t *Telemetry) SetSamplingRatio(ratio float64) error {
	if err := t.sampler.SetRate(ratio); err != nil {
		return err
	}
	t.mu.Lock()
	t.cfg.Sampling.Ratio = ratio
	t.mu.Unlock()
	return nil
}

// SetLogLevel 运行时调整日志级别。
func (t *Telemetry) SetLogLevel(level string) error {
	lv, err := xlog.ParseLevel(level)
	if err != nil {
		return err
	}
	t.logger.SetLevel(lv)
	t.mu.Lock()
	t.cfg.Logs.Level = level
	t.mu.Unlock()
	return nil
}

// Apply 应用新配置中可热更新的部分：采样比例与日志级别。
// 其他字段的变化会被记录但不生效，直到进程重启。
func (t *Telemetry) Apply(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	old := t.Config()
	if err := t.SetSamplingRatio(cfg.Sampling.Ratio); err != nil {
		return err
	}
	if err := t.SetLogLevel(cfg.Logs.Level); err != nil {
		return err
	}

	ctx := context.Background()
	if old.Sampling.Ratio != cfg.Sampling.Ratio || old.Logs.Level != cfg.Logs.Level {
		t.logger.Info(ctx, "telemetry config applied",
			slog.Float64("sampling.ratio", cfg.Sampling.Ratio),
			slog.String("logs.level", cfg.Logs.Level))
	}
	if restartRequired(old, cfg) {
		t.logger.Warn(ctx, "telemetry config change requires restart")
	}
	return nil
}

func restartRequired(old, cfg Config) bool {
	old.Sampling, cfg.Sampling = SamplingConfig{}, SamplingConfig{}
	old.Logs.Level, cfg.Logs.Level = "", ""
	return fmt.Sprint(old) != fmt.Sprint(cfg)
}

// Stats 遥测管线运行统计。
type Stats struct {
	Spans         []xexport.Stats `json:"spans"`
	Logs          []xexport.Stats `json:"logs"`
	Metrics       xmetrics.Stats  `json:"metrics"`
	SamplingRatio float64         `json:"sampling_ratio"`
	LogLevel      string          `json:"log_level"`
}

// Stats 返回各管线的队列与丢弃统计。
func (t *Telemetry) Stats() Stats {
	return Stats{
		Spans:         t.spans.Stats(),
		Logs:          t.logs.Stats(),
		Metrics:       t.registry.Stats(),
		SamplingRatio: t.sampler.Rate(),
		LogLevel:      t.logger.GetLevel().String(),
	}
}

// ForceFlush 立即导出所有已缓冲的数据。Shutdown 之后调用返回 ErrShutdown。
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	return errors.Join(
		t.tp.ForceFlush(ctx),
		t.mp.ForceFlush(ctx),
		t.logs.ForceFlush(ctx),
	)
}

// Shutdown 依次关闭追踪、指标与日志管线，只执行一次。
//
// ctx 没有截止时间时使用配置的 ShutdownTimeout；超时后剩余数据被丢弃。
// 返回的错误只用于记录，进程退出不应依赖它。
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		t.closed.Store(true)
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.Config().ShutdownTimeout)
			defer cancel()
		}
		t.shutdownErr = t.shutdown(ctx)
		if t.shutdownErr != nil {
			t.internal.Warn("xtel: shutdown incomplete", slog.Any("error", t.shutdownErr))
		}
	})
	return t.shutdownErr
}

func (t *Telemetry) shutdown(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	} else if t.spans != nil {
		errs = append(errs, t.spans.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	if t.logs != nil {
		errs = append(errs, t.logs.Shutdown(ctx))
	}
	if t.closeLog != nil {
		errs = append(errs, t.closeLog())
	}
	return errors.Join(errs...)
}
