package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtel/pkg/observability/xexport"
	"github.com/omeyang/xtel/pkg/observability/xrotate"
)

// 服务标识字段
const (
	KeyServiceName    = "service.name"
	KeyServiceVersion = "service.version"
	KeyEnvironment    = "deployment.environment"
)

// ReplaceAttrFunc 属性替换函数，用于字段重命名、脱敏、过滤。
// 返回空 Key 的 Attr 会移除该属性。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Builder 日志配置构建器
//
// first-error-wins：第一个配置错误被保留并由 Build 返回。
type Builder struct {
	output       io.Writer
	levelVar     *slog.LevelVar
	format       string
	addSource    bool
	enableEnrich bool
	replaceAttr  ReplaceAttrFunc
	rotator      xrotate.Rotator
	exporter     xexport.LogProcessor
	service      []slog.Attr
	onError      func(error)
	err          error
}

// New 创建配置构建器。默认 stderr、Info、text 格式、启用 enrich。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:       os.Stderr,
		levelVar:     levelVar,
		format:       "text",
		enableEnrich: true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值使用 text
func (b *Builder) SetFormat(format string) *Builder {
	switch normalized := strings.ToLower(strings.TrimSpace(format)); normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.setErr(fmt.Errorf("xlog: unknown format %q", format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否注入 trace_id/span_id 等追踪字段，默认启用
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enableEnrich = enable
	return b
}

// SetRotation 输出到按大小轮转的文件，Build 返回的 cleanup 负责关闭
func (b *Builder) SetRotation(filename string, opts ...xrotate.Option) *Builder {
	rotator, err := xrotate.NewLumberjack(filename, opts...)
	if err != nil {
		b.setErr(err)
		return b
	}
	b.rotator = rotator
	b.output = rotator
	return b
}

// SetExporter 将每条日志同时交给日志导出管道。
//
// 处理器的生命周期由调用方管理（通常随 tracer provider 一起 Shutdown），
// cleanup 不会关闭它。
func (b *Builder) SetExporter(proc xexport.LogProcessor) *Builder {
	b.exporter = proc
	return b
}

// SetService 为每条日志添加服务标识，空字段跳过
func (b *Builder) SetService(name, version, environment string) *Builder {
	b.service = b.service[:0]
	for _, kv := range [...][2]string{
		{KeyServiceName, name},
		{KeyServiceVersion, version},
		{KeyEnvironment, environment},
	} {
		if kv[1] != "" {
			b.service = append(b.service, slog.String(kv[0], kv[1]))
		}
	}
	return b
}

// SetOnError 设置 Handler.Handle 失败时的回调。
//
// 回调在日志调用方的 goroutine 中同步执行，应保持轻量；
// 回调内部再次触发的日志错误不会重入回调。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// SetReplaceAttr 设置属性替换函数
//
//	logger, _, _ := xlog.New().
//		SetReplaceAttr(func(groups []string, a slog.Attr) slog.Attr {
//			if a.Key == "password" {
//				return slog.String(a.Key, "***")
//			}
//			return a
//		}).
//		Build()
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 构建 Logger
//
// handler 链（外到内）：enrich → export → text/json。
// 返回的 cleanup 关闭轮转文件，可重复调用。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		if b.rotator != nil {
			_ = b.rotator.Close()
		}
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:       b.levelVar,
		AddSource:   b.addSource,
		ReplaceAttr: levelNames(b.replaceAttr),
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}

	handler, err := NewExportHandler(handler, b.exporter)
	if err != nil {
		return nil, nil, err
	}
	if b.enableEnrich {
		if handler, err = NewEnrichHandler(handler); err != nil {
			return nil, nil, err
		}
	}
	if len(b.service) > 0 {
		handler = handler.WithAttrs(b.service)
	}

	logger := &xlogger{
		handler:        handler,
		levelVar:       b.levelVar,
		onError:        b.onError,
		errorCount:     new(atomic.Uint64),
		addSource:      b.addSource,
		inErrorHandler: new(atomic.Bool),
	}
	return logger, b.cleanup(), nil
}

// levelNames 让 LevelFatal 输出为 FATAL 而不是 ERROR+4
func levelNames(next ReplaceAttrFunc) ReplaceAttrFunc {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.LevelKey {
			if lv, ok := a.Value.Any().(slog.Level); ok {
				a.Value = slog.StringValue(Level(lv).String())
			}
		}
		if next != nil {
			return next(groups, a)
		}
		return a
	}
}

func (b *Builder) cleanup() func() error {
	var once sync.Once
	rotator := b.rotator
	return func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
