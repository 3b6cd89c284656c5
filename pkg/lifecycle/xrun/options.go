package xrun

import (
	"io"
	"log/slog"
	"os"
	"syscall"
)

// Option 配置 Run。
type Option func(*options)

type options struct {
	logger  *slog.Logger
	signals []os.Signal
	sigCh   <-chan os.Signal
	noSig   bool
}

func defaultOptions() *options {
	return &options{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT},
	}
}

// WithLogger 设置生命周期日志。默认丢弃。
//
// 这里使用 *slog.Logger 而不是 xlog.Logger：xrun 负责关闭遥测管线，
// 不能把自身日志写回正在关闭的管线。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSignals 替换监听的信号，默认 SIGINT/SIGTERM/SIGQUIT。空列表等同于 WithoutSignals。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *options) {
		o.signals = copied
		o.noSig = len(copied) == 0
	}
}

// WithSignalChannel 从给定通道而不是操作系统接收信号，主要用于测试。
func WithSignalChannel(ch <-chan os.Signal) Option {
	return func(o *options) {
		o.sigCh = ch
	}
}

// WithoutSignals 不监听信号，退出完全由 ctx 与服务决定。
func WithoutSignals() Option {
	return func(o *options) {
		o.noSig = true
	}
}
