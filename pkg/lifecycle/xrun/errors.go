package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而退出。使用 errors.Is 判断。
	ErrSignal = errors.New("xrun: received signal")

	// ErrNilService 注册了 nil 服务。
	ErrNilService = errors.New("xrun: nil service")

	// ErrNilServer HTTPServer 收到 nil 服务器。
	ErrNilServer = errors.New("xrun: nil http server")

	// ErrInvalidInterval Ticker 的间隔必须为正数。
	ErrInvalidInterval = errors.New("xrun: interval must be positive")

	// ErrShutdownTimeout 清理函数未在超时内完成。
	ErrShutdownTimeout = errors.New("xrun: shutdown timed out")
)

// SignalError 记录触发退出的信号。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("xrun: received signal %v", e.Signal)
}

// Unwrap 使 errors.Is(err, ErrSignal) 成立。
func (e *SignalError) Unwrap() error {
	return ErrSignal
}
