package xwrap

import (
	"errors"
	"fmt"
)

var (
	// ErrNilRegistry 指标注册表为 nil。
	ErrNilRegistry = errors.New("xwrap: nil metrics registry")
	// ErrNilHandler 被包装的 handler 为 nil。
	ErrNilHandler = errors.New("xwrap: nil handler")
	// ErrPanic handler 发生 panic，仅用于记录，panic 本身会被原样重新抛出。
	ErrPanic = errors.New("xwrap: handler panic")
)

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
