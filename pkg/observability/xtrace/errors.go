package xtrace

import (
	"errors"
	"fmt"
)

// ErrPanic 表示被追踪的函数发生了 panic。
var ErrPanic = errors.New("xtrace: panic")

// panicError 把 recover 得到的值转换为 error。
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
