package xtel

import "errors"

var (
	// ErrInvalidConfig 配置校验失败，具体原因通过 errors.Join 附带。
	ErrInvalidConfig = errors.New("xtel: invalid config")

	// ErrShutdown 实例已关闭。
	ErrShutdown = errors.New("xtel: telemetry already shut down")
)
