package xrotate

import "io"

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志文件轮转器，可直接作为 xlog 或控制台导出器的输出目标。
// 实现必须并发安全；Close 后 Write 与 Rotate 返回 [ErrClosed]。
type Rotator interface {
	Write(p []byte) (n int, err error)
	Close() error
	// Rotate 关闭当前文件并重命名为备份，之后的写入进入新文件
	Rotate() error
}
