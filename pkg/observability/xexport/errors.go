package xexport

import "errors"

var (
	// ErrNilExporter 表示传入的 Exporter 为 nil。
	ErrNilExporter = errors.New("xexport: nil exporter")
	// ErrShutdown 表示 Processor 已关闭。
	ErrShutdown = errors.New("xexport: processor is shut down")
	// ErrExport 表示一次导出失败。
	ErrExport = errors.New("xexport: export failed")
	// ErrDiscarded 表示关闭超时后仍有条目未导出。
	ErrDiscarded = errors.New("xexport: items discarded at shutdown")
)
