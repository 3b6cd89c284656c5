package xmetrics

import "errors"

var (
	// ErrCreateInstrument 表示创建 OTel instrument 失败。
	ErrCreateInstrument = errors.New("xmetrics: create instrument failed")
	// ErrInvalidBuckets 表示 Histogram 桶边界配置无效（必须严格递增且为有限值）。
	ErrInvalidBuckets = errors.New("xmetrics: invalid histogram buckets")
	// ErrEmptyName 表示 instrument 名称为空。
	ErrEmptyName = errors.New("xmetrics: empty instrument name")
	// ErrKindMismatch 表示同名 instrument 已以其他类型注册。
	ErrKindMismatch = errors.New("xmetrics: instrument kind mismatch")
	// ErrInvalidKind 表示未知的 instrument 类型。
	ErrInvalidKind = errors.New("xmetrics: invalid instrument kind")
)
