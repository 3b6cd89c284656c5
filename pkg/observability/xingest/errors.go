package xingest

import "errors"

var (
	// ErrNilRegistry 未提供指标注册表。
	ErrNilRegistry = errors.New("xingest: nil metric registry")

	// ErrEmptyName 事件名为空。
	ErrEmptyName = errors.New("xingest: empty event name")

	// ErrNameTooLong 事件名超过 MaxNameLength。
	ErrNameTooLong = errors.New("xingest: event name too long")

	// ErrInvalidType 事件类型不是 trace/metric/log 之一。
	ErrInvalidType = errors.New("xingest: invalid event type")

	// ErrInvalidTimestamp 时间戳既不是 RFC3339 字符串也不是 unix 毫秒。
	ErrInvalidTimestamp = errors.New("xingest: invalid timestamp")

	// ErrInvalidDuration trace 事件的 duration_ms 为负或超出可表示范围。
	ErrInvalidDuration = errors.New("xingest: invalid duration_ms")

	// ErrInvalidEvent 事件不是 JSON 对象或字段类型不符。
	ErrInvalidEvent = errors.New("xingest: invalid event")

	// ErrTooManyMetrics 客户端产生的不同指标名超过上限。
	ErrTooManyMetrics = errors.New("xingest: too many distinct client metrics")

	// ErrEmitPanic 分发事件时发生 panic。
	ErrEmitPanic = errors.New("xingest: panic while emitting event")
)
