package xingest

import "time"

const (
	// DefaultMaxBodyBytes 默认请求体上限（1 MiB）。
	DefaultMaxBodyBytes int64 = 1 << 20

	// DefaultMaxEvents 默认单批事件数上限。
	DefaultMaxEvents = 500

	// DefaultMaxMetricNames 默认允许客户端创建的不同指标名数量。
	DefaultMaxMetricNames = 1000

	// MaxNameLength 事件名最大长度（字符数）。
	MaxNameLength = 256
)

// Option 配置 Handler。
type Option func(*Handler)

// WithMaxBodyBytes 设置请求体上限，n <= 0 时忽略。
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithMaxEvents 设置单批事件数上限，n <= 0 时忽略。
func WithMaxEvents(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxEvents = n
		}
	}
}

// WithMaxMetricNames 设置客户端指标名数量上限，n <= 0 时忽略。
func WithMaxMetricNames(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMetrics = n
		}
	}
}

// WithClock 替换时间源，缺省时间戳取自该函数。
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}
