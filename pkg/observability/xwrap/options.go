package xwrap

import (
	"net/http"
	"strings"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// Options 单个被包装 handler 的参数。
type Options struct {
	// Name span 名称；为空时使用 "<METHOD> <route>"。
	Name string
	// SkipPaths 路径前缀，命中时不产生任何遥测。
	SkipPaths []string
	// CustomAttributes 附加到 span 上的属性。
	CustomAttributes []xattr.Attr
}

func (o Options) skip(path string) bool {
	for _, p := range o.SkipPaths {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ErrorResponder 把 WrapE handler 返回的错误写成响应。
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// Option 配置 Instrumenter。
type Option func(*Instrumenter)

// WithErrorResponder 设置 WrapE 的错误响应函数。
// 默认在尚未写出响应时返回 500 "internal server error"。
func WithErrorResponder(fn ErrorResponder) Option {
	return func(in *Instrumenter) {
		if fn != nil {
			in.respondErr = fn
		}
	}
}

// WithDurationBuckets 设置请求耗时直方图（毫秒）的桶边界。
func WithDurationBuckets(buckets []float64) Option {
	return func(in *Instrumenter) {
		if len(buckets) > 0 {
			in.buckets = buckets
		}
	}
}

func defaultErrorResponder(w http.ResponseWriter, _ *http.Request, _ error) {
	if rec, ok := w.(*recorder); ok && rec.wrote {
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
