package xlog

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/omeyang/xtel/pkg/context/xctx"
)

// 常用字段名
const (
	KeyError      = "error"
	KeyStack      = "stack"
	KeyDuration   = "duration_ms"
	KeyCount      = "count"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyRequestID  = xctx.KeyRequestID
	KeyMethod     = "http.method"
	KeyURL        = "http.url"
	KeyRoute      = "http.route"
	KeyStatusCode = "http.status_code"
	KeyUserAgent  = "http.user_agent"
	KeyClientIP   = "client.address"
	KeyLogType    = "log.type"
)

// Err 创建错误属性，err 为 nil 时返回空属性（被 slog 忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 以毫秒浮点数记录耗时
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDuration, float64(d)/float64(time.Millisecond))
}

// Component 组件名
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 操作名
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 计数
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// StatusCode HTTP 状态码
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Method HTTP 方法
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Route 路由模板
func Route(r string) slog.Attr {
	return slog.String(KeyRoute, r)
}

// Fields 将结构化载荷转换为按 key 排序的属性切片。
//
//	logger.Info(ctx, "order created", xlog.Fields(map[string]any{"order_id": id, "items": n})...)
func Fields(m map[string]any) []slog.Attr {
	if len(m) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if k == "" {
			continue
		}
		attrs = append(attrs, slog.Any(k, m[k]))
	}
	return attrs
}
