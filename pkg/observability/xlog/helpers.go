package xlog

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultSlowThreshold SlowOperation 的默认阈值
const DefaultSlowThreshold = 100 * time.Millisecond

// 日志类型，写入 log.type 字段
const (
	LogTypeHTTP     = "http"
	LogTypeSlow     = "slow_operation"
	LogTypeSecurity = "security"
	LogTypeAudit    = "audit"
)

// LogPayload 以结构化载荷加可读消息的形式记录日志。
func LogPayload(ctx context.Context, l Logger, level Level, payload map[string]any, msg string) {
	if l == nil {
		return
	}
	l.Log(ctx, level, msg, Fields(payload)...)
}

// LevelForStatus 按 HTTP 状态码选择日志级别：>=500 Error，>=400 Warn，其余 Info。
func LevelForStatus(status int) Level {
	switch {
	case status >= http.StatusInternalServerError:
		return LevelError
	case status >= http.StatusBadRequest:
		return LevelWarn
	default:
		return LevelInfo
	}
}

// HTTPRequest 记录一次入站请求：方法、URL、User-Agent，以及可识别时的客户端地址。
func HTTPRequest(ctx context.Context, l Logger, r *http.Request, attrs ...slog.Attr) {
	if l == nil || r == nil {
		return
	}
	base := []slog.Attr{
		slog.String(KeyLogType, LogTypeHTTP),
		Method(r.Method),
		slog.String(KeyURL, r.URL.String()),
	}
	if ua := r.UserAgent(); ua != "" {
		base = append(base, slog.String(KeyUserAgent, ua))
	}
	if ip := ClientIP(r); ip != "" {
		base = append(base, slog.String(KeyClientIP, ip))
	}
	l.Info(ctx, "http request", append(base, attrs...)...)
}

// HTTPResponse 记录请求结果，级别由 LevelForStatus 决定。
func HTTPResponse(ctx context.Context, l Logger, method, route string, status int, d time.Duration, attrs ...slog.Attr) {
	if l == nil {
		return
	}
	base := []slog.Attr{
		slog.String(KeyLogType, LogTypeHTTP),
		Method(method),
		Route(route),
		StatusCode(status),
		Duration(d),
	}
	l.Log(ctx, LevelForStatus(status), "http response", append(base, attrs...)...)
}

// SlowOperation 耗时超过 DefaultSlowThreshold 时记录 Warn 日志，返回是否记录。
func SlowOperation(ctx context.Context, l Logger, op string, d time.Duration, attrs ...slog.Attr) bool {
	return SlowOperationThreshold(ctx, l, op, d, DefaultSlowThreshold, attrs...)
}

// SlowOperationThreshold 同 SlowOperation，阈值由调用方指定。
func SlowOperationThreshold(ctx context.Context, l Logger, op string, d, threshold time.Duration, attrs ...slog.Attr) bool {
	if l == nil || d <= threshold {
		return false
	}
	base := []slog.Attr{
		slog.String(KeyLogType, LogTypeSlow),
		Operation(op),
		Duration(d),
		slog.Float64("threshold_ms", float64(threshold)/float64(time.Millisecond)),
	}
	l.Warn(ctx, "slow operation", append(base, attrs...)...)
	return true
}

// Security 记录安全事件（认证失败、越权访问等），Warn 级别。
func Security(ctx context.Context, l Logger, event string, attrs ...slog.Attr) {
	if l == nil {
		return
	}
	base := []slog.Attr{
		slog.String(KeyLogType, LogTypeSecurity),
		slog.String("security.event", event),
	}
	l.Warn(ctx, "security event", append(base, attrs...)...)
}

// Audit 记录审计事件：谁（actor）对什么执行了什么操作（action）。
func Audit(ctx context.Context, l Logger, actor, action string, attrs ...slog.Attr) {
	if l == nil {
		return
	}
	base := []slog.Attr{
		slog.String(KeyLogType, LogTypeAudit),
		slog.String("audit.actor", actor),
		slog.String("audit.action", action),
	}
	l.Info(ctx, "audit", append(base, attrs...)...)
}

// ClientIP 返回客户端地址：优先 X-Forwarded-For 的第一个值，其次 X-Real-IP，最后 RemoteAddr。
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
