package xlog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/omeyang/xtel/pkg/observability/xexport"
)

// Level 日志级别，与 slog.Level 兼容
type Level slog.Level

// 日志级别常量。LevelFatal 在 slog 标准级别之外，高于 Error。
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
	LevelFatal = Level(slog.LevelError + 4)
)

// String 返回级别的字符串表示
//
// 标准级别返回大写名称（DEBUG/INFO/WARN/ERROR/FATAL），
// 其他级别委托给 slog.Level.String()（如 "INFO+2"）。
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return slog.Level(l).String()
	}
}

// Severity 返回 OTel 日志严重级别编号。
//
// 介于两个标准级别之间的值向下取整到较低的那个。
func (l Level) Severity() xexport.Severity {
	switch {
	case l >= LevelFatal:
		return xexport.SeverityFatal
	case l >= LevelError:
		return xexport.SeverityError
	case l >= LevelWarn:
		return xexport.SeverityWarn
	case l >= LevelInfo:
		return xexport.SeverityInfo
	case l >= LevelDebug:
		return xexport.SeverityDebug
	default:
		return xexport.SeverityTrace
	}
}

// MarshalText 实现 encoding.TextMarshaler 接口
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler 接口，支持配置文件直接反序列化。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析字符串为日志级别
// 支持 debug/info/warn/warning/error/fatal（大小写不敏感，自动 TrimSpace）
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
}
