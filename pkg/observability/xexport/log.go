package xexport

import (
	"time"
)

// Severity 是 OTel 日志严重级别数值。
type Severity int

// OTel 日志严重级别（每档的第一个数值）。
const (
	SeverityTrace Severity = 1
	SeverityDebug Severity = 5
	SeverityInfo  Severity = 9
	SeverityWarn  Severity = 13
	SeverityError Severity = 17
	SeverityFatal Severity = 21
)

// String 返回严重级别文本。
func (s Severity) String() string {
	switch {
	case s >= SeverityFatal:
		return "FATAL"
	case s >= SeverityError:
		return "ERROR"
	case s >= SeverityWarn:
		return "WARN"
	case s >= SeverityInfo:
		return "INFO"
	case s >= SeverityDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

// LogRecord 日志信号的导出单元。
//
// TraceID/SpanID 总是有值：没有活跃 span 时为全零哨兵。
type LogRecord struct {
	Timestamp    time.Time      `json:"timestamp"`
	Severity     Severity       `json:"severity_number"`
	SeverityText string         `json:"severity_text"`
	Body         string         `json:"body"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	TraceID      string         `json:"trace_id"`
	SpanID       string         `json:"span_id"`
}

// LogProcessor 日志处理器。
type LogProcessor = Processor[LogRecord]

// LogExporter 日志导出器。
type LogExporter = Exporter[LogRecord]
