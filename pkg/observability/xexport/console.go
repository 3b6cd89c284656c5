package xexport

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// consoleWriter 以 JSON Lines 形式写入 io.Writer，写入过程加锁。
type consoleWriter struct {
	mu  sync.Mutex
	enc *jsoniter.Encoder
}

func newConsoleWriter(w io.Writer) *consoleWriter {
	if w == nil {
		w = os.Stderr
	}
	return &consoleWriter{enc: json.NewEncoder(w)}
}

func (c *consoleWriter) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(v)
}

// ConsoleLogExporter 把日志记录写为 JSON Lines。
type ConsoleLogExporter struct {
	out *consoleWriter
}

// NewConsoleLogExporter 创建控制台日志导出器，w 为 nil 时写 stderr。
func NewConsoleLogExporter(w io.Writer) *ConsoleLogExporter {
	return &ConsoleLogExporter{out: newConsoleWriter(w)}
}

// Export 实现 Exporter。
func (e *ConsoleLogExporter) Export(_ context.Context, records []LogRecord) error {
	for i := range records {
		if err := e.out.write(&records[i]); err != nil {
			return fmt.Errorf("xexport: console log: %w", err)
		}
	}
	return nil
}

// Shutdown 实现 Exporter。
func (e *ConsoleLogExporter) Shutdown(context.Context) error {
	return nil
}

// ConsoleSpanExporter 把 span 写为 JSON Lines。
type ConsoleSpanExporter struct {
	out *consoleWriter
}

// NewConsoleSpanExporter 创建控制台 span 导出器，w 为 nil 时写 stderr。
func NewConsoleSpanExporter(w io.Writer) *ConsoleSpanExporter {
	return &ConsoleSpanExporter{out: newConsoleWriter(w)}
}

// SpanView 是 span 的 JSON 表示。
type SpanView struct {
	Name          string         `json:"name"`
	Kind          string         `json:"kind"`
	TraceID       string         `json:"trace_id"`
	SpanID        string         `json:"span_id"`
	ParentSpanID  string         `json:"parent_span_id,omitempty"`
	Sampled       bool           `json:"sampled"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	DurationMs    float64        `json:"duration_ms"`
	Status        string         `json:"status"`
	StatusMessage string         `json:"status_message,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	Events        []EventView    `json:"events,omitempty"`
}

// EventView 是 span 事件的 JSON 表示。
type EventView struct {
	Name       string         `json:"name"`
	Time       time.Time      `json:"time"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ViewOf 把 ReadOnlySpan 转换为 SpanView。
func ViewOf(s sdktrace.ReadOnlySpan) SpanView {
	v := SpanView{
		Name:          s.Name(),
		Kind:          s.SpanKind().String(),
		TraceID:       s.SpanContext().TraceID().String(),
		SpanID:        s.SpanContext().SpanID().String(),
		Sampled:       s.SpanContext().IsSampled(),
		StartTime:     s.StartTime(),
		EndTime:       s.EndTime(),
		DurationMs:    float64(s.EndTime().Sub(s.StartTime())) / float64(time.Millisecond),
		Status:        s.Status().Code.String(),
		StatusMessage: s.Status().Description,
		Attributes:    attrMap(s.Attributes()),
	}
	if p := s.Parent(); p.HasSpanID() {
		v.ParentSpanID = p.SpanID().String()
	}
	for _, e := range s.Events() {
		v.Events = append(v.Events, EventView{
			Name:       e.Name,
			Time:       e.Time,
			Attributes: attrMap(e.Attributes),
		})
	}
	return v
}

func attrMap(kvs []attribute.KeyValue) map[string]any {
	if len(kvs) == 0 {
		return nil
	}
	m := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

// Export 实现 Exporter。
func (e *ConsoleSpanExporter) Export(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		if err := e.out.write(ViewOf(s)); err != nil {
			return fmt.Errorf("xexport: console span: %w", err)
		}
	}
	return nil
}

// Shutdown 实现 Exporter。
func (e *ConsoleSpanExporter) Shutdown(context.Context) error {
	return nil
}

var (
	_ LogExporter                     = (*ConsoleLogExporter)(nil)
	_ Exporter[sdktrace.ReadOnlySpan] = (*ConsoleSpanExporter)(nil)
)
