package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xexport"
	"github.com/omeyang/xtel/pkg/observability/xlog"
)

const (
	testTraceHex = "4bf92f3577b34da6a3ce929d0e0e4736"
	testSpanHex  = "00f067aa0ba902b7"
)

func activeCtx(t *testing.T) context.Context {
	t.Helper()
	tid, err := trace.TraceIDFromHex(testTraceHex)
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex(testSpanHex)
	require.NoError(t, err)
	return trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
	}))
}

func newJSONLogger(t *testing.T, b *xlog.Builder) (xlog.LoggerWithLevel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := b.SetOutput(&buf).SetFormat("json").Build()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

// collector 收集导出的日志记录
type collector struct {
	mu      sync.Mutex
	records []xexport.LogRecord
}

func (c *collector) processor(t *testing.T) xexport.LogProcessor {
	t.Helper()
	p, err := xexport.NewImmediateProcessor[xexport.LogRecord](xexport.ExporterFunc[xexport.LogRecord](
		func(_ context.Context, items []xexport.LogRecord) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.records = append(c.records, items...)
			return nil
		}))
	require.NoError(t, err)
	return p
}

func (c *collector) all() []xexport.LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]xexport.LogRecord(nil), c.records...)
}

func TestLogger_CorrelationInsideSpan(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New())

	logger.Info(activeCtx(t), "inside")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, testTraceHex, lines[0][xctx.KeyTraceID])
	assert.Equal(t, testSpanHex, lines[0][xctx.KeySpanID])
	assert.Equal(t, "01", lines[0][xctx.KeyTraceFlags])
}

func TestLogger_SentinelWithoutSpan(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New())

	logger.Info(context.Background(), "outside")
	//nolint:staticcheck // SA1012: 测试 nil context
	logger.Warn(nil, "nil ctx")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	for _, m := range lines {
		assert.Equal(t, xctx.SentinelTraceID, m[xctx.KeyTraceID])
		assert.Equal(t, xctx.SentinelSpanID, m[xctx.KeySpanID])
	}
}

func TestLogger_EnrichDisabled(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New().SetEnrich(false))

	logger.Info(activeCtx(t), "plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], xctx.KeyTraceID)
}

func TestLogger_Levels(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New().SetLevel(xlog.LevelDebug))
	ctx := context.Background()

	logger.Debug(ctx, "d")
	logger.Info(ctx, "i")
	logger.Warn(ctx, "w")
	logger.Error(ctx, "e")
	logger.Fatal(ctx, "f")
	logger.Log(ctx, xlog.LevelWarn, "l")

	var levels []any
	for _, m := range decodeLines(t, buf) {
		levels = append(levels, m[slog.LevelKey])
	}
	assert.Equal(t, []any{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "WARN"}, levels)
}

func TestLogger_DynamicLevel(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New().SetLevelString("warn"))
	ctx := context.Background()

	logger.Info(ctx, "hidden")
	assert.False(t, logger.Enabled(ctx, xlog.LevelInfo))

	logger.SetLevel(xlog.LevelDebug)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	logger.Debug(ctx, "visible")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "visible", lines[0][slog.MessageKey])
}

func TestLogger_ChildDoesNotMutateParent(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New())
	ctx := context.Background()

	child := logger.With(slog.String("component", "billing"))
	child.Info(ctx, "child")
	logger.Info(ctx, "parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "billing", lines[0]["component"])
	assert.NotContains(t, lines[1], "component")

	assert.Same(t, logger, logger.With())
	assert.Same(t, logger, logger.WithGroup(""))

	// 子 logger 共享级别
	logger.SetLevel(xlog.LevelError)
	child.Info(ctx, "suppressed")
	assert.Len(t, decodeLines(t, buf), 2)
}

func TestLogger_Stack(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New())

	logger.Stack(context.Background(), "boom")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	stack, _ := lines[0][xlog.KeyStack].(string)
	assert.Contains(t, stack, "goroutine")
}

func TestLogger_Service(t *testing.T) {
	logger, buf := newJSONLogger(t, xlog.New().SetService("checkout", "1.2.0", ""))

	logger.Info(context.Background(), "x")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "checkout", lines[0][xlog.KeyServiceName])
	assert.Equal(t, "1.2.0", lines[0][xlog.KeyServiceVersion])
	assert.NotContains(t, lines[0], xlog.KeyEnvironment)
}

func TestLogger_ExportTee(t *testing.T) {
	var c collector
	logger, buf := newJSONLogger(t, xlog.New().SetExporter(c.processor(t)).SetService("svc", "", ""))

	logger.With(slog.Int("attempt", 2)).WithGroup("db").Warn(activeCtx(t), "retrying", slog.String("table", "users"))
	logger.Debug(context.Background(), "below level")

	records := c.all()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "retrying", rec.Body)
	assert.Equal(t, xexport.SeverityWarn, rec.Severity)
	assert.Equal(t, "WARN", rec.SeverityText)
	assert.Equal(t, testTraceHex, rec.TraceID)
	assert.Equal(t, testSpanHex, rec.SpanID)
	assert.Equal(t, int64(2), rec.Attributes["attempt"])
	assert.Equal(t, "users", rec.Attributes["db.table"])
	assert.Equal(t, "svc", rec.Attributes[xlog.KeyServiceName])
	assert.NotContains(t, rec.Attributes, "db."+xctx.KeyTraceID)
	assert.False(t, rec.Timestamp.IsZero())

	// 本地输出不受影响
	assert.Len(t, decodeLines(t, buf), 1)
}

func TestLogger_ExportSentinel(t *testing.T) {
	var c collector
	logger, _ := newJSONLogger(t, xlog.New().SetExporter(c.processor(t)))

	logger.Fatal(context.Background(), "no span")

	records := c.all()
	require.Len(t, records, 1)
	assert.Equal(t, xctx.SentinelTraceID, records[0].TraceID)
	assert.Equal(t, xctx.SentinelSpanID, records[0].SpanID)
	assert.Equal(t, xexport.SeverityFatal, records[0].Severity)
}

func TestBuilder_Errors(t *testing.T) {
	_, _, err := xlog.New().SetLevelString("loud").Build()
	assert.Error(t, err)

	_, _, err = xlog.New().SetFormat("xml").Build()
	assert.Error(t, err)

	// first error wins
	_, _, err = xlog.New().SetFormat("xml").SetLevelString("loud").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")

	_, _, err = xlog.New().SetRotation("").Build()
	assert.Error(t, err)
}

func TestBuilder_TextFormatAndReplaceAttr(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().
		SetOutput(&buf).
		SetFormat(" TEXT ").
		SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "password" {
				return slog.String(a.Key, "***")
			}
			return a
		}).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	logger.Fatal(context.Background(), "login", slog.String("password", "hunter2"))

	out := buf.String()
	assert.Contains(t, out, "level=FATAL")
	assert.Contains(t, out, "password=***")
	assert.NotContains(t, out, "hunter2")
}

func TestBuilder_Rotation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, cleanup, err := xlog.New().SetRotation(file).Build()
	require.NoError(t, err)

	logger.Info(context.Background(), "to file")
	require.NoError(t, cleanup())
	assert.NoError(t, cleanup(), "cleanup is idempotent")
}

func TestBuilder_OnError(t *testing.T) {
	var got error
	logger, cleanup, err := xlog.New().
		SetOutput(failingWriter{}).
		SetOnError(func(err error) { got = err }).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	logger.Info(context.Background(), "x")
	assert.ErrorIs(t, got, errWrite)
}

var errWrite = errors.New("write failed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestErr(t *testing.T) {
	assert.Equal(t, slog.Attr{}, xlog.Err(nil))
	assert.Equal(t, "boom", xlog.Err(errors.New("boom")).Value.String())
}

func TestFields_SortedKeys(t *testing.T) {
	attrs := xlog.Fields(map[string]any{"b": 2, "a": 1, "": "skip"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "a", attrs[0].Key)
	assert.Equal(t, "b", attrs[1].Key)
	assert.Nil(t, xlog.Fields(nil))
}
