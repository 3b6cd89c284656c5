package xexport

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanProcessor_OnlySampledSpansAndExactlyOnce(t *testing.T) {
	mem := tracetest.NewInMemoryExporter()
	next, err := NewImmediateProcessor(FromSpanExporter(mem))
	require.NoError(t, err)
	sp, err := NewSpanProcessor(next)
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(sp),
	)
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "op")
	span.End()
	span.End()

	require.Len(t, mem.GetSpans(), 1, "double End must not duplicate export")
	assert.Equal(t, uint64(1), sp.Stats()[0].Exported)

	unsampled := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.NeverSample()),
		sdktrace.WithSpanProcessor(sp),
	)
	_, span = unsampled.Tracer("test").Start(context.Background(), "dropped")
	span.End()
	assert.Len(t, mem.GetSpans(), 1)

	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewSpanProcessor_Nil(t *testing.T) {
	_, err := NewSpanProcessor(nil)
	assert.ErrorIs(t, err, ErrNilExporter)
	assert.Nil(t, FromSpanExporter(nil))
}

func TestConsoleSpanExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := NewConsoleSpanExporter(&buf)
	p, err := NewImmediateProcessor(Exporter[sdktrace.ReadOnlySpan](exp))
	require.NoError(t, err)
	sp, err := NewSpanProcessor(p)
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sp))
	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	_, child := tp.Tracer("test").Start(ctx, "child")
	child.SetAttributes(attribute.String("k", "v"))
	child.AddEvent("evt")
	child.SetStatus(codes.Error, "bad")
	child.End()
	parent.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	dec := json.NewDecoder(&buf)
	var first, second SpanView
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Equal(t, "child", first.Name)
	assert.Equal(t, "Error", first.Status)
	assert.Equal(t, "bad", first.StatusMessage)
	assert.Equal(t, "v", first.Attributes["k"])
	require.Len(t, first.Events, 1)
	assert.Equal(t, second.SpanID, first.ParentSpanID)
	assert.Equal(t, second.TraceID, first.TraceID)
	assert.Empty(t, second.ParentSpanID)
	assert.GreaterOrEqual(t, first.DurationMs, 0.0)
}

func TestConsoleLogExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := NewConsoleLogExporter(&buf)

	rec := LogRecord{
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Severity:     SeverityWarn,
		SeverityText: SeverityWarn.String(),
		Body:         "slow query",
		Attributes:   map[string]any{"duration_ms": 120.5},
		TraceID:      "00000000000000000000000000000000",
		SpanID:       "0000000000000000",
	}
	require.NoError(t, exp.Export(context.Background(), []LogRecord{rec}))
	require.NoError(t, exp.Shutdown(context.Background()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "WARN", got["severity_text"])
	assert.InDelta(t, 13, got["severity_number"], 0)
	assert.Equal(t, "slow query", got["body"])
	assert.Equal(t, "00000000000000000000000000000000", got["trace_id"])
}

func TestSeverity_String(t *testing.T) {
	tests := map[Severity]string{
		1:             "TRACE",
		SeverityDebug: "DEBUG",
		SeverityInfo:  "INFO",
		SeverityWarn:  "WARN",
		SeverityError: "ERROR",
		SeverityFatal: "FATAL",
		24:            "FATAL",
	}
	for sev, want := range tests {
		assert.Equal(t, want, sev.String())
	}
}
