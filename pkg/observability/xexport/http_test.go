package xexport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPLogExporter_NoEndpoint(t *testing.T) {
	_, err := NewHTTPLogExporter(HTTPLogConfig{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestHTTPLogExporter_PostsEvents(t *testing.T) {
	var got ingestBatch
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	exp, err := NewHTTPLogExporter(HTTPLogConfig{
		Endpoint: srv.URL + "/v1/events",
		Headers:  map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	defer func() { _ = exp.Shutdown(context.Background()) }()

	err = exp.Export(context.Background(), []LogRecord{{
		Timestamp:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Severity:     SeverityError,
		SeverityText: "ERROR",
		Body:         "boom",
		Attributes:   map[string]any{"route": "/x"},
		TraceID:      "4bf92f3577b34da6a3ce929d0e0e4736",
		SpanID:       "00f067aa0ba902b7",
	}})
	require.NoError(t, err)

	require.Len(t, got.Events, 1)
	ev := got.Events[0]
	assert.Equal(t, "log", ev.Type)
	assert.Equal(t, "2026-01-01T00:00:00Z", ev.Timestamp)
	assert.Equal(t, "ERROR", ev.Properties["level"])
	assert.Equal(t, "boom", ev.Properties["message"])
	assert.Equal(t, "/x", ev.Properties["route"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", ev.Properties["trace_id"])

	assert.NoError(t, exp.Export(context.Background(), nil), "empty batch is a no-op")
}

func TestHTTPLogExporter_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	exp, err := NewHTTPLogExporter(HTTPLogConfig{
		Endpoint:         srv.URL,
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
	})
	require.NoError(t, err)
	defer func() { _ = exp.Shutdown(context.Background()) }()

	batch := []LogRecord{{Body: "x"}}
	for range 2 {
		err = exp.Export(context.Background(), batch)
		assert.ErrorIs(t, err, ErrHTTPStatus)
	}
	assert.Equal(t, "open", exp.State())

	err = exp.Export(context.Background(), batch)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not hit the network")
}

func TestHTTPLogExporter_WithBatchProcessor(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b ingestBatch
		if err := json.NewDecoder(r.Body).Decode(&b); err == nil {
			received.Add(int32(len(b.Events)))
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	exp, err := NewHTTPLogExporter(HTTPLogConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	p, err := NewBatchProcessor[LogRecord](exp, BatchConfig{
		Name:               "http-logs",
		ScheduledDelay:     time.Hour,
		MaxExportBatchSize: 100,
	})
	require.NoError(t, err)

	for range 5 {
		p.OnEnd(LogRecord{Body: "hello", Timestamp: time.Now()})
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), received.Load())
}
