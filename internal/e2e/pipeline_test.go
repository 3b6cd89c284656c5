//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xtel/pkg/context/xctx"
	"github.com/omeyang/xtel/pkg/observability/xexport"
	"github.com/omeyang/xtel/pkg/observability/xtel"
	"github.com/omeyang/xtel/pkg/observability/xwrap"
)

type logSink struct {
	mu      sync.Mutex
	records []xexport.LogRecord
}

func (s *logSink) Export(_ context.Context, records []xexport.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *logSink) Shutdown(context.Context) error { return nil }

func (s *logSink) snapshot() []xexport.LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]xexport.LogRecord(nil), s.records...)
}

// TestPipeline_ConcurrentRequestsPropagateAndCorrelate 并发请求经过
// 上游 → 出站 client → 下游三跳，每条 span 与日志都必须归属各自的 trace。
func TestPipeline_ConcurrentRequestsPropagateAndCorrelate(t *testing.T) {
	const n = 20

	spans := tracetest.NewInMemoryExporter()
	logs := &logSink{}
	cfg := xtel.DefaultConfig()
	cfg.Service.Name = "e2e"
	tel, err := xtel.New(context.Background(), cfg,
		xtel.WithOutput(io.Discard),
		xtel.WithSpanExporter(spans),
		xtel.WithLogExporter(logs),
	)
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	in, err := tel.Instrumenter()
	require.NoError(t, err)

	downMux := http.NewServeMux()
	downMux.Handle("GET /stock", in.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tel.Logger().Info(r.Context(), "downstream hit")
		w.WriteHeader(http.StatusOK)
	}), xwrap.Options{}))
	down := httptest.NewServer(downMux)
	defer down.Close()

	client := &http.Client{Transport: tel.Tracer().Transport(nil)}
	upMux := http.NewServeMux()
	upMux.Handle("GET /order", in.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tel.Logger().Info(r.Context(), "upstream")
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, down.URL+"/stock", nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		_ = resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
	}), xwrap.Options{}))
	up := httptest.NewServer(upMux)
	defer up.Close()

	requestOf := make(map[string]string, n)
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		traceID := fmt.Sprintf("%032x", i)
		reqID := fmt.Sprintf("req-%d", i)
		requestOf[traceID] = reqID

		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, up.URL+"/order", nil)
			if !assert.NoError(t, err) {
				return
			}
			req.Header.Set("traceparent", fmt.Sprintf("00-%s-%016x-01", traceID, 0xabc))
			req.Header.Set("X-Request-ID", reqID)
			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	wg.Wait()

	// 每个请求：上游 server span、client span、下游 server span
	require.Eventually(t, func() bool { return len(spans.GetSpans()) == 3*n },
		2*time.Second, 10*time.Millisecond)

	byTrace := make(map[string][]sdktrace.ReadOnlySpan, n)
	for _, s := range spans.GetSpans().Snapshots() {
		tid := s.SpanContext().TraceID().String()
		byTrace[tid] = append(byTrace[tid], s)
	}
	require.Len(t, byTrace, n)
	for tid, group := range byTrace {
		require.Contains(t, requestOf, tid)
		require.Len(t, group, 3, tid)

		ids := make(map[string]string, 3)
		for _, s := range group {
			ids[s.Name()] = s.SpanContext().SpanID().String()
		}
		for _, s := range group {
			switch s.Name() {
			case "GET /stock":
				assert.Equal(t, ids["HTTP GET"], s.Parent().SpanID().String())
			case "HTTP GET":
				assert.Equal(t, ids["GET /order"], s.Parent().SpanID().String())
			case "GET /order":
				assert.True(t, s.Parent().IsRemote())
			default:
				t.Errorf("unexpected span %q", s.Name())
			}
		}
	}

	records := logs.snapshot()
	require.NotEmpty(t, records)
	hits := 0
	for _, r := range records {
		want, ok := requestOf[r.TraceID]
		require.True(t, ok, "log %q carries unknown trace %s", r.Body, r.TraceID)
		assert.NotEqual(t, xctx.SentinelSpanID, r.SpanID)
		assert.Equal(t, want, r.Attributes[xctx.KeyRequestID], r.Body)
		if r.Body == "downstream hit" {
			hits++
		}
	}
	assert.Equal(t, n, hits)
}
