package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xtel/pkg/lifecycle/xrun"
	"github.com/omeyang/xtel/pkg/observability/xtel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xtel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCheck_PrintsMergedConfig(t *testing.T) {
	path := writeConfig(t, "service:\n  name: checkout\n")

	var out bytes.Buffer
	app := createApp()
	app.Writer = &out
	require.NoError(t, app.Run(context.Background(), []string{"xteld", "check", path}))

	assert.Contains(t, out.String(), "checkout")
	assert.Contains(t, out.String(), "shutdown_timeout")
	assert.Contains(t, out.String(), "max_queue_size")
}

func TestCheck_Errors(t *testing.T) {
	app := createApp()
	app.Writer = io.Discard
	err := app.Run(context.Background(), []string{"xteld", "check"})
	assert.ErrorIs(t, err, errUsage)

	app = createApp()
	app.Writer = io.Discard
	err = app.Run(context.Background(), []string{"xteld", "check", writeConfig(t, "sampling:\n  ratio: 3\n")})
	assert.ErrorIs(t, err, xtel.ErrInvalidConfig)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(&xrun.SignalError{Signal: syscall.SIGTERM}))
	assert.Equal(t, 2, exitCode(errUsage))
	assert.Equal(t, 1, exitCode(errors.New("listen: address in use")))
}

func newTestTelemetry(t *testing.T) (*xtel.Telemetry, *tracetest.InMemoryExporter) {
	t.Helper()
	spans := tracetest.NewInMemoryExporter()
	cfg := xtel.DefaultConfig()
	cfg.Service.Name = "xteld-test"
	tel, err := xtel.New(context.Background(), cfg,
		xtel.WithOutput(io.Discard),
		xtel.WithSpanExporter(spans),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	return tel, spans
}

func TestMux(t *testing.T) {
	tel, spans := newTestTelemetry(t)
	handler, err := newMux(tel)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	body := `{"events":[{"name":"page.view","type":"trace","properties":{"duration_ms":12}}]}`
	resp, err := http.Post(srv.URL+pathEvents, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	// 请求 span 在 handler 返回后才结束，可能晚于客户端收到响应
	assert.Eventually(t, func() bool { return len(spans.GetSpans()) >= 2 },
		time.Second, 10*time.Millisecond, "request span plus client span")

	resp, err = http.Get(srv.URL + pathEvents)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + pathHealth)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(data))

	resp, err = http.Get(srv.URL + pathStats)
	require.NoError(t, err)
	var st xtel.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	_ = resp.Body.Close()
	assert.Equal(t, 1.0, st.SamplingRatio)
	require.NotEmpty(t, st.Spans)
	assert.Positive(t, st.Spans[0].Exported)
	srv.CloseClientConnections()
}

func TestApplyReload(t *testing.T) {
	path := writeConfig(t, "service:\n  name: reload\n")
	cfg, store, err := xtel.LoadConfig(path)
	require.NoError(t, err)

	tel, err := xtel.New(context.Background(), cfg, xtel.WithOutput(io.Discard))
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: reload\nsampling:\n  ratio: 0.1\nlogs:\n  level: debug\n"), 0o600))
	applyReload(context.Background(), tel, store, store.Reload())
	assert.Equal(t, 0.1, tel.Config().Sampling.Ratio)
	assert.Equal(t, "debug", tel.Config().Logs.Level)

	// 非法配置被拒绝，运行中的配置不变
	require.NoError(t, os.WriteFile(path, []byte("sampling:\n  ratio: 9\n"), 0o600))
	applyReload(context.Background(), tel, store, store.Reload())
	assert.Equal(t, 0.1, tel.Config().Sampling.Ratio)

	require.NoError(t, os.WriteFile(path, []byte("service: [broken"), 0o600))
	applyReload(context.Background(), tel, store, store.Reload())
	assert.Equal(t, 0.1, tel.Config().Sampling.Ratio)
}
