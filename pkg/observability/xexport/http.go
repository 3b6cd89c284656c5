package xexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNoEndpoint 表示 HTTPLogExporter 未配置 endpoint。
	ErrNoEndpoint = errors.New("xexport: empty endpoint")
	// ErrHTTPStatus 表示服务端返回了非 2xx 状态码。
	ErrHTTPStatus = errors.New("xexport: unexpected http status")
	// ErrCircuitOpen 表示熔断器处于打开状态，本批次未发送。
	ErrCircuitOpen = errors.New("xexport: circuit breaker open")
)

// HTTPLogConfig HTTP 日志导出器配置。
type HTTPLogConfig struct {
	// Endpoint 接收事件批次的完整 URL，例如 http://collector:8080/v1/events。
	Endpoint string
	// Timeout 单次请求超时，默认 10s。
	Timeout time.Duration
	// Headers 附加请求头。
	Headers map[string]string
	// FailureThreshold 连续失败多少次后熔断，默认 5。
	FailureThreshold uint32
	// OpenTimeout 熔断打开后多久进入半开，默认 30s。
	OpenTimeout time.Duration
	// Transport 自定义底层 RoundTripper，nil 使用默认。
	Transport http.RoundTripper
	// Logger 内部告警输出。
	Logger *slog.Logger
}

// ingestEvent 与事件接入端点的请求体格式一致。
type ingestEvent struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Timestamp  string         `json:"timestamp"`
	Properties map[string]any `json:"properties"`
}

type ingestBatch struct {
	Events []ingestEvent `json:"events"`
}

// HTTPLogExporter 把日志记录以事件批次 POST 到远端接入端点。
//
// 请求经过熔断器：连续失败达到阈值后直接返回 ErrCircuitOpen，
// 不再占用网络，直到 OpenTimeout 后半开探测。
type HTTPLogExporter struct {
	endpoint string
	client   *resty.Client
	cb       *gobreaker.CircuitBreaker[*resty.Response]
	logger   *slog.Logger
}

// NewHTTPLogExporter 创建 HTTP 日志导出器。
func NewHTTPLogExporter(cfg HTTPLogConfig) (*HTTPLogExporter, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	logger := internalLogger(cfg.Logger)

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "xtel-exporter/1.0").
		SetHeaders(cfg.Headers).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if cfg.Transport != nil {
		client.SetTransport(cfg.Transport)
	}

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "xexport-http-log",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("xexport: circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &HTTPLogExporter{
		endpoint: cfg.Endpoint,
		client:   client,
		cb:       cb,
		logger:   logger,
	}, nil
}

// Export 实现 Exporter。
func (e *HTTPLogExporter) Export(ctx context.Context, records []LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	body := ingestBatch{Events: make([]ingestEvent, len(records))}
	for i := range records {
		body.Events[i] = toIngestEvent(&records[i])
	}

	_, err := e.cb.Execute(func() (*resty.Response, error) {
		resp, err := e.client.R().
			SetContext(ctx).
			SetBody(body).
			Post(e.endpoint)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return resp, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode())
		}
		return resp, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	default:
		return fmt.Errorf("xexport: post %s: %w", e.endpoint, err)
	}
}

// State 返回熔断器当前状态（closed / half-open / open）。
func (e *HTTPLogExporter) State() string {
	return e.cb.State().String()
}

// Shutdown 实现 Exporter，释放空闲连接。
func (e *HTTPLogExporter) Shutdown(context.Context) error {
	e.client.GetClient().CloseIdleConnections()
	return nil
}

func toIngestEvent(r *LogRecord) ingestEvent {
	props := make(map[string]any, len(r.Attributes)+4)
	for k, v := range r.Attributes {
		props[k] = v
	}
	props["level"] = r.SeverityText
	props["message"] = r.Body
	props["trace_id"] = r.TraceID
	props["span_id"] = r.SpanID
	return ingestEvent{
		Name:       "log",
		Type:       "log",
		Timestamp:  r.Timestamp.UTC().Format(time.RFC3339Nano),
		Properties: props,
	}
}

var _ LogExporter = (*HTTPLogExporter)(nil)
