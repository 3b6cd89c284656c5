package xingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/omeyang/xtel/pkg/observability/xattr"
	"github.com/omeyang/xtel/pkg/observability/xlog"
	"github.com/omeyang/xtel/pkg/observability/xmetrics"
	"github.com/omeyang/xtel/pkg/observability/xtrace"
)

// 接入点自身的指标
const (
	MetricEventsAccepted = "ingest.events.accepted"
	MetricEventsRejected = "ingest.events.rejected"
)

// Response 是 202 响应体。
type Response struct {
	Accepted int          `json:"accepted"`
	Rejected int          `json:"rejected"`
	Errors   []EventError `json:"errors"`
}

// EventError 描述被拒绝的事件。
type EventError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler 接收客户端事件批次。并发安全。
type Handler struct {
	tracer *xtrace.Tracer
	reg    *xmetrics.Registry
	logger xlog.Logger

	maxBody    int64
	maxEvents  int
	maxMetrics int
	now        func() time.Time

	accepted *xmetrics.Instrument
	rejected *xmetrics.Instrument

	mu      sync.Mutex
	metrics map[string]struct{}
}

// NewHandler 创建接入点。tracer 为 nil 时使用 xtrace.Default()，logger 为 nil 时使用 xlog.Default()。
func NewHandler(tracer *xtrace.Tracer, reg *xmetrics.Registry, logger xlog.Logger, opts ...Option) (*Handler, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if tracer == nil {
		tracer = xtrace.Default()
	}
	if logger == nil {
		logger = xlog.Default()
	}
	h := &Handler{
		tracer:     tracer,
		reg:        reg,
		logger:     logger,
		maxBody:    DefaultMaxBodyBytes,
		maxEvents:  DefaultMaxEvents,
		maxMetrics: DefaultMaxMetricNames,
		now:        time.Now,
		metrics:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	var err error
	if h.accepted, err = reg.Counter(MetricEventsAccepted, xmetrics.InstrumentOptions{
		Description: "Client events accepted by the ingestion endpoint", Unit: "{event}",
	}); err != nil {
		return nil, fmt.Errorf("xingest: %w", err)
	}
	if h.rejected, err = reg.Counter(MetricEventsRejected, xmetrics.InstrumentOptions{
		Description: "Client events rejected by the ingestion endpoint", Unit: "{event}",
	}); err != nil {
		return nil, fmt.Errorf("xingest: %w", err)
	}
	return h, nil
}

// ServeHTTP 实现 http.Handler。
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge,
				errorBody{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
		return
	}

	var b batch
	if err := json.Unmarshal(data, &b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON"})
		return
	}
	if b.Events == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: `missing "events" array`})
		return
	}
	if len(b.Events) > h.maxEvents {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorBody{Error: fmt.Sprintf("batch has %d events, limit is %d", len(b.Events), h.maxEvents)})
		return
	}

	resp := h.process(r.Context(), b.Events)
	h.logger.Debug(r.Context(), "client events ingested",
		slog.Int("accepted", resp.Accepted), slog.Int("rejected", resp.Rejected))
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) process(ctx context.Context, events []jsoniter.RawMessage) Response {
	resp := Response{Errors: []EventError{}}
	now := h.now()
	for i, raw := range events {
		ev, err := decodeEvent(raw, now)
		if err == nil {
			err = h.emit(ctx, ev)
		}
		if err != nil {
			resp.Rejected++
			resp.Errors = append(resp.Errors, EventError{Index: i, Error: err.Error()})
			h.rejected.Record(ctx, 1)
			continue
		}
		resp.Accepted++
		h.accepted.Record(ctx, 1, xattr.String("event.type", string(ev.Type)))
	}
	return resp
}

func (h *Handler) emit(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEmitPanic, r)
		}
	}()
	switch ev.Type {
	case TypeTrace:
		h.emitTrace(ctx, ev)
		return nil
	case TypeMetric:
		return h.emitMetric(ctx, ev)
	default:
		h.emitLog(ctx, ev)
		return nil
	}
}

// emitTrace 回放一个已结束的客户端工作单元，properties.duration_ms 决定结束时间。
func (h *Handler) emitTrace(ctx context.Context, ev Event) {
	_, span := h.tracer.Start(ctx, namePrefix+ev.Name, xtrace.SpanOptions{
		Kind:      xtrace.KindInternal,
		Attrs:     ev.attrs(propDurationMS),
		Timestamp: ev.Timestamp,
	})
	if d, ok := ev.numeric(propDurationMS); ok && d >= 0 {
		span.EndAt(ev.Timestamp.Add(time.Duration(d * float64(time.Millisecond))))
		return
	}
	span.End()
}

func (h *Handler) emitMetric(ctx context.Context, ev Event) error {
	name := namePrefix + ev.Name
	value, isValue := ev.numeric(propValue)
	kind := xmetrics.KindCounter
	if isValue {
		kind = xmetrics.KindHistogram
	}

	inst, err := h.instrument(name, kind)
	if err != nil {
		return err
	}
	if !isValue {
		value = 1
	}
	inst.Record(ctx, value, ev.attrs(propValue)...)
	return nil
}

// instrument 返回客户端指标，不同指标名的数量受 maxMetrics 限制。
func (h *Handler) instrument(name string, kind xmetrics.Kind) (*xmetrics.Instrument, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, seen := h.metrics[name]
	if !seen && len(h.metrics) >= h.maxMetrics {
		return nil, ErrTooManyMetrics
	}
	inst, err := h.reg.GetOrCreate(name, kind, xmetrics.InstrumentOptions{Description: "Client reported metric"})
	if err != nil {
		return nil, err
	}
	h.metrics[name] = struct{}{}
	return inst, nil
}

func (h *Handler) emitLog(ctx context.Context, ev Event) {
	level, err := xlog.ParseLevel(ev.str(propLevel))
	if err != nil {
		level = xlog.LevelInfo
	}
	msg := ev.str(propMessage)
	if msg == "" {
		msg = ev.Name
	}
	attrs := append([]slog.Attr{
		slog.String("client.event", ev.Name),
		slog.Time("client.timestamp", ev.Timestamp),
	}, xattr.ToSlog(ev.attrs(propLevel, propMessage))...)
	h.logger.Log(ctx, level, msg, attrs...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "xingest: encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
