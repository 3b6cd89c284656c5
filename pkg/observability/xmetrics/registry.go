package xmetrics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

const (
	// DefaultInstrumentationName 默认 instrumentation scope 名称。
	DefaultInstrumentationName = "github.com/omeyang/xtel"
	// DefaultCardinalityLimit 每个 instrument 默认跟踪的属性集合上限。
	DefaultCardinalityLimit = 1000
)

// Option 配置 Registry。
type Option func(*options)

type options struct {
	provider  metric.MeterProvider
	name      string
	cardLimit int
	logger    *slog.Logger
}

// WithMeterProvider 设置 MeterProvider，nil 时使用全局 provider。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.provider = mp
		}
	}
}

// WithInstrumentationName 设置 instrumentation scope 名称。
func WithInstrumentationName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithCardinalityLimit 设置每个 instrument 的属性集合告警阈值，<= 0 关闭监控。
func WithCardinalityLimit(n int) Option {
	return func(o *options) {
		o.cardLimit = n
	}
}

// WithLogger 设置注册表内部告警使用的 logger。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Registry 进程级指标注册表。并发安全。
type Registry struct {
	meter     metric.Meter
	logger    *slog.Logger
	cardLimit int

	mu          sync.RWMutex
	instruments map[string]*Instrument

	disabled atomic.Bool
	rejected atomic.Uint64
}

// NewRegistry 创建注册表。
func NewRegistry(opts ...Option) (*Registry, error) {
	o := options{
		name:      DefaultInstrumentationName,
		cardLimit: DefaultCardinalityLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.provider == nil {
		o.provider = otel.GetMeterProvider()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return &Registry{
		meter:       o.provider.Meter(o.name),
		logger:      o.logger,
		cardLimit:   o.cardLimit,
		instruments: make(map[string]*Instrument),
	}, nil
}

// GetOrCreate 返回名为 name 的 instrument，不存在时按 kind 与 opts 创建。
//
// 同名 instrument 已存在时忽略 opts（第一次注册生效）；
// kind 与已注册的不一致时返回 ErrKindMismatch。
func (r *Registry) GetOrCreate(name string, kind Kind, opts InstrumentOptions) (*Instrument, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	r.mu.RLock()
	inst, ok := r.instruments[name]
	r.mu.RUnlock()
	if ok {
		return checkKind(inst, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instruments[name]; ok {
		return checkKind(inst, kind)
	}

	inst, err := r.create(name, kind, opts)
	if err != nil {
		return nil, err
	}
	r.instruments[name] = inst
	return inst, nil
}

func checkKind(inst *Instrument, kind Kind) (*Instrument, error) {
	if inst.kind != kind {
		return nil, fmt.Errorf("%w: %q registered as %s, requested %s", ErrKindMismatch, inst.name, inst.kind, kind)
	}
	return inst, nil
}

func (r *Registry) create(name string, kind Kind, opts InstrumentOptions) (*Instrument, error) {
	inst := &Instrument{
		name: name,
		kind: kind,
		opts: InstrumentOptions{
			Description: opts.Description,
			Unit:        opts.Unit,
			Buckets:     slices.Clone(opts.Buckets),
		},
		reg:  r,
		card: newCardinality(r.cardLimit),
	}

	var err error
	switch kind {
	case KindCounter:
		inst.counter, err = r.meter.Float64Counter(name,
			metric.WithDescription(opts.Description), metric.WithUnit(opts.Unit))
	case KindUpDownCounter:
		inst.updown, err = r.meter.Float64UpDownCounter(name,
			metric.WithDescription(opts.Description), metric.WithUnit(opts.Unit))
	case KindHistogram:
		if err := validateBuckets(opts.Buckets); err != nil {
			return nil, err
		}
		hopts := []metric.Float64HistogramOption{
			metric.WithDescription(opts.Description), metric.WithUnit(opts.Unit),
		}
		if len(opts.Buckets) > 0 {
			hopts = append(hopts, metric.WithExplicitBucketBoundaries(opts.Buckets...))
		}
		inst.hist, err = r.meter.Float64Histogram(name, hopts...)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, int(kind))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, name, err)
	}
	return inst, nil
}

func validateBuckets(b []float64) error {
	for i, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite boundary at %d", ErrInvalidBuckets, i)
		}
		if i > 0 && v <= b[i-1] {
			return fmt.Errorf("%w: boundaries must be strictly increasing", ErrInvalidBuckets)
		}
	}
	return nil
}

// Counter 返回（或创建）单调计数器。
func (r *Registry) Counter(name string, opts InstrumentOptions) (*Instrument, error) {
	return r.GetOrCreate(name, KindCounter, opts)
}

// UpDownCounter 返回（或创建）可增可减计数器。
func (r *Registry) UpDownCounter(name string, opts InstrumentOptions) (*Instrument, error) {
	return r.GetOrCreate(name, KindUpDownCounter, opts)
}

// Histogram 返回（或创建）直方图。
func (r *Registry) Histogram(name string, opts InstrumentOptions) (*Instrument, error) {
	return r.GetOrCreate(name, KindHistogram, opts)
}

// Record 记录一次度量。从不返回错误、从不 panic：
//
//   - 注册表已禁用或 inst 为 nil：空操作
//   - Counter 收到负值或任意 instrument 收到 NaN/Inf：拒绝并计数，
//     每个 instrument 只告警一次
func (r *Registry) Record(ctx context.Context, inst *Instrument, value float64, attrs ...xattr.Attr) {
	if inst == nil || r.disabled.Load() {
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || (inst.kind == KindCounter && value < 0) {
		r.reject(inst, value)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// 度量记录不应受请求取消影响
	ctx = context.WithoutCancel(ctx)

	if inst.card.observe(attrs) {
		r.logger.Warn("xmetrics: high cardinality attributes",
			slog.String("instrument", inst.name),
			slog.Int("limit", r.cardLimit))
	}

	opt := metric.WithAttributes(xattr.ToOTel(attrs)...)
	switch inst.kind {
	case KindCounter:
		inst.counter.Add(ctx, value, opt)
	case KindUpDownCounter:
		inst.updown.Add(ctx, value, opt)
	case KindHistogram:
		inst.hist.Record(ctx, value, opt)
	}
}

func (r *Registry) reject(inst *Instrument, value float64) {
	r.rejected.Add(1)
	if inst.negWarned.CompareAndSwap(false, true) {
		r.logger.Warn("xmetrics: measurement rejected",
			slog.String("instrument", inst.name),
			slog.String("kind", inst.kind.String()),
			slog.Float64("value", value))
	}
}

// Rejected 返回被拒绝的度量次数。
func (r *Registry) Rejected() uint64 {
	return r.rejected.Load()
}

// Disable 关闭指标记录，之后的 Record 均为空操作。
func (r *Registry) Disable() {
	r.disabled.Store(true)
}

// Enabled 返回注册表是否仍在记录。
func (r *Registry) Enabled() bool {
	return !r.disabled.Load()
}

// Stats 注册表运行统计。
type Stats struct {
	Instruments     int      `json:"instruments"`
	Rejected        uint64   `json:"rejected"`
	Enabled         bool     `json:"enabled"`
	HighCardinality []string `json:"high_cardinality,omitempty"`
}

// Stats 返回注册表统计。
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{
		Instruments: len(r.instruments),
		Rejected:    r.rejected.Load(),
		Enabled:     r.Enabled(),
	}
	for name, inst := range r.instruments {
		if inst.card.exceeded() {
			st.HighCardinality = append(st.HighCardinality, name)
		}
	}
	slices.Sort(st.HighCardinality)
	return st
}
