package xmetrics

import (
	"context"
	"slices"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// Kind 表示 instrument 类型。
type Kind int

const (
	// KindCounter 单调递增计数器。
	KindCounter Kind = iota + 1
	// KindUpDownCounter 可增可减计数器。
	KindUpDownCounter
	// KindHistogram 直方图。
	KindHistogram
)

// String 返回 Kind 的可读字符串表示。
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindUpDownCounter:
		return "updowncounter"
	case KindHistogram:
		return "histogram"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// InstrumentOptions 创建参数，只在第一次注册时生效。
type InstrumentOptions struct {
	Description string
	Unit        string
	// Buckets 直方图显式桶边界，仅对 KindHistogram 有效；为空使用 SDK 默认值。
	Buckets []float64
}

// Instrument 是注册表中的一个指标。
type Instrument struct {
	name string
	kind Kind
	opts InstrumentOptions

	counter metric.Float64Counter
	updown  metric.Float64UpDownCounter
	hist    metric.Float64Histogram

	reg       *Registry
	card      *cardinality
	negWarned atomic.Bool
}

// Name 返回名称。
func (i *Instrument) Name() string { return i.name }

// Kind 返回类型。
func (i *Instrument) Kind() Kind { return i.kind }

// Description 返回第一次注册时的描述。
func (i *Instrument) Description() string { return i.opts.Description }

// Unit 返回第一次注册时的单位。
func (i *Instrument) Unit() string { return i.opts.Unit }

// Buckets 返回第一次注册时的桶边界副本。
func (i *Instrument) Buckets() []float64 { return slices.Clone(i.opts.Buckets) }

// Record 等价于 reg.Record(ctx, i, value, attrs...)。
func (i *Instrument) Record(ctx context.Context, value float64, attrs ...xattr.Attr) {
	if i == nil {
		return
	}
	i.reg.Record(ctx, i, value, attrs...)
}
