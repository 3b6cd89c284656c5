package xattr

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Attr 表示一个键值属性。
type Attr struct {
	Key   string
	Value any
}

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Int64 创建 int64 属性。
func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: value}
}

// Float64 创建 float64 属性。
func Float64(key string, value float64) Attr {
	return Attr{Key: key, Value: value}
}

// Duration 创建时间间隔属性，导出时以毫秒（float64）表示。
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// Any 创建任意类型属性。非标量值在导出时转为字符串。
func Any(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// KeyValue 转换为 OTel 属性。
func (a Attr) KeyValue() attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int32:
		return attribute.Int64(a.Key, int64(v))
	case int64:
		return attribute.Int64(a.Key, v)
	case uint32:
		return attribute.Int64(a.Key, int64(v))
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(a.Key, int64(v))
		}
		return attribute.String(a.Key, fmt.Sprint(v))
	case float64:
		return attribute.Float64(a.Key, v)
	case float32:
		return attribute.Float64(a.Key, float64(v))
	case time.Duration:
		return attribute.Float64(a.Key, float64(v)/float64(time.Millisecond))
	case nil:
		return attribute.String(a.Key, "")
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}

// SlogAttr 转换为 slog 属性。
func (a Attr) SlogAttr() slog.Attr {
	return slog.Any(a.Key, a.Value)
}

// String 返回 "key=value" 形式，用于调试输出。
func (a Attr) String() string {
	return a.Key + "=" + a.KeyValue().Value.Emit()
}

// Dedup 按 last-write-wins 合并重复 key。
//
// 结果保留每个 key 第一次出现的位置，空 key 被丢弃。
// 不修改入参切片。
func Dedup(attrs []Attr) []Attr {
	if len(attrs) == 0 {
		return nil
	}
	index := make(map[string]int, len(attrs))
	out := make([]Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		if i, ok := index[a.Key]; ok {
			out[i].Value = a.Value
			continue
		}
		index[a.Key] = len(out)
		out = append(out, a)
	}
	return out
}

// ToOTel 将属性列表转换为 OTel 属性（先执行 Dedup）。
func ToOTel(attrs []Attr) []attribute.KeyValue {
	deduped := Dedup(attrs)
	if len(deduped) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, len(deduped))
	for i, a := range deduped {
		kvs[i] = a.KeyValue()
	}
	return kvs
}

// ToSlog 将属性列表转换为 slog 属性（先执行 Dedup）。
func ToSlog(attrs []Attr) []slog.Attr {
	deduped := Dedup(attrs)
	if len(deduped) == 0 {
		return nil
	}
	out := make([]slog.Attr, len(deduped))
	for i, a := range deduped {
		out[i] = a.SlogAttr()
	}
	return out
}

// FromMap 将 map 转换为属性列表，按 key 排序以保证输出稳定。
func FromMap(m map[string]any) []Attr {
	if len(m) == 0 {
		return nil
	}
	keys := sortedKeys(m)
	out := make([]Attr, len(keys))
	for i, k := range keys {
		out[i] = Attr{Key: k, Value: m[k]}
	}
	return out
}
