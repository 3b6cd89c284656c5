package xingest

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"time"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventType 事件类型。
type EventType string

// 支持的事件类型
const (
	TypeTrace  EventType = "trace"
	TypeMetric EventType = "metric"
	TypeLog    EventType = "log"
)

// 客户端信号名前缀
const namePrefix = "client."

// 具有特殊含义的 properties 键
const (
	propValue      = "value"
	propLevel      = "level"
	propMessage    = "message"
	propDurationMS = "duration_ms"
)

// Event 是一条已通过校验的客户端事件。
type Event struct {
	Type       EventType
	Name       string
	Timestamp  time.Time
	Properties map[string]any
}

type rawEvent struct {
	Type       string              `json:"type"`
	Name       string              `json:"name"`
	Timestamp  jsoniter.RawMessage `json:"timestamp"`
	Properties map[string]any      `json:"properties"`
}

// batch 只解析到事件粒度，单个事件的解析错误留给 decodeEvent 逐条处理。
type batch struct {
	Events []jsoniter.RawMessage `json:"events"`
}

// decodeEvent 解析并校验单个事件。缺省时间戳使用 now。
func decodeEvent(raw []byte, now time.Time) (Event, error) {
	var re rawEvent
	if err := json.Unmarshal(raw, &re); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if re.Name == "" {
		return Event{}, ErrEmptyName
	}
	if utf8.RuneCountInString(re.Name) > MaxNameLength {
		return Event{}, ErrNameTooLong
	}
	typ := EventType(re.Type)
	switch typ {
	case TypeTrace, TypeMetric, TypeLog:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidType, re.Type)
	}
	ts, err := parseTimestamp(re.Timestamp, now)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Type: typ, Name: re.Name, Timestamp: ts, Properties: re.Properties}
	if typ == TypeTrace {
		if d, ok := ev.numeric(propDurationMS); ok && (d < 0 || d > maxDurationMS) {
			return Event{}, fmt.Errorf("%w: %v out of range", ErrInvalidDuration, d)
		}
	}
	return ev, nil
}

// parseTimestamp 接受 RFC3339 字符串或 unix 毫秒数；缺失或 null 时返回 now。
func parseTimestamp(raw []byte, now time.Time) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return now, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
		}
		return ts, nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidTimestamp, err)
	}
	if ms < 0 || math.IsInf(ms, 0) || math.IsNaN(ms) || ms > maxUnixMilli {
		return time.Time{}, fmt.Errorf("%w: %v out of range", ErrInvalidTimestamp, ms)
	}
	return time.UnixMilli(int64(ms)), nil
}

// 超过该值的毫秒数无法用 time.Time 的纳秒精度表示
const maxUnixMilli = float64(math.MaxInt64 / int64(time.Millisecond))

// duration_ms 上限，保证换算成 time.Duration 不溢出
const maxDurationMS = float64(math.MaxInt64 / int64(time.Millisecond))

// numeric 返回 properties[key] 的有限数值。
func (e Event) numeric(key string) (float64, bool) {
	v, ok := e.Properties[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (e Event) str(key string) string {
	s, _ := e.Properties[key].(string)
	return s
}

// attrs 把 properties（去掉 skip 中的键）转为属性，非标量值编码为 JSON 字符串。
func (e Event) attrs(skip ...string) []xattr.Attr {
	out := make([]xattr.Attr, 0, len(e.Properties))
	for _, a := range xattr.FromMap(e.Properties) {
		if slices.Contains(skip, a.Key) {
			continue
		}
		switch a.Value.(type) {
		case map[string]any, []any:
			s, err := json.MarshalToString(a.Value)
			if err != nil {
				continue
			}
			a.Value = s
		}
		out = append(out, a)
	}
	return out
}
