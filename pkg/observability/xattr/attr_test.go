package xattr_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

func TestKeyValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		attr xattr.Attr
		want attribute.KeyValue
	}{
		{"string", xattr.String("k", "v"), attribute.String("k", "v")},
		{"bool", xattr.Bool("k", true), attribute.Bool("k", true)},
		{"int", xattr.Int("k", 3), attribute.Int("k", 3)},
		{"int64", xattr.Int64("k", -4), attribute.Int64("k", -4)},
		{"uint64 small", xattr.Any("k", uint64(7)), attribute.Int64("k", 7)},
		{"uint64 overflow", xattr.Any("k", uint64(1<<63)), attribute.String("k", "9223372036854775808")},
		{"float32", xattr.Any("k", float32(1.5)), attribute.Float64("k", 1.5)},
		{"float64", xattr.Float64("k", 2.25), attribute.Float64("k", 2.25)},
		{"duration ms", xattr.Duration("k", 1500*time.Microsecond), attribute.Float64("k", 1.5)},
		{"nil", xattr.Any("k", nil), attribute.String("k", "")},
		{"error", xattr.Any("k", errors.New("boom")), attribute.String("k", "boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.attr.KeyValue())
		})
	}
}

func TestDedup_LastWriteWins(t *testing.T) {
	t.Parallel()

	in := []xattr.Attr{
		xattr.String("a", "1"),
		xattr.String("b", "2"),
		xattr.String("", "ignored"),
		xattr.String("a", "3"),
	}
	got := xattr.Dedup(in)
	require.Len(t, got, 2)
	assert.Equal(t, xattr.String("a", "3"), got[0])
	assert.Equal(t, xattr.String("b", "2"), got[1])

	// 入参不被修改
	assert.Equal(t, "1", in[0].Value)
	assert.Nil(t, xattr.Dedup(nil))
}

func TestToOTelAndSlog(t *testing.T) {
	t.Parallel()

	attrs := []xattr.Attr{xattr.Int("n", 1), xattr.Int("n", 2)}
	kvs := xattr.ToOTel(attrs)
	require.Len(t, kvs, 1)
	assert.Equal(t, int64(2), kvs[0].Value.AsInt64())

	sl := xattr.ToSlog(attrs)
	require.Len(t, sl, 1)
	assert.Equal(t, "n", sl[0].Key)
	assert.Equal(t, int64(2), sl[0].Value.Int64())

	assert.Nil(t, xattr.ToOTel(nil))
	assert.Nil(t, xattr.ToSlog(nil))
}

func TestFromMap_Sorted(t *testing.T) {
	t.Parallel()

	got := xattr.FromMap(map[string]any{"z": 1, "a": "x", "m": true})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "m", "z"}, []string{got[0].Key, got[1].Key, got[2].Key})
	assert.Nil(t, xattr.FromMap(nil))
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := []xattr.Attr{xattr.String("route", "/x"), xattr.Int("status", 200)}
	b := []xattr.Attr{xattr.Int("status", 200), xattr.String("route", "/x")}
	c := []xattr.Attr{xattr.Int("status", 404), xattr.String("route", "/x")}

	assert.Equal(t, xattr.Fingerprint(a), xattr.Fingerprint(b), "order independent")
	assert.NotEqual(t, xattr.Fingerprint(a), xattr.Fingerprint(c))
	assert.Equal(t, xattr.Fingerprint(nil), xattr.Fingerprint([]xattr.Attr{}))

	// key 与 value 的边界不能混淆
	assert.NotEqual(t,
		xattr.Fingerprint([]xattr.Attr{xattr.String("ab", "c")}),
		xattr.Fingerprint([]xattr.Attr{xattr.String("a", "bc")}),
	)
}

func TestAttr_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "k=v", xattr.String("k", "v").String())
	assert.Equal(t, "n=3", xattr.Int("n", 3).String())
}
