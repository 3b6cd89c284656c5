package xattr

import (
	"cmp"
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint 计算属性集合的指纹。
//
// 先 Dedup，再按 key 排序，因此与输入顺序无关。
// 空集合的指纹固定为 xxhash 的空输入值。
func Fingerprint(attrs []Attr) uint64 {
	deduped := Dedup(attrs)
	slices.SortFunc(deduped, func(a, b Attr) int {
		return cmp.Compare(a.Key, b.Key)
	})

	d := xxhash.New()
	for _, a := range deduped {
		_, _ = d.WriteString(a.Key)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(a.KeyValue().Value.Emit())
		_, _ = d.Write([]byte{0xff})
	}
	return d.Sum64()
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
