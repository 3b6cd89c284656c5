package xmetrics

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omeyang/xtel/pkg/observability/xattr"
)

// cardinality 跟踪最近出现的属性集合指纹。
//
// LRU 容量等于阈值：缓存已满时出现新指纹会触发淘汰，
// 说明近期不同属性集合的数量超过了阈值。
type cardinality struct {
	seen   *lru.Cache[uint64, struct{}]
	warned atomic.Bool
}

// newCardinality limit <= 0 时返回 nil（关闭监控）。
func newCardinality(limit int) *cardinality {
	if limit <= 0 {
		return nil
	}
	cache, err := lru.New[uint64, struct{}](limit)
	if err != nil {
		return nil
	}
	return &cardinality{seen: cache}
}

// observe 记录一次属性集合，首次超过阈值时返回 true。
func (c *cardinality) observe(attrs []xattr.Attr) bool {
	if c == nil {
		return false
	}
	if evicted := c.seen.Add(xattr.Fingerprint(attrs), struct{}{}); !evicted {
		return false
	}
	return c.warned.CompareAndSwap(false, true)
}

func (c *cardinality) exceeded() bool {
	return c != nil && c.warned.Load()
}
