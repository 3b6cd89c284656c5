package xsampling

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
)

// RateSampler 按比率随机采样，例如 rate=0.1 表示约 10% 的根 span 被采样。
// 比率以 float64 bits 存放，SetRate 与 ShouldSample 可并发调用。
type RateSampler struct {
	bits atomic.Uint64
}

// NewRateSampler 创建比率采样器。rate 超出 [0, 1] 或为 NaN 时返回 ErrInvalidRate。
func NewRateSampler(rate float64) (*RateSampler, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	s := &RateSampler{}
	s.bits.Store(math.Float64bits(rate))
	return s, nil
}

// ShouldSample 返回本次是否采样。
func (s *RateSampler) ShouldSample() bool {
	switch rate := s.Rate(); {
	case rate <= 0:
		return false
	case rate >= 1:
		return true
	default:
		return rand.Float64() < rate
	}
}

// Rate 返回当前采样比率
func (s *RateSampler) Rate() float64 {
	return math.Float64frombits(s.bits.Load())
}

// SetRate 调整采样比率。非法值返回 ErrInvalidRate 且保持原比率。
func (s *RateSampler) SetRate(rate float64) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	s.bits.Store(math.Float64bits(rate))
	return nil
}

func validateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return nil
}
