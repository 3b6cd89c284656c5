package xsampling

import (
	"context"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ParentRatioSampler 基于父节点的比率采样器，实现 sdktrace.Sampler。
type ParentRatioSampler struct {
	root *RateSampler
}

// ParentRatio 创建基于父节点的比率采样器。
//
// 根 span 按 rate 随机采样；存在父 span 时（本地或远端）继承其 sampled 标志，
// 与当前 rate 无关。rate 非法时返回 ErrInvalidRate。
func ParentRatio(rate float64) (*ParentRatioSampler, error) {
	root, err := NewRateSampler(rate)
	if err != nil {
		return nil, err
	}
	return &ParentRatioSampler{root: root}, nil
}

// ShouldSample 实现 sdktrace.Sampler。
func (s *ParentRatioSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	ctx := p.ParentContext
	if ctx == nil {
		ctx = context.Background()
	}
	psc := trace.SpanContextFromContext(ctx)
	if psc.IsValid() {
		return sdktrace.SamplingResult{
			Decision:   decision(psc.IsSampled()),
			Tracestate: psc.TraceState(),
		}
	}
	return sdktrace.SamplingResult{
		Decision: decision(s.root.ShouldSample()),
	}
}

// Description 实现 sdktrace.Sampler。
func (s *ParentRatioSampler) Description() string {
	return fmt.Sprintf("ParentRatio{%g}", s.Rate())
}

// Rate 返回根 span 的当前采样比率。
func (s *ParentRatioSampler) Rate() float64 {
	return s.root.Rate()
}

// SetRate 调整根 span 的采样比率，只影响之后创建的根 span。
func (s *ParentRatioSampler) SetRate(rate float64) error {
	return s.root.SetRate(rate)
}

func decision(sampled bool) sdktrace.SamplingDecision {
	if sampled {
		return sdktrace.RecordAndSample
	}
	return sdktrace.Drop
}

var _ sdktrace.Sampler = (*ParentRatioSampler)(nil)
