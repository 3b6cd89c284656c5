package xsampling_test

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/observability/xsampling"
)

func TestNewRateSampler_Invalid(t *testing.T) {
	t.Parallel()

	for _, rate := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		s, err := xsampling.NewRateSampler(rate)
		assert.Nil(t, s)
		assert.ErrorIs(t, err, xsampling.ErrInvalidRate)
	}
}

func TestRateSampler_Bounds(t *testing.T) {
	t.Parallel()

	zero, err := xsampling.NewRateSampler(0)
	require.NoError(t, err)
	one, err := xsampling.NewRateSampler(1)
	require.NoError(t, err)

	for range 1000 {
		assert.False(t, zero.ShouldSample())
		assert.True(t, one.ShouldSample())
	}
}

func TestRateSampler_Distribution(t *testing.T) {
	t.Parallel()

	s, err := xsampling.NewRateSampler(0.3)
	require.NoError(t, err)

	const n = 20000
	hits := 0
	for range n {
		if s.ShouldSample() {
			hits++
		}
	}
	assert.InDelta(t, 0.3, float64(hits)/n, 0.03)
}

func TestRateSampler_SetRate(t *testing.T) {
	t.Parallel()

	s, err := xsampling.NewRateSampler(0)
	require.NoError(t, err)
	require.NoError(t, s.SetRate(1))
	assert.InDelta(t, 1.0, s.Rate(), 0)
	assert.True(t, s.ShouldSample())

	assert.ErrorIs(t, s.SetRate(2), xsampling.ErrInvalidRate)
	assert.InDelta(t, 1.0, s.Rate(), 0, "invalid SetRate must keep previous rate")
}

func TestRateSampler_ConcurrentSetRate(t *testing.T) {
	t.Parallel()

	s, err := xsampling.NewRateSampler(0.5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetRate(float64(i%2) * 1.0)
		}()
		go func() {
			defer wg.Done()
			_ = s.ShouldSample()
		}()
	}
	wg.Wait()
	r := s.Rate()
	assert.True(t, r == 0 || r == 1)
}
