package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/breakout/market"
)

func mkBars(closes []float64, volumes []float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		v := 100.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = market.Bar{
			Symbol: "BTC-USD",
			Time:   time.Date(2024, 3, 1, 0, i, 0, 0, time.UTC),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: v,
		}
	}
	return bars
}

func TestRollingReturn(t *testing.T) {
	bars := mkBars([]float64{100, 102, 104, 110}, nil)

	r := RollingReturn{Period: 3}
	v, ok := r.Compute(bars)
	require.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-9) // 110/100 - 1

	_, ok = r.Compute(bars[:3])
	assert.False(t, ok, "needs period+1 bars")
}

func TestRollingVolatilityFlatSeriesIsZero(t *testing.T) {
	bars := mkBars([]float64{100, 100, 100, 100, 100}, nil)

	v, ok := RollingVolatility{Period: 4}.Compute(bars)
	require.True(t, ok)
	assert.Zero(t, v)
}

func TestRollingVolatilityPositive(t *testing.T) {
	bars := mkBars([]float64{100, 105, 98, 107, 101}, nil)

	v, ok := RollingVolatility{Period: 4}.Compute(bars)
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
	assert.False(t, math.IsNaN(v))
}

func TestVolumeZScore(t *testing.T) {
	// Previous volumes alternate 90/110 (mean 100, stddev 10); current
	// spikes to 200.
	volumes := []float64{90, 110, 90, 110, 200}
	bars := mkBars([]float64{100, 100, 100, 100, 100}, volumes)

	z, ok := VolumeZScore{Period: 4}.Compute(bars)
	require.True(t, ok)
	assert.InDelta(t, 10.0, z, 1e-9)
}

func TestVolumeZScoreFlatWindowUndefined(t *testing.T) {
	volumes := []float64{100, 100, 100, 100, 500}
	bars := mkBars([]float64{100, 100, 100, 100, 100}, volumes)

	_, ok := VolumeZScore{Period: 4}.Compute(bars)
	assert.False(t, ok, "zero variance window must be undefined, not infinite")
}

func TestRangeHighLowExcludeCurrentBar(t *testing.T) {
	bars := mkBars([]float64{100, 102, 101, 120}, nil)

	hi, ok := RangeHigh{Period: 3}.Compute(bars)
	require.True(t, ok)
	assert.InDelta(t, 102*1.01, hi, 1e-9, "current bar's high must not count")

	lo, ok := RangeLow{Period: 3}.Compute(bars)
	require.True(t, ok)
	assert.InDelta(t, 100*0.99, lo, 1e-9)
}

func TestMACross(t *testing.T) {
	// Rising closes: fast average above slow.
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	bars := mkBars(closes, nil)

	v, ok := MACross{Fast: 3, Slow: 6}.Compute(bars)
	require.True(t, ok)
	assert.Greater(t, v, 0.0)

	_, ok = MACross{Fast: 3, Slow: 6}.Compute(bars[:5])
	assert.False(t, ok)
}

func TestCloseFeature(t *testing.T) {
	bars := mkBars([]float64{100, 105}, nil)
	v, ok := Close{}.Compute(bars)
	require.True(t, ok)
	assert.Equal(t, 105.0, v)
}
