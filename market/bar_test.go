package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(sym string, minute int, close float64) Bar {
	t := time.Date(2024, 3, 1, 0, minute, 0, 0, time.UTC)
	return Bar{
		Symbol: sym,
		Time:   t,
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 100,
	}
}

func TestBarValidate(t *testing.T) {
	assert.NoError(t, bar("BTC-USD", 0, 100).Validate())

	b := bar("BTC-USD", 0, 100)
	b.Close = math.NaN()
	assert.Error(t, b.Validate())

	b = bar("BTC-USD", 0, 100)
	b.Low = -5
	assert.Error(t, b.Validate())

	b = bar("BTC-USD", 0, 100)
	b.Volume = -1
	assert.Error(t, b.Validate())

	b = bar("BTC-USD", 0, 100)
	b.High, b.Low = b.Low, b.High
	assert.Error(t, b.Validate())

	b = bar("", 0, 100)
	assert.Error(t, b.Validate())
}

func TestSeriesAppendOrdering(t *testing.T) {
	s := NewSeries("BTC-USD")

	ok, err := s.Append(bar("BTC-USD", 0, 100))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Append(bar("BTC-USD", 1, 101))
	require.NoError(t, err)
	require.True(t, ok)

	// Duplicate timestamp is refused.
	ok, _ = s.Append(bar("BTC-USD", 1, 999))
	assert.False(t, ok)

	// Out-of-order timestamp is refused.
	ok, _ = s.Append(bar("BTC-USD", 0, 999))
	assert.False(t, ok)

	// Wrong symbol is refused.
	ok, _ = s.Append(bar("ETH-USD", 2, 50))
	assert.False(t, ok)

	assert.Equal(t, 2, s.Len())
	last, found := s.Last()
	require.True(t, found)
	assert.Equal(t, 101.0, last.Close)
}

func TestMergeGlobalOrder(t *testing.T) {
	btc := NewSeries("BTC-USD")
	eth := NewSeries("ETH-USD")
	for i := 0; i < 3; i++ {
		_, err := btc.Append(bar("BTC-USD", i, 100+float64(i)))
		require.NoError(t, err)
		_, err = eth.Append(bar("ETH-USD", i, 50+float64(i)))
		require.NoError(t, err)
	}

	merged := Merge(eth, btc)
	require.Len(t, merged, 6)

	for i := 1; i < len(merged); i++ {
		prev, cur := merged[i-1], merged[i]
		assert.False(t, cur.Time.Before(prev.Time))
		if cur.Time.Equal(prev.Time) {
			// Ties break by symbol for a stable stream.
			assert.Less(t, prev.Symbol, cur.Symbol)
		}
	}
}

func TestClipRange(t *testing.T) {
	var bars []Bar
	for i := 0; i < 5; i++ {
		bars = append(bars, bar("BTC-USD", i, 100))
	}

	start := bars[1].Time
	end := bars[4].Time
	clipped := ClipRange(bars, start, end)
	require.Len(t, clipped, 3)
	assert.Equal(t, bars[1].Time, clipped[0].Time)
	assert.Equal(t, bars[3].Time, clipped[2].Time)
}
