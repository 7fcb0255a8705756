package features

import (
	"fmt"
	"math"

	"github.com/quantlab/breakout/market"
)

// Close passes the bar's close through as a feature so strategies can
// size and threshold against price without reaching back into the window.
type Close struct{}

func (Close) Name() string { return "close" }
func (Close) MinBars() int { return 1 }

func (Close) Compute(w []market.Bar) (float64, bool) {
	if len(w) == 0 {
		return 0, false
	}
	return w[len(w)-1].Close, true
}

// RollingReturn is the fractional price change over the trailing period:
// close[t]/close[t-n] - 1.
type RollingReturn struct {
	Period int
}

func (r RollingReturn) Name() string { return fmt.Sprintf("return_%d", r.Period) }
func (r RollingReturn) MinBars() int { return r.Period + 1 }

func (r RollingReturn) Compute(w []market.Bar) (float64, bool) {
	if len(w) < r.Period+1 {
		return 0, false
	}
	base := w[len(w)-1-r.Period].Close
	return w[len(w)-1].Close/base - 1, true
}

// RollingVolatility is the standard deviation of log returns over the
// trailing period.
type RollingVolatility struct {
	Period int
}

func (v RollingVolatility) Name() string { return fmt.Sprintf("volatility_%d", v.Period) }
func (v RollingVolatility) MinBars() int { return v.Period + 1 }

func (v RollingVolatility) Compute(w []market.Bar) (float64, bool) {
	if len(w) < v.Period+1 {
		return 0, false
	}
	tail := w[len(w)-1-v.Period:]
	rets := make([]float64, 0, v.Period)
	for i := 1; i < len(tail); i++ {
		rets = append(rets, math.Log(tail[i].Close/tail[i-1].Close))
	}
	return stddev(rets), true
}

// VolumeZScore scores the current bar's volume against the mean and
// standard deviation of the previous Period bars. A flat window (zero
// std-dev) yields an undefined value rather than a division blowup.
type VolumeZScore struct {
	Period int
}

func (z VolumeZScore) Name() string { return "volume_z" }
func (z VolumeZScore) MinBars() int { return z.Period + 1 }

func (z VolumeZScore) Compute(w []market.Bar) (float64, bool) {
	if len(w) < z.Period+1 {
		return 0, false
	}
	prev := w[len(w)-1-z.Period : len(w)-1]
	vols := make([]float64, len(prev))
	for i, b := range prev {
		vols[i] = b.Volume
	}
	sd := stddev(vols)
	if sd == 0 {
		return 0, false
	}
	return (w[len(w)-1].Volume - mean(vols)) / sd, true
}

// RangeHigh is the highest high of the previous Period bars, excluding
// the current bar so breakout comparisons have no look-ahead.
type RangeHigh struct {
	Period int
}

func (r RangeHigh) Name() string { return "range_high" }
func (r RangeHigh) MinBars() int { return r.Period + 1 }

func (r RangeHigh) Compute(w []market.Bar) (float64, bool) {
	if len(w) < r.Period+1 {
		return 0, false
	}
	prev := w[len(w)-1-r.Period : len(w)-1]
	hi := prev[0].High
	for _, b := range prev[1:] {
		if b.High > hi {
			hi = b.High
		}
	}
	return hi, true
}

// RangeLow is the lowest low of the previous Period bars, excluding the
// current bar.
type RangeLow struct {
	Period int
}

func (r RangeLow) Name() string { return "range_low" }
func (r RangeLow) MinBars() int { return r.Period + 1 }

func (r RangeLow) Compute(w []market.Bar) (float64, bool) {
	if len(w) < r.Period+1 {
		return 0, false
	}
	prev := w[len(w)-1-r.Period : len(w)-1]
	lo := prev[0].Low
	for _, b := range prev[1:] {
		if b.Low < lo {
			lo = b.Low
		}
	}
	return lo, true
}

// MACross is the spread between a fast and slow simple moving average of
// closes, normalized by the slow average so it is comparable across price
// levels. Positive values mean the fast average is above the slow.
type MACross struct {
	Fast int
	Slow int
}

func (m MACross) Name() string { return fmt.Sprintf("ma_cross_%d_%d", m.Fast, m.Slow) }
func (m MACross) MinBars() int { return m.Slow }

func (m MACross) Compute(w []market.Bar) (float64, bool) {
	if m.Fast <= 0 || m.Slow <= m.Fast || len(w) < m.Slow {
		return 0, false
	}
	fast := smaClose(w, m.Fast)
	slow := smaClose(w, m.Slow)
	if slow == 0 {
		return 0, false
	}
	return (fast - slow) / slow, true
}

func smaClose(w []market.Bar, n int) float64 {
	sum := 0.0
	for _, b := range w[len(w)-n:] {
		sum += b.Close
	}
	return sum / float64(n)
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
