// Package market defines the OHLCV bar model shared by the whole pipeline.
package market

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV observation for a symbol. Bars are immutable once
// ingested; a symbol's series is strictly increasing in time with no
// duplicate timestamps.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate reports why a bar is unusable. It checks for NaN/Inf and
// negative prices or volume, and basic OHLC consistency.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("bar: empty symbol")
	}
	if b.Time.IsZero() {
		return fmt.Errorf("bar %s: zero timestamp", b.Symbol)
	}
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("bar %s@%s: %s is not finite", b.Symbol, b.Time.Format(time.RFC3339), v.name)
		}
		if v.val <= 0 {
			return fmt.Errorf("bar %s@%s: %s %v is not positive", b.Symbol, b.Time.Format(time.RFC3339), v.name, v.val)
		}
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: volume %v is invalid", b.Symbol, b.Time.Format(time.RFC3339), b.Volume)
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s@%s: high %v below low %v", b.Symbol, b.Time.Format(time.RFC3339), b.High, b.Low)
	}
	return nil
}

// Range is the bar's high-low spread.
func (b Bar) Range() float64 { return b.High - b.Low }
