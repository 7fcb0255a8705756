// Package features computes derived indicators from trailing bar windows.
//
// Every indicator is a pure function of its window: recomputing over the
// same bars yields bit-identical values, which keeps backtests replayable.
package features

import (
	"sort"
	"time"

	"github.com/quantlab/breakout/market"
)

// Indicator computes a single value from a trailing window of closed bars.
// The window is ordered oldest-first and ends at the bar being scored.
type Indicator interface {
	// Name returns a stable identifier like "return_12" or "volume_z".
	// Feature vectors are keyed by it.
	Name() string

	// MinBars returns how many bars the window must hold before Compute
	// can produce a defined value.
	MinBars() int

	// Compute returns the indicator value for the window. ok=false means
	// the value is undefined (insufficient history); callers must treat
	// undefined as a non-vote, never as zero.
	Compute(window []market.Bar) (value float64, ok bool)
}

// Vector is the set of defined feature values for one (symbol, timestamp).
// Undefined features are simply absent. Vectors are immutable after
// creation.
type Vector struct {
	Symbol string
	Time   time.Time
	Values map[string]float64
}

// Get returns a feature value and whether it is defined.
func (v Vector) Get(name string) (float64, bool) {
	val, ok := v.Values[name]
	return val, ok
}

// Names returns the defined feature names in sorted order, so serialized
// vectors are byte-identical across runs.
func (v Vector) Names() []string {
	names := make([]string, 0, len(v.Values))
	for n := range v.Values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
