package features

import (
	"fmt"
	"time"

	"github.com/yanun0323/logs"

	"github.com/quantlab/breakout/market"
)

// ErrBarRejected marks a data-quality drop: a malformed, duplicate, or
// out-of-order bar. Rejections are local; the pipeline continues.
type ErrBarRejected struct {
	Symbol string
	Time   time.Time
	Cause  error
}

func (e *ErrBarRejected) Error() string {
	return fmt.Sprintf("bar rejected %s@%s: %v", e.Symbol, e.Time.Format(time.RFC3339), e.Cause)
}

func (e *ErrBarRejected) Unwrap() error { return e.Cause }

// Engine maintains one bounded trailing window per symbol and turns each
// accepted bar into a feature vector. Buffers are partitioned by symbol;
// nothing is shared across symbols, so per-symbol computation can fan out
// freely.
type Engine struct {
	indicators []Indicator
	capacity   int
	windows    map[string][]market.Bar
	lastTime   map[string]time.Time
	rejected   int
}

// NewEngine builds an engine over a fixed indicator set. Window capacity
// is the largest MinBars any indicator needs.
func NewEngine(indicators ...Indicator) *Engine {
	capacity := 1
	for _, ind := range indicators {
		if n := ind.MinBars(); n > capacity {
			capacity = n
		}
	}
	return &Engine{
		indicators: indicators,
		capacity:   capacity,
		windows:    make(map[string][]market.Bar),
		lastTime:   make(map[string]time.Time),
	}
}

// Capacity returns the per-symbol window size.
func (e *Engine) Capacity() int { return e.capacity }

// Rejected returns how many bars have been dropped for data-quality
// reasons since the engine was created.
func (e *Engine) Rejected() int { return e.rejected }

// Observe appends a bar to its symbol's window and computes the feature
// vector for that timestamp. Malformed bars and duplicate or
// non-monotonic timestamps are dropped with an *ErrBarRejected; the
// window is untouched, so feeding the same bar twice never yields a
// second vector.
func (e *Engine) Observe(b market.Bar) (Vector, error) {
	if err := b.Validate(); err != nil {
		e.rejected++
		logs.Warnf("features: dropping bar: %v", err)
		return Vector{}, &ErrBarRejected{Symbol: b.Symbol, Time: b.Time, Cause: err}
	}
	if last, ok := e.lastTime[b.Symbol]; ok && !b.Time.After(last) {
		e.rejected++
		err := &ErrBarRejected{Symbol: b.Symbol, Time: b.Time,
			Cause: fmt.Errorf("timestamp not after %s", last.Format(time.RFC3339))}
		logs.Warnf("features: dropping bar: %v", err)
		return Vector{}, err
	}

	w := append(e.windows[b.Symbol], b)
	if len(w) > e.capacity {
		w = w[1:]
	}
	e.windows[b.Symbol] = w
	e.lastTime[b.Symbol] = b.Time

	return e.Compute(b.Symbol, w), nil
}

// Compute scores every indicator over the window, which must be ordered
// oldest-first and end at the bar being scored. Indicators without enough
// history stay undefined (absent), never zero. Compute has no state: the
// same window always yields the same vector.
func (e *Engine) Compute(symbol string, window []market.Bar) Vector {
	v := Vector{
		Symbol: symbol,
		Time:   window[len(window)-1].Time,
		Values: make(map[string]float64, len(e.indicators)),
	}
	for _, ind := range e.indicators {
		if val, ok := ind.Compute(window); ok {
			v.Values[ind.Name()] = val
		}
	}
	return v
}

// Reset clears all per-symbol state.
func (e *Engine) Reset() {
	e.windows = make(map[string][]market.Bar)
	e.lastTime = make(map[string]time.Time)
	e.rejected = 0
}
