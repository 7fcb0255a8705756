package market

import (
	"sort"
	"time"
)

// Series is an ordered, deduplicated bar series for one symbol.
// Append enforces the ordering and dedup invariants; callers that need to
// know why a bar was refused get the validation error back and decide how
// to log it.
type Series struct {
	Symbol string
	bars   []Bar
}

func NewSeries(symbol string) *Series {
	return &Series{Symbol: symbol}
}

// Append adds a bar to the series. Bars with non-monotonic or duplicate
// timestamps, or failing Validate, are refused with ok=false; the series
// is unchanged.
func (s *Series) Append(b Bar) (ok bool, err error) {
	if err := b.Validate(); err != nil {
		return false, err
	}
	if b.Symbol != s.Symbol {
		return false, nil
	}
	if n := len(s.bars); n > 0 && !b.Time.After(s.bars[n-1].Time) {
		return false, nil
	}
	s.bars = append(s.bars, b)
	return true, nil
}

func (s *Series) Len() int     { return len(s.bars) }
func (s *Series) At(i int) Bar { return s.bars[i] }
func (s *Series) Bars() []Bar  { return s.bars }

// Last returns the most recent bar, or a zero Bar when empty.
func (s *Series) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Merge interleaves multiple per-symbol series into one globally
// time-ordered stream. Ties on timestamp are broken by symbol so the
// result is stable across runs.
func Merge(series ...*Series) []Bar {
	var out []Bar
	for _, s := range series {
		out = append(out, s.bars...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// ClipRange returns the bars within [start, end) preserving order.
func ClipRange(bars []Bar, start, end time.Time) []Bar {
	var out []Bar
	for _, b := range bars {
		if b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && !b.Time.Before(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
