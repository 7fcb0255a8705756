// Package signal scores feature vectors into directional breakout signals.
package signal

import (
	"time"

	"github.com/quantlab/breakout/features"
)

// Type classifies a signal's direction.
type Type string

const (
	BreakoutLong  Type = "breakout_long"
	BreakoutShort Type = "breakout_short"
	Hold          Type = "hold"
)

// Source identifies the kind of strategy that produced a signal.
type Source string

const (
	SourceRule Source = "rule"
	SourceML   Source = "ml"
)

// Signal is a scored directional recommendation for one symbol at one
// timestamp, produced by exactly one strategy. Signals are never mutated.
type Signal struct {
	Symbol    string
	Time      time.Time
	Type      Type
	Strength  float64 // in [0,1]
	Source    Source
	Strategy  string
	Rationale string
}

// Directional reports whether the signal recommends opening or reversing
// a position.
func (s Signal) Directional() bool {
	return s.Type == BreakoutLong || s.Type == BreakoutShort
}

// Direction returns +1 for long, -1 for short, 0 for hold.
func (s Signal) Direction() int {
	switch s.Type {
	case BreakoutLong:
		return 1
	case BreakoutShort:
		return -1
	}
	return 0
}

// Strategy scores one feature vector into one signal. Implementations
// must degrade gracefully: an undefined required feature yields a hold
// with strength 0, never a failed tick. Evaluate must be deterministic
// and must not retain or mutate the vector.
type Strategy interface {
	Name() string
	Source() Source
	Evaluate(v features.Vector) Signal
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func hold(v features.Vector, name string, src Source, why string) Signal {
	return Signal{
		Symbol:    v.Symbol,
		Time:      v.Time,
		Type:      Hold,
		Strength:  0,
		Source:    src,
		Strategy:  name,
		Rationale: why,
	}
}
