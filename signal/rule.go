package signal

import (
	"fmt"

	"github.com/quantlab/breakout/features"
)

// RuleConfig parameterizes the threshold breakout rule.
type RuleConfig struct {
	// VolumeZMin is the minimum volume z-score for a breakout to count.
	VolumeZMin float64 `yaml:"volume_z_min"`

	// MarginRef is the price margin (fractional distance beyond the range
	// bound) that maps to full strength. Smaller breakouts scale linearly
	// from 0.5 up.
	MarginRef float64 `yaml:"margin_ref"`
}

// RuleDefaults returns the rule parameters used when config leaves them
// unset.
func RuleDefaults() RuleConfig {
	return RuleConfig{
		VolumeZMin: 2.0,
		MarginRef:  0.02,
	}
}

// Rule is the deterministic breakout strategy: long when the close clears
// the trailing N-bar high on a volume spike, short symmetrically below
// the N-bar low. Strength is a monotonic normalization of the margin
// beyond the breached bound, clamped to [0,1].
type Rule struct {
	name string
	cfg  RuleConfig
}

func NewRule(name string, cfg RuleConfig) *Rule {
	if cfg.MarginRef <= 0 {
		cfg.MarginRef = RuleDefaults().MarginRef
	}
	return &Rule{name: name, cfg: cfg}
}

func (r *Rule) Name() string   { return r.name }
func (r *Rule) Source() Source { return SourceRule }

func (r *Rule) Evaluate(v features.Vector) Signal {
	closePx, ok1 := v.Get("close")
	hi, ok2 := v.Get("range_high")
	lo, ok3 := v.Get("range_low")
	volZ, ok4 := v.Get("volume_z")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return hold(v, r.name, SourceRule, "insufficient history")
	}

	if volZ > r.cfg.VolumeZMin {
		switch {
		case closePx > hi:
			margin := (closePx - hi) / hi
			return Signal{
				Symbol:   v.Symbol,
				Time:     v.Time,
				Type:     BreakoutLong,
				Strength: r.strength(margin),
				Source:   SourceRule,
				Strategy: r.name,
				Rationale: fmt.Sprintf("close %.6g above range high %.6g, volume z %.2f > %.2f",
					closePx, hi, volZ, r.cfg.VolumeZMin),
			}
		case closePx < lo:
			margin := (lo - closePx) / lo
			return Signal{
				Symbol:   v.Symbol,
				Time:     v.Time,
				Type:     BreakoutShort,
				Strength: r.strength(margin),
				Source:   SourceRule,
				Strategy: r.name,
				Rationale: fmt.Sprintf("close %.6g below range low %.6g, volume z %.2f > %.2f",
					closePx, lo, volZ, r.cfg.VolumeZMin),
			}
		}
	}

	return hold(v, r.name, SourceRule, "no breakout")
}

// strength maps a price margin onto [0,1]. A zero margin starts at 0.5
// (a breakout just happened) and MarginRef or more saturates at 1.
func (r *Rule) strength(margin float64) float64 {
	return clamp01(0.5 + 0.5*margin/r.cfg.MarginRef)
}
