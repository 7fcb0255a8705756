// Package risk decides whether scored signals become simulated orders.
package risk

import "fmt"

// Reason is the machine-readable code attached to every rejection.
type Reason string

const (
	ReasonCapacity Reason = "capacity"
	ReasonSize     Reason = "size"
	ReasonExposure Reason = "exposure"
	ReasonConflict Reason = "conflict"
	ReasonCooldown Reason = "cooldown"
)

// Limits is the risk configuration applied to every admission.
type Limits struct {
	// MaxOpenPositions caps concurrent open symbols.
	MaxOpenPositions int

	// MaxPositionValue caps the cash committed to a single entry.
	MaxPositionValue float64

	// MaxExposureFraction caps Σ|qty*price| across open positions as a
	// fraction of equity, in (0,1].
	MaxExposureFraction float64

	// CooldownBars blocks re-entry into a symbol for this many bars after
	// its position closes.
	CooldownBars int

	// SameSidePolicy controls arbitration when strategies agree on
	// direction: "strongest" (default) admits only the highest-strength
	// signal, "independent" lets each same-side signal through on its
	// own. Opposite directions always arbitrate.
	SameSidePolicy SameSidePolicy
}

// SameSidePolicy names the reinforcement policy for agreeing strategies.
type SameSidePolicy string

const (
	SameSideStrongest   SameSidePolicy = "strongest"
	SameSideIndependent SameSidePolicy = "independent"
)

// Validate rejects limit sets that would make every admission undecidable.
func (l Limits) Validate() error {
	if l.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk: max_open_positions must be positive, got %d", l.MaxOpenPositions)
	}
	if l.MaxPositionValue <= 0 {
		return fmt.Errorf("risk: max_position_value must be positive, got %v", l.MaxPositionValue)
	}
	if l.MaxExposureFraction <= 0 || l.MaxExposureFraction > 1 {
		return fmt.Errorf("risk: max_aggregate_exposure_fraction must be in (0,1], got %v", l.MaxExposureFraction)
	}
	if l.CooldownBars < 0 {
		return fmt.Errorf("risk: cooldown_bars must not be negative, got %d", l.CooldownBars)
	}
	switch l.SameSidePolicy {
	case "", SameSideStrongest, SameSideIndependent:
	default:
		return fmt.Errorf("risk: unknown same_side_policy %q", l.SameSidePolicy)
	}
	return nil
}

// Snapshot is the controller's read-only view of the simulated account at
// admission time. The simulator produces it once per tick.
type Snapshot struct {
	Cash   float64
	Equity float64

	// Positions maps open symbols to signed quantities.
	Positions map[string]float64

	// Exposure is Σ|qty * mark| over open positions.
	Exposure float64

	// SinceClose maps symbols to bars elapsed since their last position
	// closed. Symbols that never closed are absent.
	SinceClose map[string]int
}

// OpenCount returns the number of open positions.
func (s Snapshot) OpenCount() int { return len(s.Positions) }
