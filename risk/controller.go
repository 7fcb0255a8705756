package risk

import (
	"fmt"

	"github.com/quantlab/breakout/signal"
)

// Decision is the outcome of admitting one signal. Accepted decisions
// carry the sized quantity; rejections always carry a reason code.
type Decision struct {
	Signal   signal.Signal
	Accepted bool
	Quantity float64 // unsigned; direction comes from the signal
	Exit     bool    // accepted signal closes an open opposite position
	Reason   Reason
	Detail   string
}

func accept(sig signal.Signal, qty float64, exit bool) Decision {
	return Decision{Signal: sig, Accepted: true, Quantity: qty, Exit: exit}
}

func reject(sig signal.Signal, reason Reason, format string, args ...any) Decision {
	return Decision{Signal: sig, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Controller applies the admission policy. The check order is fixed:
// capacity, size, exposure, conflict arbitration, cooldown. Reordering
// would change which reason a doomed signal reports, so don't.
type Controller struct {
	limits Limits
}

func NewController(limits Limits) (*Controller, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Controller{limits: limits}, nil
}

func (c *Controller) Limits() Limits { return c.limits }

// Admit sizes and admits one directional signal. conflictSet holds all
// directional signals for the same symbol and timestamp, including sig
// itself, in strategy registration order; it only matters for conflict
// arbitration. price is the mark used for sizing, normally the bar close.
func (c *Controller) Admit(sig signal.Signal, conflictSet []signal.Signal, price float64, snap Snapshot) Decision {
	if !sig.Directional() {
		return reject(sig, ReasonConflict, "hold signals are never admitted")
	}

	existing, open := snap.Positions[sig.Symbol]
	oppositeExit := open && sig.Direction()*sign(existing) < 0

	// 1. Capacity applies only to entries that would open a new symbol.
	if !open && snap.OpenCount() >= c.limits.MaxOpenPositions {
		return reject(sig, ReasonCapacity, "open positions %d at limit %d",
			snap.OpenCount(), c.limits.MaxOpenPositions)
	}

	var qty float64
	if oppositeExit {
		// Closing trades release exposure, so size and exposure caps do
		// not apply; quantity is whatever is open.
		qty = abs(existing)
	} else {
		// 2. Per-symbol cash cap.
		budget := min(c.limits.MaxPositionValue, snap.Cash)
		if price <= 0 || budget <= 0 {
			return reject(sig, ReasonSize, "no budget: cash %.2f cap %.2f price %.6g",
				snap.Cash, c.limits.MaxPositionValue, price)
		}
		qty = budget / price

		// 3. Aggregate exposure headroom.
		headroom := c.limits.MaxExposureFraction*snap.Equity - snap.Exposure
		if headroom <= 0 {
			return reject(sig, ReasonExposure, "exposure %.2f at limit %.2f",
				snap.Exposure, c.limits.MaxExposureFraction*snap.Equity)
		}
		if qty*price > headroom {
			qty = headroom / price
		}
	}

	// 4. Conflict arbitration across strategies. Under the independent
	// same-side policy, agreeing signals skip arbitration against each
	// other and only contest opposite directions.
	set := conflictSet
	if c.limits.SameSidePolicy == SameSideIndependent {
		set = make([]signal.Signal, 0, len(conflictSet))
		for _, p := range conflictSet {
			if same(p, sig) || p.Direction() != sig.Direction() {
				set = append(set, p)
			}
		}
	}
	if winner, contested := arbitrate(sig, set); contested {
		return reject(sig, ReasonConflict, "lost to %s %s strength %.3f",
			winner.Strategy, winner.Type, winner.Strength)
	}

	// 5. Cooldown after the symbol's last close.
	if !open {
		if since, closed := snap.SinceClose[sig.Symbol]; closed && since < c.limits.CooldownBars {
			return reject(sig, ReasonCooldown, "%d bars since close, cooldown %d",
				since, c.limits.CooldownBars)
		}
	}

	return accept(sig, qty, oppositeExit)
}

// AdmitBatch admits every directional signal in the batch, which must all
// share one timestamp. Signals for the same symbol arbitrate against each
// other; at most one per symbol is accepted.
func (c *Controller) AdmitBatch(sigs []signal.Signal, price func(symbol string) float64, snap Snapshot) []Decision {
	directional := make([]signal.Signal, 0, len(sigs))
	for _, s := range sigs {
		if s.Directional() {
			directional = append(directional, s)
		}
	}

	out := make([]Decision, 0, len(directional))
	for _, s := range directional {
		set := make([]signal.Signal, 0, len(directional))
		for _, p := range directional {
			if p.Symbol == s.Symbol {
				set = append(set, p)
			}
		}
		out = append(out, c.Admit(s, set, price(s.Symbol), snap))
	}
	return out
}

// arbitrate resolves a conflicting signal set. Highest strength wins;
// ties prefer rule over model for explainability, then earlier
// registration order (the set's iteration order). contested is true when
// sig is not the winner.
func arbitrate(sig signal.Signal, conflictSet []signal.Signal) (winner signal.Signal, contested bool) {
	if len(conflictSet) == 0 {
		return sig, false
	}
	winner = conflictSet[0]
	for _, p := range conflictSet[1:] {
		if beats(p, winner) {
			winner = p
		}
	}
	return winner, !same(winner, sig)
}

// beats reports whether the challenger strictly outranks the incumbent.
// Strict comparison keeps the earlier-registered signal on full ties.
func beats(challenger, incumbent signal.Signal) bool {
	if challenger.Strength != incumbent.Strength {
		return challenger.Strength > incumbent.Strength
	}
	if challenger.Source != incumbent.Source {
		return challenger.Source == signal.SourceRule
	}
	return false
}

func same(a, b signal.Signal) bool {
	return a.Strategy == b.Strategy && a.Symbol == b.Symbol && a.Time.Equal(b.Time)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
