// Package sim executes admitted signals against simulated capital. It is
// the exclusive owner of positions, fills, P&L records, and the account;
// nothing else mutates them.
package sim

import (
	"fmt"
	"time"
)

// Position is one open simulated position. Quantity is signed: positive
// long, negative short.
type Position struct {
	Symbol     string
	Quantity   float64
	EntryPrice float64
	OpenedAt   time.Time

	// entryFees accumulates fees paid opening (and scaling into) the
	// position, charged against realized P&L at close.
	entryFees float64

	// peak tracks the most favorable intrabar price since entry, for the
	// max-drawdown exit: highest high for longs, lowest low for shorts.
	peak float64
}

// Side returns +1 for long, -1 for short.
func (p *Position) Side() int {
	if p.Quantity < 0 {
		return -1
	}
	return 1
}

// EquityPoint is one sample of the account's equity curve.
type EquityPoint struct {
	Time   time.Time
	Cash   float64
	Equity float64
}

// Config is the simulator's execution model.
type Config struct {
	InitialCash    float64
	StopLossPct    float64 // 0 disables
	TakeProfitPct  float64 // 0 disables
	MaxDrawdownPct float64 // 0 disables
	AllowScaleIn   bool
	FeeBps         float64
	SlippageBps    float64
}

func (c Config) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("sim: initial_cash must be positive, got %v", c.InitialCash)
	}
	for _, p := range []struct {
		name string
		val  float64
	}{
		{"stop_loss_pct", c.StopLossPct},
		{"take_profit_pct", c.TakeProfitPct},
		{"max_drawdown_pct", c.MaxDrawdownPct},
	} {
		if p.val < 0 || p.val >= 1 {
			return fmt.Errorf("sim: %s must be in [0,1), got %v", p.name, p.val)
		}
	}
	if c.FeeBps < 0 || c.SlippageBps < 0 {
		return fmt.Errorf("sim: fee_bps and slippage_bps must not be negative")
	}
	return nil
}

// InvariantViolation is a state-machine bug surfaced by the simulator.
// It is fatal to the run: partial ticks are never persisted past it.
type InvariantViolation struct {
	Symbol string
	Time   time.Time
	Rule   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("simulation invariant violated: %s (symbol=%s time=%s)",
		e.Rule, e.Symbol, e.Time.Format(time.RFC3339))
}
