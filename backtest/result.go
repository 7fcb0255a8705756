package backtest

import (
	"time"

	"github.com/quantlab/breakout/features"
	"github.com/quantlab/breakout/sim"
)

// Result summarizes a finished run.
type Result struct {
	RunID string
	Start time.Time
	End   time.Time

	Ticks       int
	Bars        int
	DroppedBars int

	Trades  int
	Wins    int
	Losses  int
	WinRate float64

	MaxDrawdown float64 // fractional peak-to-trough of the equity curve
	FinalCash   float64
	FinalEquity float64
}

func (r *Result) finish(eng *features.Engine, s *sim.Simulator) {
	r.DroppedBars = eng.Rejected()
	r.FinalCash = s.Cash()
	r.FinalEquity = s.Equity()

	for _, rec := range s.Realized() {
		r.Trades++
		switch {
		case rec.PnL > 0:
			r.Wins++
		case rec.PnL < 0:
			r.Losses++
		}
	}
	if r.Trades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Trades)
	}
	r.MaxDrawdown = maxDrawdown(s.Curve())
}

func maxDrawdown(curve []sim.EquityPoint) float64 {
	var peak, worst float64
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			if dd := (peak - pt.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
