package sim

import (
	"fmt"
	"sort"
	"time"

	"github.com/yanun0323/logs"

	"github.com/quantlab/breakout/journal"
	"github.com/quantlab/breakout/market"
	"github.com/quantlab/breakout/risk"
	"github.com/quantlab/breakout/signal"
)

// Simulator runs one paper-trading account through the per-symbol
// FLAT -> OPEN -> FLAT state machine. Fills are atomic at the bar close
// (slippage-adjusted); protective exits fill at their trigger price using
// intrabar highs and lows. A single logical worker drives it; the clock
// serializes ticks, so there is no locking here.
type Simulator struct {
	runID string
	cfg   Config
	j     journal.Journal

	cash       float64
	positions  map[string]*Position
	lastMark   map[string]float64
	lastBarAt  map[string]time.Time
	sinceClose map[string]int
	curve      []EquityPoint
	realized   []journal.PnLRecord
	fillSeq    int
}

func NewSimulator(runID string, cfg Config, j journal.Journal) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		runID:      runID,
		cfg:        cfg,
		j:          j,
		cash:       cfg.InitialCash,
		positions:  make(map[string]*Position),
		lastMark:   make(map[string]float64),
		lastBarAt:  make(map[string]time.Time),
		sinceClose: make(map[string]int),
	}, nil
}

func (s *Simulator) RunID() string { return s.runID }
func (s *Simulator) Cash() float64 { return s.cash }

// Equity is cash plus every open position marked at its last close.
// Summation runs in sorted symbol order; float addition is not
// associative and replayed equity curves must match bit for bit.
func (s *Simulator) Equity() float64 {
	eq := s.cash
	for _, sym := range s.openSymbols() {
		eq += s.positions[sym].Quantity * s.lastMark[sym]
	}
	return eq
}

// openSymbols returns the open position symbols in sorted order.
func (s *Simulator) openSymbols() []string {
	syms := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// Curve returns the equity curve so far.
func (s *Simulator) Curve() []EquityPoint { return s.curve }

// Realized returns the P&L records appended so far, in close order.
func (s *Simulator) Realized() []journal.PnLRecord { return s.realized }

// OpenPosition returns a copy of the open position for symbol, if any.
func (s *Simulator) OpenPosition(symbol string) (Position, bool) {
	p, ok := s.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// MarkBar ingests one bar: advances cooldown clocks, evaluates the
// symbol's protective exits against the bar's intrabar range, and updates
// the mark. Stop-loss is checked first (worst case for the trader), then
// take-profit, then trailing max-drawdown.
func (s *Simulator) MarkBar(b market.Bar) error {
	// Duplicate or regressing bars never advance simulator state; the
	// feature engine drops them from its side independently.
	if last, seen := s.lastBarAt[b.Symbol]; seen && !b.Time.After(last) {
		return nil
	}
	s.lastBarAt[b.Symbol] = b.Time

	if _, tracked := s.sinceClose[b.Symbol]; tracked {
		s.sinceClose[b.Symbol]++
	}

	if p, open := s.positions[b.Symbol]; open {
		if px, reason, hit := s.checkExit(p, b); hit {
			if err := s.closePosition(p, px, b.Time, reason, false); err != nil {
				return err
			}
		}
	}

	s.lastMark[b.Symbol] = b.Close
	return nil
}

// checkExit resolves protective exits against the bar's high/low, never
// just the close; a low that pierces the stop fills at the stop price.
func (s *Simulator) checkExit(p *Position, b market.Bar) (price float64, reason string, hit bool) {
	if p.Side() > 0 {
		if s.cfg.StopLossPct > 0 {
			if stop := p.EntryPrice * (1 - s.cfg.StopLossPct); b.Low <= stop {
				return stop, "stop_loss", true
			}
		}
		if s.cfg.TakeProfitPct > 0 {
			if take := p.EntryPrice * (1 + s.cfg.TakeProfitPct); b.High >= take {
				return take, "take_profit", true
			}
		}
		if s.cfg.MaxDrawdownPct > 0 {
			if b.High > p.peak {
				p.peak = b.High
			}
			if level := p.peak * (1 - s.cfg.MaxDrawdownPct); b.Low <= level {
				return level, "max_drawdown", true
			}
		}
		return 0, "", false
	}

	if s.cfg.StopLossPct > 0 {
		if stop := p.EntryPrice * (1 + s.cfg.StopLossPct); b.High >= stop {
			return stop, "stop_loss", true
		}
	}
	if s.cfg.TakeProfitPct > 0 {
		if take := p.EntryPrice * (1 - s.cfg.TakeProfitPct); b.Low <= take {
			return take, "take_profit", true
		}
	}
	if s.cfg.MaxDrawdownPct > 0 {
		if b.Low < p.peak {
			p.peak = b.Low
		}
		if level := p.peak * (1 + s.cfg.MaxDrawdownPct); b.High >= level {
			return level, "max_drawdown", true
		}
	}
	return 0, "", false
}

// Snapshot produces the risk controller's view of the account.
func (s *Simulator) Snapshot() risk.Snapshot {
	snap := risk.Snapshot{
		Cash:       s.cash,
		Equity:     s.Equity(),
		Positions:  make(map[string]float64, len(s.positions)),
		SinceClose: make(map[string]int, len(s.sinceClose)),
	}
	// Sorted order keeps the exposure sum reproducible across replays.
	for _, sym := range s.openSymbols() {
		p := s.positions[sym]
		snap.Positions[sym] = p.Quantity
		snap.Exposure += abs(p.Quantity) * s.lastMark[sym]
	}
	for sym, n := range s.sinceClose {
		snap.SinceClose[sym] = n
	}
	return snap
}

// Apply executes one accepted risk decision at the symbol's current mark.
// Every call fully resolves: fill, documented no-op, or a fatal
// invariant violation. Nothing is left pending.
func (s *Simulator) Apply(d risk.Decision) error {
	if !d.Accepted {
		return &InvariantViolation{Symbol: d.Signal.Symbol, Time: d.Signal.Time,
			Rule: "rejected decision reached the simulator"}
	}
	sig := d.Signal
	mark, ok := s.lastMark[sig.Symbol]
	if !ok {
		return &InvariantViolation{Symbol: sig.Symbol, Time: sig.Time,
			Rule: "decision for a symbol with no observed bar"}
	}

	p, open := s.positions[sig.Symbol]

	if d.Exit {
		if !open {
			// The protective exits may have closed it earlier this tick;
			// the exit's work is already done.
			return nil
		}
		if p.Side() == sig.Direction() {
			return &InvariantViolation{Symbol: sig.Symbol, Time: sig.Time,
				Rule: "exit decision in the position's own direction"}
		}
		return s.closePosition(p, mark, sig.Time, "signal:"+sig.Strategy, true)
	}

	if open {
		if p.Side() != sig.Direction() {
			return &InvariantViolation{Symbol: sig.Symbol, Time: sig.Time,
				Rule: "entry decision against an open opposite position"}
		}
		if !s.cfg.AllowScaleIn {
			// Same-direction signal while OPEN is a documented no-op.
			logs.Infof("sim: %s already open, scale-in disabled, ignoring %s", sig.Symbol, sig.Strategy)
			return nil
		}
		return s.scaleIn(p, d.Quantity, mark, sig)
	}

	return s.openPosition(d.Quantity, mark, sig)
}

func (s *Simulator) openPosition(qty, mark float64, sig signal.Signal) error {
	dir := float64(sig.Direction())
	px := s.fillPrice(mark, dir > 0) // entries buy for longs, sell for shorts

	if dir > 0 {
		// Longs can never spend more cash than the account holds.
		if maxQty := s.cash / (px * (1 + s.feeRate())); qty > maxQty {
			qty = maxQty
		}
	}
	if qty <= 0 {
		logs.Warnf("sim: %s entry sized to zero, skipping", sig.Symbol)
		return nil
	}

	signedQty := qty * dir
	fee := s.feeRate() * qty * px
	cashDelta := -signedQty*px - fee
	s.cash += cashDelta

	s.positions[sig.Symbol] = &Position{
		Symbol:     sig.Symbol,
		Quantity:   signedQty,
		EntryPrice: px,
		OpenedAt:   sig.Time,
		entryFees:  fee,
		peak:       px,
	}

	return s.recordFill(sig.Symbol, sig.Time, sideFor(dir > 0), qty, px, cashDelta, "signal:"+sig.Strategy)
}

func (s *Simulator) scaleIn(p *Position, qty, mark float64, sig signal.Signal) error {
	dir := float64(sig.Direction())
	px := s.fillPrice(mark, dir > 0)

	if dir > 0 {
		if maxQty := s.cash / (px * (1 + s.feeRate())); qty > maxQty {
			qty = maxQty
		}
	}
	if qty <= 0 {
		return nil
	}

	signedQty := qty * dir
	fee := s.feeRate() * qty * px
	cashDelta := -signedQty*px - fee
	s.cash += cashDelta

	// Blend the entry so realized P&L stays a pure function of the
	// combined position.
	total := p.Quantity + signedQty
	p.EntryPrice = (p.EntryPrice*abs(p.Quantity) + px*qty) / abs(total)
	p.Quantity = total
	p.entryFees += fee

	return s.recordFill(sig.Symbol, sig.Time, sideFor(dir > 0), qty, px, cashDelta, "scale:"+sig.Strategy)
}

func (s *Simulator) closePosition(p *Position, rawPx float64, t time.Time, reason string, slip bool) error {
	px := rawPx
	if slip {
		px = s.fillPrice(rawPx, p.Side() < 0) // closing a short buys
	}

	exitFee := s.feeRate() * abs(p.Quantity) * px
	cashDelta := p.Quantity*px - exitFee
	s.cash += cashDelta

	pnl := p.Quantity*(px-p.EntryPrice) - p.entryFees - exitFee

	rec := journal.PnLRecord{
		RunID:      s.runID,
		Symbol:     p.Symbol,
		Time:       t,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		ExitPrice:  px,
		PnL:        pnl,
		Reason:     reason,
	}
	s.realized = append(s.realized, rec)

	delete(s.positions, p.Symbol)
	s.sinceClose[p.Symbol] = 0

	if err := s.recordFill(p.Symbol, t, sideFor(p.Quantity < 0), abs(p.Quantity), px, cashDelta, reason); err != nil {
		return err
	}
	return s.j.RecordPnL(rec)
}

// CloseAll force-closes every open position at its last mark, oldest
// symbol first for a reproducible fill order.
func (s *Simulator) CloseAll(t time.Time, reason string) error {
	for _, sym := range s.openSymbols() {
		p := s.positions[sym]
		if err := s.closePosition(p, s.lastMark[sym], t, reason, true); err != nil {
			return err
		}
	}
	return nil
}

// AppendEquity seals the tick with one equity-curve sample.
func (s *Simulator) AppendEquity(t time.Time) error {
	pt := EquityPoint{Time: t, Cash: s.cash, Equity: s.Equity()}
	s.curve = append(s.curve, pt)
	return s.j.RecordEquity(journal.EquitySnapshot{
		RunID: s.runID, Time: t, Cash: pt.Cash, Equity: pt.Equity,
	})
}

func (s *Simulator) recordFill(symbol string, t time.Time, side string, qty, px, cashDelta float64, reason string) error {
	s.fillSeq++
	return s.j.RecordFill(journal.FillRecord{
		// Sequence-derived IDs keep replayed runs byte-identical.
		FillID:    fmt.Sprintf("%s-%06d", s.runID, s.fillSeq),
		RunID:     s.runID,
		Symbol:    symbol,
		Time:      t,
		Side:      side,
		Quantity:  qty,
		Price:     px,
		CashDelta: cashDelta,
		Reason:    reason,
	})
}

// fillPrice applies slippage against the trader: buys fill above the
// mark, sells below it.
func (s *Simulator) fillPrice(mark float64, buying bool) float64 {
	slip := s.cfg.SlippageBps / 10000
	if buying {
		return mark * (1 + slip)
	}
	return mark * (1 - slip)
}

func (s *Simulator) feeRate() float64 { return s.cfg.FeeBps / 10000 }

func sideFor(buying bool) string {
	if buying {
		return "buy"
	}
	return "sell"
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
