// Package backtest drives the feature -> signal -> risk -> simulator
// cycle. The runner is the only clock a run has: it advances ticks in
// strictly increasing timestamp order across all symbols, so cross-symbol
// risk checks always see one consistent global time.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/quantlab/breakout/features"
	"github.com/quantlab/breakout/journal"
	"github.com/quantlab/breakout/market"
	"github.com/quantlab/breakout/risk"
	"github.com/quantlab/breakout/signal"
	"github.com/quantlab/breakout/sim"
)

// Options adjusts run behavior.
type Options struct {
	// CloseEnd closes all open positions on the final tick so the
	// account finalizes with terminal P&L records.
	CloseEnd    bool
	CloseReason string
}

// Runner wires one simulation run together. Each run owns its engine,
// registry, controller, simulator and journal outright; independent runs
// share nothing and can execute in parallel.
type Runner struct {
	Engine     *features.Engine
	Registry   *signal.Registry
	Controller *risk.Controller
	Sim        *sim.Simulator
	Journal    journal.Journal
	Options    Options
}

func (r *Runner) validate() error {
	if r.Engine == nil {
		return fmt.Errorf("backtest: Engine is required")
	}
	if r.Registry == nil || r.Registry.Len() == 0 {
		return fmt.Errorf("backtest: at least one strategy is required")
	}
	if r.Controller == nil {
		return fmt.Errorf("backtest: Controller is required")
	}
	if r.Sim == nil {
		return fmt.Errorf("backtest: Sim is required")
	}
	if r.Journal == nil {
		return fmt.Errorf("backtest: Journal is required")
	}
	return nil
}

// Run executes a deterministic backtest over bars, which must be sorted
// by (time, symbol) — market.Merge produces exactly that. Data-quality
// drops are local and logged; an invariant violation aborts the run.
func (r *Runner) Run(bars []market.Bar) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("backtest: no bars")
	}

	batches := batchByTime(bars)
	res := Result{RunID: r.Sim.RunID(), Start: batches[0].t, End: batches[len(batches)-1].t}

	for i, batch := range batches {
		last := i == len(batches)-1
		if err := r.Tick(batch.t, batch.bars, last); err != nil {
			return res, err
		}
		res.Ticks++
		res.Bars += len(batch.bars)
	}

	res.finish(r.Engine, r.Sim)
	return res, nil
}

// Tick runs one complete cycle at timestamp t over that timestamp's bars.
// The cycle either fully resolves or returns a fatal error; there is no
// partial tick to reconcile later.
func (r *Runner) Tick(t time.Time, bars []market.Bar, closeEnd bool) error {
	// 1. Protective exits and marks, before any new decision sees t.
	for _, b := range bars {
		if err := r.Sim.MarkBar(b); err != nil {
			return err
		}
	}

	// 2. Features and signals per bar.
	var directional []signal.Signal
	marks := make(map[string]float64, len(bars))
	for _, b := range bars {
		marks[b.Symbol] = b.Close

		vec, err := r.Engine.Observe(b)
		if err != nil {
			var rejected *features.ErrBarRejected
			if errors.As(err, &rejected) {
				continue // dropped bar, pipeline carries on
			}
			return err
		}
		if err := r.journalFeatures(vec); err != nil {
			return err
		}

		for _, sig := range r.Registry.Evaluate(vec) {
			if err := r.Journal.RecordSignal(journal.SignalRecord{
				RunID:     r.Sim.RunID(),
				Symbol:    sig.Symbol,
				Time:      sig.Time,
				Strategy:  sig.Strategy,
				Source:    string(sig.Source),
				Type:      string(sig.Type),
				Strength:  sig.Strength,
				Rationale: sig.Rationale,
			}); err != nil {
				return err
			}
			if sig.Directional() {
				directional = append(directional, sig)
			}
		}
	}

	// 3. Admission against one consistent account snapshot.
	decisions := r.Controller.AdmitBatch(directional, func(sym string) float64 {
		return marks[sym]
	}, r.Sim.Snapshot())

	// 4. Execution; rejections are journaled, never silently dropped.
	for _, d := range decisions {
		if !d.Accepted {
			if err := r.Journal.RecordRejection(journal.RejectionRecord{
				RunID:    r.Sim.RunID(),
				Symbol:   d.Signal.Symbol,
				Time:     d.Signal.Time,
				Strategy: d.Signal.Strategy,
				Reason:   string(d.Reason),
				Detail:   d.Detail,
			}); err != nil {
				return err
			}
			continue
		}
		if err := r.Sim.Apply(d); err != nil {
			return err
		}
	}

	if closeEnd && r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = "end_of_run"
		}
		if err := r.Sim.CloseAll(t, reason); err != nil {
			return err
		}
	}

	// 5. Seal the tick.
	return r.Sim.AppendEquity(t)
}

func (r *Runner) journalFeatures(vec features.Vector) error {
	for _, name := range vec.Names() {
		val, _ := vec.Get(name)
		err := r.Journal.RecordFeature(journal.FeatureRecord{
			RunID:  r.Sim.RunID(),
			Symbol: vec.Symbol,
			Time:   vec.Time,
			Name:   name,
			Value:  val,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type batch struct {
	t    time.Time
	bars []market.Bar
}

func batchByTime(bars []market.Bar) []batch {
	var out []batch
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].t.Equal(b.Time) {
			out[n-1].bars = append(out[n-1].bars, b)
			continue
		}
		out = append(out, batch{t: b.Time, bars: []market.Bar{b}})
	}
	return out
}
