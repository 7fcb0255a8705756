// Package journal is the append-only sink for everything a run emits:
// feature values, signals, risk decisions, fills, realized P&L, and the
// equity curve. Every write is a pure append keyed by (run, symbol,
// timestamp, kind), so replays and at-least-once delivery are safe.
package journal

import "time"

// FeatureRecord is one defined feature value at one (symbol, timestamp).
type FeatureRecord struct {
	RunID  string
	Symbol string
	Time   time.Time
	Name   string
	Value  float64
}

// SignalRecord captures every emitted signal, holds included, for audit.
type SignalRecord struct {
	RunID     string
	Symbol    string
	Time      time.Time
	Strategy  string
	Source    string
	Type      string
	Strength  float64
	Rationale string
}

// RejectionRecord captures a risk rejection with its machine-readable
// reason. Rejected signals are never silently dropped.
type RejectionRecord struct {
	RunID    string
	Symbol   string
	Time     time.Time
	Strategy string
	Reason   string
	Detail   string
}

// FillRecord is one executed simulated trade.
type FillRecord struct {
	FillID    string
	RunID     string
	Symbol    string
	Time      time.Time
	Side      string // "buy" or "sell"
	Quantity  float64
	Price     float64
	CashDelta float64
	Reason    string
}

// PnLRecord is written once, when a position fully closes.
type PnLRecord struct {
	RunID      string
	Symbol     string
	Time       time.Time
	Quantity   float64 // signed size of the closed position
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string
}

// EquitySnapshot is one point of the equity curve, appended every tick.
type EquitySnapshot struct {
	RunID  string
	Time   time.Time
	Cash   float64
	Equity float64
}

// Journal receives the run's output records. Implementations must treat
// every call as an append; records are immutable once written.
type Journal interface {
	RecordFeature(FeatureRecord) error
	RecordSignal(SignalRecord) error
	RecordRejection(RejectionRecord) error
	RecordFill(FillRecord) error
	RecordPnL(PnLRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
