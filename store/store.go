// Package store is the bar-store boundary: an append-only,
// (symbol, timestamp)-keyed OHLCV store the pipeline reads history from.
// Ingestion connectors live outside this module and only ever append.
package store

import (
	"time"

	"github.com/quantlab/breakout/market"
)

// BarStore reads and appends OHLCV bars. Appends are idempotent on
// (symbol, timestamp); queries return bars in (time, symbol) order.
type BarStore interface {
	Append(bars []market.Bar) (inserted int, err error)
	Query(symbols []string, start, end time.Time) ([]market.Bar, error)
	Symbols() ([]string, error)
	Close() error
}
