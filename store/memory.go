package store

import (
	"sort"
	"time"

	"github.com/quantlab/breakout/market"
)

// MemoryStore is the in-process BarStore used by tests and small
// backtests that load straight from CSV.
type MemoryStore struct {
	bars map[string]map[int64]market.Bar // symbol -> unix -> bar
}

func NewMemory() *MemoryStore {
	return &MemoryStore{bars: make(map[string]map[int64]market.Bar)}
}

func (m *MemoryStore) Append(bars []market.Bar) (int, error) {
	inserted := 0
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			continue
		}
		bySym, ok := m.bars[b.Symbol]
		if !ok {
			bySym = make(map[int64]market.Bar)
			m.bars[b.Symbol] = bySym
		}
		key := b.Time.UTC().Unix()
		if _, dup := bySym[key]; dup {
			continue
		}
		bySym[key] = b
		inserted++
	}
	return inserted, nil
}

func (m *MemoryStore) Query(symbols []string, start, end time.Time) ([]market.Bar, error) {
	want := map[string]bool{}
	for _, s := range symbols {
		want[s] = true
	}

	var out []market.Bar
	for sym, bySym := range m.bars {
		if len(want) > 0 && !want[sym] {
			continue
		}
		for _, b := range bySym {
			if !start.IsZero() && b.Time.Before(start) {
				continue
			}
			if !end.IsZero() && !b.Time.Before(end) {
				continue
			}
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func (m *MemoryStore) Symbols() ([]string, error) {
	var out []string
	for sym := range m.bars {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
