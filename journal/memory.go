package journal

// Memory keeps every record in slices, in append order. It backs tests
// and replay-determinism comparisons, where two runs' journals are
// compared record for record.
type Memory struct {
	Features   []FeatureRecord
	Signals    []SignalRecord
	Rejections []RejectionRecord
	Fills      []FillRecord
	PnL        []PnLRecord
	Equity     []EquitySnapshot
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) RecordFeature(r FeatureRecord) error {
	m.Features = append(m.Features, r)
	return nil
}

func (m *Memory) RecordSignal(r SignalRecord) error {
	m.Signals = append(m.Signals, r)
	return nil
}

func (m *Memory) RecordRejection(r RejectionRecord) error {
	m.Rejections = append(m.Rejections, r)
	return nil
}

func (m *Memory) RecordFill(r FillRecord) error {
	m.Fills = append(m.Fills, r)
	return nil
}

func (m *Memory) RecordPnL(r PnLRecord) error {
	m.PnL = append(m.PnL, r)
	return nil
}

func (m *Memory) RecordEquity(r EquitySnapshot) error {
	m.Equity = append(m.Equity, r)
	return nil
}

func (m *Memory) Close() error { return nil }
