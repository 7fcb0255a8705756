package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal writes fills, P&L and equity to flat CSV files. Feature,
// signal and rejection records are high-volume audit data and stay on
// the SQLite journal; CSV is for eyeballing a run in a spreadsheet.
type CSVJournal struct {
	fills  *csv.Writer
	pnl    *csv.Writer
	equity *csv.Writer
	files  []*os.File
}

func NewCSV(fillsPath, pnlPath, equityPath string) (*CSVJournal, error) {
	j := &CSVJournal{}

	open := func(path string, header []string) (*csv.Writer, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.fills, err = open(fillsPath, []string{
		"fill_id", "run_id", "symbol", "time", "side", "quantity", "price", "cash_delta", "reason",
	}); err != nil {
		j.Close()
		return nil, err
	}
	if j.pnl, err = open(pnlPath, []string{
		"run_id", "symbol", "time", "quantity", "entry_price", "exit_price", "pnl", "reason",
	}); err != nil {
		j.Close()
		return nil, err
	}
	if j.equity, err = open(equityPath, []string{
		"run_id", "time", "cash", "equity",
	}); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordFeature(FeatureRecord) error     { return nil }
func (j *CSVJournal) RecordSignal(SignalRecord) error       { return nil }
func (j *CSVJournal) RecordRejection(RejectionRecord) error { return nil }

func (j *CSVJournal) RecordFill(r FillRecord) error {
	err := j.fills.Write([]string{
		r.FillID, r.RunID, r.Symbol, r.Time.Format(time.RFC3339),
		r.Side, f(r.Quantity), f(r.Price), f(r.CashDelta), r.Reason,
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordPnL(r PnLRecord) error {
	err := j.pnl.Write([]string{
		r.RunID, r.Symbol, r.Time.Format(time.RFC3339),
		f(r.Quantity), f(r.EntryPrice), f(r.ExitPrice), f(r.PnL), r.Reason,
	})
	if err != nil {
		return err
	}
	j.pnl.Flush()
	return j.pnl.Error()
}

func (j *CSVJournal) RecordEquity(r EquitySnapshot) error {
	err := j.equity.Write([]string{
		r.RunID, r.Time.Format(time.RFC3339), f(r.Cash), f(r.Equity),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	var firstErr error
	for _, f := range j.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
