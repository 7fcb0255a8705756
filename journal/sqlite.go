package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal persists records to a SQLite database. All inserts are
// INSERT OR IGNORE over natural keys, so replaying a run (or redelivering
// a record) never duplicates rows.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordFeature(r FeatureRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO features (run_id, symbol, time, name, value)
		VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.Symbol, r.Time, r.Name, r.Value,
	)
	return err
}

func (j *SQLiteJournal) RecordSignal(r SignalRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO signals
		(run_id, symbol, time, strategy, source, type, strength, rationale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Symbol, r.Time, r.Strategy, r.Source, r.Type, r.Strength, r.Rationale,
	)
	return err
}

func (j *SQLiteJournal) RecordRejection(r RejectionRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO rejections
		(run_id, symbol, time, strategy, reason, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Symbol, r.Time, r.Strategy, r.Reason, r.Detail,
	)
	return err
}

func (j *SQLiteJournal) RecordFill(r FillRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO fills
		(fill_id, run_id, symbol, time, side, quantity, price, cash_delta, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FillID, r.RunID, r.Symbol, r.Time, r.Side, r.Quantity, r.Price, r.CashDelta, r.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordPnL(r PnLRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO pnl
		(run_id, symbol, time, quantity, entry_price, exit_price, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Symbol, r.Time, r.Quantity, r.EntryPrice, r.ExitPrice, r.PnL, r.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(r EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO equity (run_id, time, cash, equity)
		VALUES (?, ?, ?, ?)`,
		r.RunID, r.Time, r.Cash, r.Equity,
	)
	return err
}

// ListPnL returns the run's realized P&L records in time order.
func (j *SQLiteJournal) ListPnL(runID string) ([]PnLRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, symbol, time, quantity, entry_price, exit_price, pnl, reason
		FROM pnl WHERE run_id = ? ORDER BY time, symbol`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PnLRecord
	for rows.Next() {
		var r PnLRecord
		if err := rows.Scan(&r.RunID, &r.Symbol, &r.Time, &r.Quantity,
			&r.EntryPrice, &r.ExitPrice, &r.PnL, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListEquity returns the run's equity curve in time order.
func (j *SQLiteJournal) ListEquity(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, cash, equity
		FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var r EquitySnapshot
		if err := rows.Scan(&r.RunID, &r.Time, &r.Cash, &r.Equity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRejections returns the run's risk rejections in time order.
func (j *SQLiteJournal) ListRejections(runID string) ([]RejectionRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, symbol, time, strategy, reason, detail
		FROM rejections WHERE run_id = ? ORDER BY time, symbol, strategy`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RejectionRecord
	for rows.Next() {
		var r RejectionRecord
		if err := rows.Scan(&r.RunID, &r.Symbol, &r.Time, &r.Strategy, &r.Reason, &r.Detail); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListFillsBetween returns fills in [start, end) for a run.
func (j *SQLiteJournal) ListFillsBetween(runID string, start, end time.Time) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, run_id, symbol, time, side, quantity, price, cash_delta, reason
		FROM fills WHERE run_id = ? AND time >= ? AND time < ?
		ORDER BY time, symbol`, runID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var r FillRecord
		if err := rows.Scan(&r.FillID, &r.RunID, &r.Symbol, &r.Time, &r.Side,
			&r.Quantity, &r.Price, &r.CashDelta, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
