package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantlab/breakout/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, time)
);

CREATE INDEX IF NOT EXISTS idx_bars_time ON bars(time);
`

// SQLiteStore keeps bars in a SQLite database. The (symbol, time)
// primary key plus INSERT OR IGNORE makes appends idempotent, so
// upstream connectors can redeliver freely.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(bars []market.Bar) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO bars (symbol, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			continue // data quality drop, caller sees the count gap
		}
		res, err := stmt.Exec(b.Symbol, b.Time.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

func (s *SQLiteStore) Query(symbols []string, start, end time.Time) ([]market.Bar, error) {
	q := `SELECT symbol, time, open, high, low, close, volume FROM bars`
	var args []any
	var where []string

	if len(symbols) > 0 {
		where = append(where, fmt.Sprintf("symbol IN (%s)",
			strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")))
		for _, sym := range symbols {
			args = append(args, sym)
		}
	}
	if !start.IsZero() {
		where = append(where, "time >= ?")
		args = append(args, start.UTC())
	}
	if !end.IsZero() {
		where = append(where, "time < ?")
		args = append(args, end.UTC())
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY time, symbol"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.Symbol, &b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Time = b.Time.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Symbols() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
