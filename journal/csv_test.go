package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournalWritesRows(t *testing.T) {
	dir := t.TempDir()
	fills := filepath.Join(dir, "fills.csv")
	pnl := filepath.Join(dir, "pnl.csv")
	equity := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fills, pnl, equity)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordFill(FillRecord{
		FillID: "run-1-000001", RunID: "run-1", Symbol: "BTC-USD", Time: at,
		Side: "buy", Quantity: 10, Price: 100.5, CashDelta: -1005, Reason: "signal:rule",
	}))
	require.NoError(t, j.RecordPnL(PnLRecord{
		RunID: "run-1", Symbol: "BTC-USD", Time: at.Add(time.Minute),
		Quantity: 10, EntryPrice: 100.5, ExitPrice: 102, PnL: 15, Reason: "take_profit",
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID: "run-1", Time: at, Cash: 98995, Equity: 100000,
	}))

	// Audit streams are SQLite-only; the CSV journal ignores them.
	require.NoError(t, j.RecordFeature(FeatureRecord{}))
	require.NoError(t, j.RecordSignal(SignalRecord{}))
	require.NoError(t, j.Close())

	rows := readCSV(t, fills)
	require.Len(t, rows, 2, "header plus one fill")
	assert.Equal(t, "fill_id", rows[0][0])
	assert.Equal(t, []string{
		"run-1-000001", "run-1", "BTC-USD", "2024-03-01T12:00:00Z",
		"buy", "10", "100.5", "-1005", "signal:rule",
	}, rows[1])

	rows = readCSV(t, pnl)
	require.Len(t, rows, 2)
	assert.Equal(t, "15", rows[1][6])

	rows = readCSV(t, equity)
	require.Len(t, rows, 2)
	assert.Equal(t, "100000", rows[1][3])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}
