package journal

const Schema = `
CREATE TABLE IF NOT EXISTS features (
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	name TEXT NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (run_id, symbol, time, name)
);

CREATE TABLE IF NOT EXISTS signals (
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	source TEXT NOT NULL,
	type TEXT NOT NULL,
	strength REAL NOT NULL,
	rationale TEXT NOT NULL,
	PRIMARY KEY (run_id, symbol, time, strategy)
);

CREATE TABLE IF NOT EXISTS rejections (
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	reason TEXT NOT NULL,
	detail TEXT NOT NULL,
	PRIMARY KEY (run_id, symbol, time, strategy)
);

CREATE TABLE IF NOT EXISTS fills (
	fill_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	cash_delta REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pnl (
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, symbol, time)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL,
	PRIMARY KEY (run_id, time)
);

CREATE INDEX IF NOT EXISTS idx_fills_run_time ON fills(run_id, time);
CREATE INDEX IF NOT EXISTS idx_signals_run_time ON signals(run_id, time);
`
