package journal

const Schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	mode TEXT NOT NULL,
	passed INTEGER NOT NULL,
	final_equity REAL NOT NULL,
	first_breach TEXT NOT NULL,
	document TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL REFERENCES backtest_runs(run_id) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	daily_loss_pct REAL NOT NULL,
	total_loss_pct REAL NOT NULL,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
