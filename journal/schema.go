package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	volume REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	exit_time DATETIME NOT NULL,
	exit_price REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);

CREATE TABLE IF NOT EXISTS equity (
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	PRIMARY KEY (symbol, time)
);
`
