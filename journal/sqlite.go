package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores trades and equity in one database file. Records are keyed
// by trade id and (symbol, time), so recording the same run twice replaces
// rows instead of duplicating them.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO trades
		(trade_id, symbol, volume, entry_time, entry_price, exit_time, exit_price, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Volume, t.EntryTime.UTC(), t.EntryPrice,
		t.ExitTime.UTC(), t.ExitPrice, t.PnL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO equity
		(symbol, time, equity)
		VALUES (?, ?, ?)`,
		e.Symbol, e.Time.UTC(), e.Equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
