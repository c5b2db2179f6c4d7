package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, symbol, volume, entry_time, entry_price, exit_time, exit_price, pnl, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Volume,
		&rec.EntryTime,
		&rec.EntryPrice,
		&rec.ExitTime,
		&rec.ExitPrice,
		&rec.PnL,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrTradeNotFound)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

// ListTrades returns every trade of symbol ordered by entry time.
func (j *SQLite) ListTrades(ctx context.Context, symbol string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE symbol = ?
		ORDER BY entry_time ASC, trade_id ASC`, symbol)
	if err != nil {
		return nil, err
	}
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the equity curve of symbol within [start, end). A zero
// end means no upper bound.
func (j *SQLite) ListEquity(ctx context.Context, symbol string, start, end time.Time) ([]EquityPoint, error) {
	q := `
		SELECT symbol, time, equity
		FROM equity
		WHERE symbol = ? AND time >= ?`
	args := []any{symbol, start.UTC()}
	if !end.IsZero() {
		q += ` AND time < ?`
		args = append(args, end.UTC())
	}
	q += ` ORDER BY time ASC`

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.Symbol, &p.Time, &p.Equity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates the trades closed within [start, end).
type Summary struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	NetPnL       float64 `json:"net_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor"`
}

func (j *SQLite) Summarize(ctx context.Context, start, end time.Time) (Summary, error) {
	trades, err := j.ListTradesClosedBetween(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(trades), nil
}

// Summarize aggregates trades in memory.
func Summarize(trades []TradeRecord) Summary {
	var s Summary
	for _, t := range trades {
		s.Trades++
		s.NetPnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
			s.GrossProfit += t.PnL
		} else {
			s.Losses++
			s.GrossLoss -= t.PnL
		}
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}
