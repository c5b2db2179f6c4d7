package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/ftilbury/aibot/sim"
)

// ErrTradeNotFound is returned by lookups for an unknown trade id.
var ErrTradeNotFound = errors.New("trade not found")

// TradeRecord is one closed trade as stored by a journal.
type TradeRecord struct {
	TradeID    string    `json:"trade_id"`
	Symbol     string    `json:"symbol"`
	Volume     float64   `json:"volume"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	Reason     string    `json:"reason,omitempty"`
}

// EquityPoint is one point of a symbol's realized equity curve.
type EquityPoint struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityPoint) error
	Close() error
}

// FromTrade converts a closed simulator trade.
func FromTrade(t sim.Trade) TradeRecord {
	return TradeRecord{
		TradeID:    t.ID,
		Symbol:     t.Symbol,
		Volume:     t.Volume,
		EntryTime:  t.EntryTime,
		EntryPrice: t.EntryPrice,
		ExitTime:   t.ExitTime,
		ExitPrice:  t.ExitPrice,
		PnL:        t.PnL(),
		Reason:     string(t.Reason),
	}
}

// RecordResult writes every trade and then every equity point of res.
func RecordResult(j Journal, res sim.Result) error {
	for _, t := range res.Trades {
		if t.Open {
			continue
		}
		if err := j.RecordTrade(FromTrade(t)); err != nil {
			return fmt.Errorf("record trade %s: %w", t.ID, err)
		}
	}
	for _, p := range res.Equity {
		ep := EquityPoint{Symbol: res.Symbol, Time: p.Time, Equity: p.Equity}
		if err := j.RecordEquity(ep); err != nil {
			return fmt.Errorf("record equity %s: %w", p.Time.Format(time.RFC3339), err)
		}
	}
	return nil
}

// Multi fans every record out to all journals and stops at the first error.
type Multi []Journal

func (m Multi) RecordTrade(t TradeRecord) error {
	for _, j := range m {
		if err := j.RecordTrade(t); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) RecordEquity(e EquityPoint) error {
	for _, j := range m {
		if err := j.RecordEquity(e); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
