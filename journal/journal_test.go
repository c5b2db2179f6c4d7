package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/ftilbury/aibot/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJournal struct {
	trades []TradeRecord
	equity []EquityPoint
	err    error
	closed bool
}

func (m *memJournal) RecordTrade(t TradeRecord) error {
	if m.err != nil {
		return m.err
	}
	m.trades = append(m.trades, t)
	return nil
}

func (m *memJournal) RecordEquity(e EquityPoint) error {
	if m.err != nil {
		return m.err
	}
	m.equity = append(m.equity, e)
	return nil
}

func (m *memJournal) Close() error {
	m.closed = true
	return m.err
}

func TestFromTrade(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := FromTrade(sim.Trade{
		ID: "X", Symbol: "AUDUSD", Volume: 1,
		EntryTime: at, EntryPrice: 0.65,
		ExitTime: at.Add(time.Hour), ExitPrice: 0.66,
		Reason: sim.ExitEndOfData,
	})
	assert.Equal(t, "X", rec.TradeID)
	assert.Equal(t, "end_of_data", rec.Reason)
	assert.InDelta(t, 0.01, rec.PnL, 1e-12)
}

func TestRecordResult(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := sim.Result{
		Symbol: "EURUSD",
		Trades: []sim.Trade{
			{ID: "a", Symbol: "EURUSD", Volume: 1, EntryPrice: 1, ExitPrice: 2},
			{ID: "open", Symbol: "EURUSD", Volume: 1, Open: true},
		},
		Equity: []sim.EquityPoint{{Time: at, Equity: 10}, {Time: at.Add(time.Hour), Equity: 11}},
	}

	m := &memJournal{}
	require.NoError(t, RecordResult(m, res))
	require.Len(t, m.trades, 1)
	assert.Equal(t, "a", m.trades[0].TradeID)
	require.Len(t, m.equity, 2)
	assert.Equal(t, "EURUSD", m.equity[1].Symbol)

	failing := &memJournal{err: errors.New("disk full")}
	err := RecordResult(failing, res)
	assert.ErrorContains(t, err, "record trade a: disk full")
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a, b := &memJournal{}, &memJournal{}
	m := Multi{a, b}

	require.NoError(t, m.RecordTrade(TradeRecord{TradeID: "1"}))
	require.NoError(t, m.RecordEquity(EquityPoint{Equity: 1}))
	assert.Len(t, a.trades, 1)
	assert.Len(t, b.equity, 1)

	bad := &memJournal{err: errors.New("boom")}
	c := &memJournal{}
	err := Multi{bad, c}.Close()
	assert.ErrorContains(t, err, "boom")
	assert.True(t, c.closed)
}
