package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ftilbury/aibot/alert"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/journal"
	"github.com/ftilbury/aibot/market"
	"github.com/ftilbury/aibot/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(_ context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

type memJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquityPoint
}

func (m *memJournal) RecordTrade(t journal.TradeRecord) error {
	m.trades = append(m.trades, t)
	return nil
}

func (m *memJournal) RecordEquity(e journal.EquityPoint) error {
	m.equity = append(m.equity, e)
	return nil
}

func (m *memJournal) Close() error { return nil }

func testConfig(capital float64) *config.Config {
	cfg := config.Default()
	cfg.Account.InitialCapital = capital
	cfg.Execution.Slippage = 0
	cfg.Execution.Latency = 1
	cfg.Live.MaxBars = 0
	return cfg
}

func feed(t *testing.T, m *Manager, symbol string, closes []float64, signals []float64) []Update {
	t.Helper()
	out := make([]Update, len(closes))
	for i := range closes {
		u, err := m.Handle(context.Background(), BarMessage{
			Symbol: symbol,
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Close:  closes[i],
			Signal: signals[i],
		})
		require.NoError(t, err, "bar %d", i)
		out[i] = u
	}
	return out
}

func newManager(cfg *config.Config, j journal.Journal, n alert.Notifier) *Manager {
	m := NewManager(cfg, j, n, nil)
	m.SetClock(func() time.Time { return t0.Add(12 * time.Hour) })
	return m
}

func TestHandleOpensAndCloses(t *testing.T) {
	t.Parallel()

	n := &recorder{}
	j := &memJournal{}
	m := newManager(testConfig(100_000), j, n)

	ups := feed(t, m, "EURUSD",
		[]float64{100, 101, 102, 104, 105, 106},
		[]float64{1, 1, 0, 0, 0, 0})

	assert.Nil(t, ups[1].Position)

	require.NotNil(t, ups[2].Position)
	assert.True(t, ups[2].Position.Open)
	assert.Equal(t, 102.0, ups[2].Position.EntryPrice)
	assert.Equal(t, 100_000.0, ups[2].Capital)

	// unrealized gain is not counted
	require.NotNil(t, ups[3].Position)
	assert.Equal(t, 100_000.0, ups[3].Capital)

	require.Len(t, ups[4].Closed, 1)
	assert.Equal(t, sim.ExitSignal, ups[4].Closed[0].Reason)
	assert.InDelta(t, 3.0, ups[4].Closed[0].PnL(), 1e-12)
	assert.InDelta(t, 100_003.0, ups[4].Capital, 1e-9)
	assert.Nil(t, ups[4].Position)

	assert.Empty(t, ups[5].Closed)
	assert.False(t, ups[5].Halted)

	require.Len(t, n.msgs, 2)
	assert.Contains(t, n.msgs[0], "EURUSD trade: enter at 102.00000")
	assert.Contains(t, n.msgs[1], "PnL: 3.00")

	require.Len(t, j.trades, 1)
	assert.Len(t, j.equity, 6)
	assert.InDelta(t, 100_003.0, j.equity[5].Equity, 1e-9)
}

func TestHandleHaltForcesFlat(t *testing.T) {
	t.Parallel()

	n := &recorder{}
	m := newManager(testConfig(100), nil, n)

	ups := feed(t, m, "GBPUSD",
		[]float64{50, 50, 50, 45, 45, 46, 47},
		[]float64{1, 1, 0, 0, 0, 1, 1})

	// the open loss at bar 3 is not realized yet
	assert.False(t, ups[3].Halted)

	assert.True(t, ups[4].Halted)
	assert.False(t, ups[4].Decision.Allowed)
	assert.InDelta(t, 95.0, ups[4].Capital, 1e-9)

	for _, u := range ups[5:] {
		assert.True(t, u.Halted)
		assert.Nil(t, u.Position)
		assert.Empty(t, u.Closed)
	}

	require.Len(t, n.msgs, 3)
	assert.Equal(t, "Risk limits exceeded on GBPUSD; trading halted.", n.msgs[1])
	assert.Contains(t, n.msgs[2], "PnL: -5.00")

	m.Resume("GBPUSD")
	u, err := m.Handle(context.Background(), BarMessage{Symbol: "GBPUSD", Time: t0.Add(7 * time.Hour), Close: 48, Signal: 1})
	require.NoError(t, err)
	// still beyond the daily limit, so it halts again
	assert.True(t, u.Halted)
	assert.Len(t, n.msgs, 4)
}

func TestHandleRejectsOldBars(t *testing.T) {
	t.Parallel()

	m := newManager(testConfig(100_000), nil, nil)
	feed(t, m, "X", []float64{1, 2}, []float64{0, 0})

	_, err := m.Handle(context.Background(), BarMessage{Symbol: "X", Time: t0, Close: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrBadRow)
}

func TestHandleMaxBars(t *testing.T) {
	t.Parallel()

	cfg := testConfig(100_000)
	cfg.Live.MaxBars = 3
	m := newManager(cfg, nil, nil)

	ups := feed(t, m, "X", []float64{1, 2, 3, 4, 5}, []float64{0, 0, 0, 0, 0})
	assert.Equal(t, 3, ups[4].Bars)
}

func TestHandleTrimKeepsRealizedPnL(t *testing.T) {
	t.Parallel()

	cfg := testConfig(100_000)
	cfg.Live.MaxBars = 4
	m := newManager(cfg, nil, nil)

	ups := feed(t, m, "X",
		[]float64{100, 100, 101, 103, 103, 103, 103, 103},
		[]float64{1, 0, 0, 0, 0, 0, 0, 0})

	// the cut waits while the trade is open or its signal is pending
	assert.Equal(t, 5, ups[4].Bars)
	assert.Equal(t, 6, ups[5].Bars)
	assert.Equal(t, 4, ups[6].Bars)
	assert.Equal(t, 4, ups[7].Bars)

	for _, u := range ups[3:] {
		assert.InDelta(t, 100_002.0, u.Capital, 1e-9)
	}
}

func TestHandleSymbolsIndependent(t *testing.T) {
	t.Parallel()

	m := newManager(testConfig(100), nil, nil)
	feed(t, m, "A", []float64{50, 50, 50, 45, 45}, []float64{1, 1, 0, 0, 0})
	ups := feed(t, m, "B", []float64{1, 2}, []float64{1, 1})

	assert.False(t, ups[1].Halted)
	assert.ElementsMatch(t, []string{"A", "B"}, m.Symbols())
}

func TestDecodeBar(t *testing.T) {
	t.Parallel()

	m, err := DecodeBar([]byte(`{"symbol":"eurusd","time":"2024-06-03T08:00:00Z","close":1.0812,"signal":1}`))
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", m.Symbol)
	assert.Equal(t, 1.0812, m.Close)
	assert.True(t, m.Time.Equal(t0))

	bad := []string{
		`not json`,
		`{"time":"2024-06-03T08:00:00Z","close":1}`,
		`{"symbol":"X","close":1}`,
		`{"symbol":"X","time":"2024-06-03T08:00:00Z","close":0}`,
	}
	for _, b := range bad {
		_, err := DecodeBar([]byte(b))
		assert.Error(t, err, b)
	}
}
