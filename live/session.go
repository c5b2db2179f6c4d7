package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ftilbury/aibot/alert"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/journal"
	"github.com/ftilbury/aibot/market"
	"github.com/ftilbury/aibot/risk"
	"github.com/ftilbury/aibot/sim"
	"go.uber.org/zap"
)

// Update is the state of one symbol after a bar was applied.
type Update struct {
	Symbol   string
	Bars     int
	Capital  float64
	Decision risk.Decision
	Halted   bool
	// Position is the open trade, if any.
	Position *sim.Trade
	// Closed holds trades closed by this bar.
	Closed []sim.Trade
}

// symbolState is guarded by its own lock; the risk engine is not safe for
// concurrent use.
type symbolState struct {
	mu     sync.Mutex
	sim    sim.Config
	series market.Series
	risk   *risk.Engine
	halted bool

	booked  float64     // realized PnL of trimmed history
	prev    []sim.Trade // ledger of the last run
	lastOut time.Time   // exit time of the last reported trade
	lastIn  time.Time   // entry time of the last reported open
}

// trim drops the oldest bars beyond limit and books the PnL of trades closed
// in the dropped part. It only cuts where the position is flat and no long
// signal is still waiting out its latency, so the kept window replays
// exactly as before. Otherwise the cut is retried on a later bar.
func (st *symbolState) trim(limit int) {
	n := st.series.Len()
	if limit <= 0 || n <= limit {
		return
	}
	drop := n - limit
	cut := st.series.Bars[drop].Time

	for i := max(0, drop-st.sim.Latency); i < drop; i++ {
		if st.series.Signals[i] == market.Long {
			return
		}
	}

	var booked float64
	for _, t := range st.prev {
		if t.EntryTime.After(cut) {
			continue
		}
		if t.Reason == sim.ExitEndOfData || t.ExitTime.After(cut) {
			return
		}
		booked += t.PnL()
	}

	st.booked += booked
	st.series.Bars = st.series.Bars[drop:]
	st.series.Signals = st.series.Signals[drop:]
}

// Manager keeps one incremental session per symbol.
type Manager struct {
	cfg      *config.Config
	notifier alert.Notifier
	journal  journal.Journal
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	symbols map[string]*symbolState
}

// NewManager builds a manager; j and n may be nil.
func NewManager(cfg *config.Config, j journal.Journal, n alert.Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		notifier: n,
		journal:  j,
		log:      log.Named("live"),
		now:      time.Now,
		symbols:  make(map[string]*symbolState),
	}
}

func (m *Manager) SetClock(now func() time.Time) { m.now = now }

func (m *Manager) state(symbol string) *symbolState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.symbols[symbol]
	if !ok {
		// history is replayed on every bar, so delayed signals must not wrap
		sc := m.cfg.SimConfig(symbol)
		sc.LatencyMode = sim.LatencyZero

		st = &symbolState{
			sim:    sc,
			series: market.Series{Symbol: symbol},
			risk:   risk.NewEngine(m.cfg.RiskLimits(), m.now()),
		}
		st.risk.SetClock(m.now)
		m.symbols[symbol] = st
	}
	return st
}

// Symbols returns the symbols seen so far.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.symbols))
	for s := range m.symbols {
		out = append(out, s)
	}
	return out
}

// Handle appends msg to its symbol, re-simulates the whole history and checks
// the risk limits on the new capital. Once halted, incoming signals are
// stored as flat so no new position is opened.
func (m *Manager) Handle(ctx context.Context, msg BarMessage) (Update, error) {
	st := m.state(msg.Symbol)

	st.mu.Lock()
	defer st.mu.Unlock()

	if n := st.series.Len(); n > 0 && !msg.Time.After(st.series.Bars[n-1].Time) {
		return Update{}, fmt.Errorf("bar %s at %s: %w: not after %s", msg.Symbol,
			msg.Time.Format(time.RFC3339), market.ErrBadRow, st.series.Bars[n-1].Time.Format(time.RFC3339))
	}

	signal := market.SignalFromFloat(msg.Signal)
	if st.halted {
		signal = market.Flat
	}
	st.series.Bars = append(st.series.Bars, msg.Bar())
	st.series.Signals = append(st.series.Signals, signal)
	st.trim(m.cfg.Live.MaxBars)

	sc := st.sim
	sc.InitialCapital += st.booked
	eng := sim.NewEngine(sc, m.log)
	res, err := eng.Run(st.series.Bars, st.series.Signals)
	if err != nil {
		return Update{}, err
	}
	st.prev = res.Trades

	u := Update{
		Symbol:  msg.Symbol,
		Bars:    st.series.Len(),
		Capital: eng.Capital(),
	}
	log := m.log.With(zap.String("symbol", msg.Symbol))

	for _, t := range res.Trades {
		if t.Reason == sim.ExitEndOfData {
			// still open in live terms
			if t.EntryTime.After(st.lastIn) {
				st.lastIn = t.EntryTime
				open := t
				open.Open = true
				open.ExitTime, open.ExitPrice, open.Reason = time.Time{}, 0, ""
				u.Position = &open
				alert.Safe(ctx, m.notifier, log, alert.OpenMessage(open))
			} else {
				open := t
				u.Position = &open
			}
			// its forced close is not realized yet
			u.Capital -= t.PnL()
			continue
		}
		if t.ExitTime.After(st.lastOut) {
			st.lastOut = t.ExitTime
			u.Closed = append(u.Closed, t)
		}
	}

	u.Decision = st.risk.Evaluate(u.Capital, m.now())
	if !u.Decision.Allowed && !st.halted {
		log.Warn("risk limits exceeded", zap.String("reason", u.Decision.Reason()))
		alert.Safe(ctx, m.notifier, log, alert.HaltMessage(msg.Symbol))
	}
	st.halted = st.halted || !u.Decision.Allowed
	u.Halted = st.halted

	for _, t := range u.Closed {
		alert.Safe(ctx, m.notifier, log, alert.TradeMessage(t))
		if m.journal != nil {
			if err := m.journal.RecordTrade(journal.FromTrade(t)); err != nil {
				log.Error("journal write failed", zap.String("trade_id", t.ID), zap.Error(err))
			}
		}
	}
	if m.journal != nil {
		ep := journal.EquityPoint{Symbol: msg.Symbol, Time: msg.Time, Equity: u.Capital}
		if err := m.journal.RecordEquity(ep); err != nil {
			log.Error("journal write failed", zap.Error(err))
		}
	}

	return u, nil
}

// Resume lifts a halt for symbol, e.g. after an operator review.
func (m *Manager) Resume(symbol string) {
	st := m.state(symbol)
	st.mu.Lock()
	st.halted = false
	st.mu.Unlock()
}
