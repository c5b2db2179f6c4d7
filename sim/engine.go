package sim

import (
	"fmt"
	"time"

	"github.com/ftilbury/aibot/internal/id"
	"github.com/ftilbury/aibot/market"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned by Run when bars and signals differ in length.
var ErrInvalidInput = market.ErrInvalidInput

// DefaultSymbol is used for trades when Config.Symbol is empty.
const DefaultSymbol = "FX"

// Config parameterizes one simulator. Slippage is a price offset applied
// against the trader on both legs; Latency is in whole bars.
type Config struct {
	Symbol         string
	Slippage       float64
	Latency        int
	LatencyMode    LatencyMode
	InitialCapital float64
}

// EquityPoint is realized equity after a bar was processed.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Result is the output of one Run.
type Result struct {
	Symbol      string
	Trades      []Trade
	Equity      []EquityPoint
	FinalEquity float64
}

// Engine converts a signal array into fills and a realized equity curve.
// An Engine is not safe for concurrent use; run one per symbol.
type Engine struct {
	cfg     Config
	log     *zap.Logger
	trades  []Trade
	capital float64
}

func NewEngine(cfg Config, log *zap.Logger) *Engine {
	if cfg.Symbol == "" {
		cfg.Symbol = DefaultSymbol
	}
	if cfg.LatencyMode == "" {
		cfg.LatencyMode = LatencyWrap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		log:     log.With(zap.String("symbol", cfg.Symbol)),
		capital: cfg.InitialCapital,
	}
}

func (e *Engine) Config() Config { return e.cfg }

// Capital is the realized equity at the end of the last Run.
func (e *Engine) Capital() float64 { return e.capital }

// Trades returns a copy of the ledger from the last Run.
func (e *Engine) Trades() []Trade {
	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// Run simulates bars against signals. Every call starts from the configured
// initial capital with an empty ledger, so identical inputs give identical
// results. Inputs are not modified.
//
// Bar i acts on the delayed signal for i and fills at bar i+1's close:
// entries pay +Slippage, exits receive -Slippage. A position still open after
// the last bar is closed at the final close and adds one more equity point.
func (e *Engine) Run(bars []market.Bar, signals []int) (Result, error) {
	if err := market.CheckLengths(len(bars), len(signals)); err != nil {
		return Result{}, fmt.Errorf("run %s: %w", e.cfg.Symbol, err)
	}

	e.trades = e.trades[:0]
	equity := e.cfg.InitialCapital
	delayed := Delay(signals, e.cfg.Latency, e.cfg.LatencyMode)

	n := len(bars)
	curve := make([]EquityPoint, 0, n)

	var current *Trade
	for i := 0; i < n-1; i++ {
		next := bars[i+1]

		switch {
		case delayed[i] == market.Long && current == nil:
			current = e.open(next)

		case delayed[i] == market.Flat && current != nil:
			equity += e.close(current, next.Time, next.Close, ExitSignal)
			current = nil
		}

		curve = append(curve, EquityPoint{Time: bars[i].Time, Equity: equity})
	}

	if current != nil {
		last := bars[n-1]
		equity += e.close(current, last.Time, last.Close, ExitEndOfData)
		curve = append(curve, EquityPoint{Time: last.Time, Equity: equity})
	}

	e.capital = equity

	return Result{
		Symbol:      e.cfg.Symbol,
		Trades:      e.Trades(),
		Equity:      curve,
		FinalEquity: equity,
	}, nil
}

func (e *Engine) open(fill market.Bar) *Trade {
	t := &Trade{
		ID:         id.ForTrade(e.cfg.Symbol, fill.Time, len(e.trades)),
		Symbol:     e.cfg.Symbol,
		Volume:     UnitVolume,
		EntryTime:  fill.Time,
		EntryPrice: fill.Close + e.cfg.Slippage,
		Open:       true,
	}
	e.log.Debug("open long",
		zap.String("trade_id", t.ID),
		zap.Time("time", t.EntryTime),
		zap.Float64("price", t.EntryPrice),
	)
	return t
}

// close realizes t and appends it to the ledger, returning its PnL.
func (e *Engine) close(t *Trade, at time.Time, price float64, reason ExitReason) float64 {
	// t is only ever the engine's own open trade, so close cannot fail here.
	_ = t.close(at, price-e.cfg.Slippage, reason)
	e.trades = append(e.trades, *t)

	pnl := t.PnL()
	e.log.Debug("close long",
		zap.String("trade_id", t.ID),
		zap.Time("time", t.ExitTime),
		zap.Float64("price", t.ExitPrice),
		zap.Float64("pnl", pnl),
		zap.String("reason", string(reason)),
	)
	return pnl
}
