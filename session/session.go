// Package session runs the per-symbol pipeline: simulate the signals, check
// the risk limits on the resulting capital, alert and journal the outcome.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ftilbury/aibot/alert"
	"github.com/ftilbury/aibot/backtest"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/journal"
	"github.com/ftilbury/aibot/market"
	"github.com/ftilbury/aibot/risk"
	"github.com/ftilbury/aibot/sim"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader returns the bars and signals of one symbol.
type Loader func(symbol string) (market.Series, error)

// Report is the outcome of one symbol. Err is set when the symbol could not
// be loaded or simulated; the other fields are then partial.
type Report struct {
	RunID    string
	Symbol   string
	Bars     int
	Result   sim.Result
	Decision risk.Decision
	Summary  backtest.Report
	Err      error
}

// Halted reports whether the risk engine stopped trading for this symbol.
func (r Report) Halted() bool { return r.Err == nil && !r.Decision.Allowed }

type Runner struct {
	cfg      *config.Config
	journal  journal.Journal
	notifier alert.Notifier
	log      *zap.Logger
	now      func() time.Time

	// Parallel bounds concurrent symbols in RunBatch; 0 means unbounded.
	Parallel int

	mu sync.Mutex // serializes journal writes and alerts
}

// NewRunner wires a runner. j and n may be nil to skip journaling or alerts.
func NewRunner(cfg *config.Config, j journal.Journal, n alert.Notifier, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		journal:  j,
		notifier: n,
		log:      log,
		now:      time.Now,
	}
}

// SetClock changes the time used as "today" for risk checks.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// RunSymbol simulates one series and acts on the risk decision. Only an
// invalid series returns an error; alert and journal failures are logged.
func (r *Runner) RunSymbol(ctx context.Context, s market.Series) (Report, error) {
	rep := Report{
		RunID:  uuid.New().String(),
		Symbol: s.Symbol,
		Bars:   s.Len(),
	}
	log := r.log.With(zap.String("symbol", s.Symbol), zap.String("run_id", rep.RunID))

	eng := sim.NewEngine(r.cfg.SimConfig(s.Symbol), log)
	res, err := eng.Run(s.Bars, s.Signals)
	if err != nil {
		rep.Err = err
		return rep, err
	}
	rep.Result = res

	limits := r.cfg.RiskLimits()
	re := risk.NewEngine(limits, r.now())
	re.SetClock(r.now)
	rep.Decision = re.Evaluate(eng.Capital(), r.now())

	rep.Summary = backtest.Summarize(s.Symbol, res, s.Len(), limits.InitialCapital)
	rep.Summary.RunID = rep.RunID
	rep.Summary.RiskChecked = true
	rep.Summary.RiskAllowed = rep.Decision.Allowed
	rep.Summary.RiskReason = rep.Decision.Reason()

	log.Info("simulation finished",
		zap.Int("bars", s.Len()),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("final_equity", res.FinalEquity),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !rep.Decision.Allowed {
		log.Warn("risk limits exceeded", zap.String("reason", rep.Decision.Reason()))
		alert.Safe(ctx, r.notifier, log, alert.HaltMessage(s.Symbol))
	}

	if r.journal != nil {
		if err := journal.RecordResult(r.journal, res); err != nil {
			log.Error("journal write failed", zap.Error(err))
		}
	}

	for _, t := range res.Trades {
		alert.Safe(ctx, r.notifier, log, alert.TradeMessage(t))
	}

	return rep, nil
}

// RunBatch runs every symbol independently. A symbol that fails to load or
// simulate only fails its own report. Reports keep the order of symbols.
func (r *Runner) RunBatch(ctx context.Context, symbols []string, load Loader) []Report {
	reports := make([]Report, len(symbols))

	var g errgroup.Group
	if r.Parallel > 0 {
		g.SetLimit(r.Parallel)
	}

	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			reports[i] = r.runOne(ctx, sym, load)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func (r *Runner) runOne(ctx context.Context, symbol string, load Loader) Report {
	if err := ctx.Err(); err != nil {
		return Report{Symbol: symbol, Err: err}
	}

	s, err := load(symbol)
	if err != nil {
		r.log.Error("load failed", zap.String("symbol", symbol), zap.Error(err))
		return Report{Symbol: symbol, Err: fmt.Errorf("load %s: %w", symbol, err)}
	}
	if s.Symbol == "" {
		s.Symbol = symbol
	}

	rep, err := r.RunSymbol(ctx, s)
	if err != nil {
		r.log.Error("simulation failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return rep
}

// DirLoader loads <dir>/<SYMBOL>.csv, falling back to <SYMBOL>.csv.xz.
func DirLoader(dir string) Loader {
	return func(symbol string) (market.Series, error) {
		return market.LoadSymbol(dir, symbol)
	}
}
