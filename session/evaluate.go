package session

import (
	"fmt"
	"time"

	"github.com/ftilbury/aibot/backtest"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/market"
)

// Evaluation scores the signals of the hold-out part of a series.
type Evaluation struct {
	Symbol         string
	Split          int
	TestBars       int
	Start, End     time.Time
	Backtest       backtest.Result
	Strategy       backtest.StrategyStats
	Classification backtest.ClassificationStats
}

// Evaluate splits s in time order, keeps the rows from the split index on and
// runs the vectorized backtest over them. Signals are also scored as
// next-bar direction predictions; the last bar has no label and is skipped.
func Evaluate(s market.Series, cfg config.EvaluationConfig) (Evaluation, error) {
	if err := s.Validate(); err != nil {
		return Evaluation{}, fmt.Errorf("evaluate %s: %w", s.Symbol, err)
	}

	returns := market.LogReturns(s.Closes())
	labels := backtest.DirectionLabels(returns)

	split := backtest.SplitIndex(s.Len(), cfg.TrainFraction)
	ev := Evaluation{
		Symbol:   s.Symbol,
		Split:    split,
		TestBars: s.Len() - split,
	}
	if ev.TestBars > 0 {
		ev.Start = s.Bars[split].Time
		ev.End = s.Bars[s.Len()-1].Time
	}

	res, err := backtest.Run(returns[split:], s.Signals[split:])
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate %s: %w", s.Symbol, err)
	}
	ev.Backtest = res
	ev.Strategy = backtest.Evaluate(res, cfg.RiskFreeRate, cfg.PeriodsPerYear)

	last := s.Len() - 1
	if last > split {
		cls, err := backtest.EvaluateClassification(labels[split:last], s.Signals[split:last])
		if err != nil {
			return Evaluation{}, fmt.Errorf("evaluate %s: %w", s.Symbol, err)
		}
		ev.Classification = cls
	}
	return ev, nil
}

// Apply copies the evaluation into a run report.
func (ev Evaluation) Apply(r *backtest.Report) {
	r.TestBars = ev.TestBars
	r.Strategy = ev.Strategy
	cls := ev.Classification
	r.Classification = &cls
}
