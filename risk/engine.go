package risk

import (
	"fmt"
	"time"
)

// State is the mutable part of an Engine.
type State struct {
	AnchorDate  time.Time
	StartEquity float64
	PeakEquity  float64
}

// Engine gates trading on a daily loss limit and a trailing drawdown limit.
// It holds no lock: callers sharing one Engine across goroutines must
// serialize Check themselves.
type Engine struct {
	limits Limits
	state  State
	now    func() time.Time
}

// NewEngine starts a session on today's date with equity equal to the
// initial capital.
func NewEngine(limits Limits, today time.Time) *Engine {
	return &Engine{
		limits: limits,
		state: State{
			AnchorDate:  Day(today),
			StartEquity: limits.InitialCapital,
			PeakEquity:  limits.InitialCapital,
		},
		now: time.Now,
	}
}

// Restore replaces the engine state, e.g. from a previous process.
func (e *Engine) Restore(s State) { e.state = s }

// SetClock changes the time source used by CheckNow.
func (e *Engine) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.now = now
}

func (e *Engine) Limits() Limits { return e.limits }
func (e *Engine) State() State   { return e.state }

// Check reports whether trading may continue at equity on day today.
func (e *Engine) Check(equity float64, today time.Time) bool {
	return e.Evaluate(equity, today).Allowed
}

// CheckNow is Check using the engine clock for today.
func (e *Engine) CheckNow(equity float64) bool {
	return e.Check(equity, e.now())
}

// Evaluate runs the two drawdown rules and returns the full decision.
//
// A new date resets start and peak to equity. A daily loss beyond the limit
// halts without touching the peak; otherwise the peak is raised and the
// trailing drawdown from it is checked. Trailing state only resets with the
// day, never because of a halt.
func (e *Engine) Evaluate(equity float64, today time.Time) Decision {
	if !sameDay(today, e.state.AnchorDate) {
		e.state = State{
			AnchorDate:  Day(today),
			StartEquity: equity,
			PeakEquity:  equity,
		}
	}

	d := Decision{Allowed: true, Equity: equity}
	capital := e.limits.InitialCapital

	d.DailyDrawdown = DrawdownFraction(e.state.StartEquity, equity, capital)
	if d.DailyDrawdown > e.limits.MaxDailyLoss {
		d.add(CodeDailyLoss,
			fmt.Sprintf("daily drawdown %.2f%% exceeds max %.2f%%",
				100*d.DailyDrawdown, 100*e.limits.MaxDailyLoss))
		return d
	}

	if equity > e.state.PeakEquity {
		e.state.PeakEquity = equity
	}

	d.TrailingDrawdown = DrawdownFraction(e.state.PeakEquity, equity, capital)
	if d.TrailingDrawdown > e.limits.MaxTrailingDrawdown {
		d.add(CodeTrailingDrawdown,
			fmt.Sprintf("trailing drawdown %.2f%% exceeds max %.2f%%",
				100*d.TrailingDrawdown, 100*e.limits.MaxTrailingDrawdown))
	}
	return d
}
