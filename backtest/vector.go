package backtest

import (
	"fmt"
	"math"

	"github.com/ftilbury/aibot/market"
)

// ErrInvalidInput is returned when returns and signals differ in length.
var ErrInvalidInput = market.ErrInvalidInput

// Result is the frictionless long/flat evaluation of a signal array. Row i
// pairs Signals[i] with the log return of bar i+1; the last input row has no
// following return and is dropped, so every slice has len(input)-1 rows.
type Result struct {
	Signals         []int
	StrategyReturns []float64
	// CumReturns is the growth factor exp(cumsum(StrategyReturns)).
	CumReturns []float64
}

func (r Result) Len() int { return len(r.StrategyReturns) }

// Final is the last growth factor, 1 for an empty result.
func (r Result) Final() float64 {
	if len(r.CumReturns) == 0 {
		return 1
	}
	return r.CumReturns[len(r.CumReturns)-1]
}

// Run aligns each signal with the next bar's log return. No slippage or
// latency is applied.
func Run(returns []float64, signals []int) (Result, error) {
	if err := market.CheckLengths(len(returns), len(signals)); err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}

	n := len(returns) - 1
	if n < 1 {
		return Result{}, nil
	}

	res := Result{
		Signals:         make([]int, n),
		StrategyReturns: make([]float64, n),
		CumReturns:      make([]float64, n),
	}

	var sum float64
	for i := 0; i < n; i++ {
		res.Signals[i] = signals[i]
		res.StrategyReturns[i] = returns[i+1] * float64(signals[i])
		sum += res.StrategyReturns[i]
		res.CumReturns[i] = math.Exp(sum)
	}
	return res, nil
}

// NumTrades counts the bars spent long, the way the summary reports it.
func (r Result) NumTrades() int {
	n := 0
	for _, s := range r.Signals {
		if s == market.Long {
			n++
		}
	}
	return n
}

// DirectionLabels returns 1 where the following return is positive and 0
// otherwise. The last label has no following return and is 0.
func DirectionLabels(returns []float64) []int {
	out := make([]int, len(returns))
	for i := 0; i+1 < len(returns); i++ {
		if returns[i+1] > 0 {
			out[i] = 1
		}
	}
	return out
}

// SplitIndex is the first test row of a time-ordered train/test split that
// keeps trainFrac of n rows for training.
func SplitIndex(n int, trainFrac float64) int {
	if n <= 0 {
		return 0
	}
	idx := int(float64(n) * trainFrac)
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}
