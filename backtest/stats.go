package backtest

import (
	"fmt"
	"math"
)

// DefaultPeriodsPerYear annualizes daily bars.
const DefaultPeriodsPerYear = 252

// SharpeRatio annualizes the mean excess arithmetic return over its sample
// standard deviation. returns are log returns and riskFree is an annual rate.
// A constant or shorter than two element series yields 0.
func SharpeRatio(returns []float64, riskFree float64, periodsPerYear int) float64 {
	n := len(returns)
	if n < 2 || periodsPerYear <= 0 {
		return 0
	}

	rf := riskFree / float64(periodsPerYear)
	excess := make([]float64, n)
	constant := true
	var sum float64
	for i, r := range returns {
		excess[i] = math.Expm1(r) - rf
		sum += excess[i]
		if excess[i] != excess[0] {
			constant = false
		}
	}
	if constant {
		return 0
	}

	mean := sum / float64(n)
	var ss float64
	for _, x := range excess {
		d := x - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return math.Sqrt(float64(periodsPerYear)) * mean / std
}

// StrategyStats summarizes a series of strategy log returns.
type StrategyStats struct {
	CumulativeReturn float64
	SharpeRatio      float64
	NumTrades        int
}

// EvaluateStrategy compounds strategyReturns into a total return and computes
// its Sharpe ratio.
func EvaluateStrategy(strategyReturns []float64, riskFree float64, periodsPerYear int) StrategyStats {
	var sum float64
	for _, r := range strategyReturns {
		sum += r
	}
	return StrategyStats{
		CumulativeReturn: math.Expm1(sum),
		SharpeRatio:      SharpeRatio(strategyReturns, riskFree, periodsPerYear),
	}
}

// Evaluate is EvaluateStrategy over a backtest result, counting long bars as
// trades.
func Evaluate(r Result, riskFree float64, periodsPerYear int) StrategyStats {
	s := EvaluateStrategy(r.StrategyReturns, riskFree, periodsPerYear)
	s.NumTrades = r.NumTrades()
	return s
}

// ClassificationStats scores binary predictions against labels, with 1 as
// the positive class. Ratios with an empty denominator are 0.
type ClassificationStats struct {
	Accuracy  float64
	Precision float64
	Recall    float64

	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
}

func EvaluateClassification(yTrue, yPred []int) (ClassificationStats, error) {
	if len(yTrue) != len(yPred) {
		return ClassificationStats{}, fmt.Errorf("%w: %d labels, %d predictions",
			ErrInvalidInput, len(yTrue), len(yPred))
	}

	var s ClassificationStats
	for i := range yTrue {
		actual, pred := yTrue[i] == 1, yPred[i] == 1
		switch {
		case actual && pred:
			s.TruePositives++
		case !actual && pred:
			s.FalsePositives++
		case actual && !pred:
			s.FalseNegatives++
		default:
			s.TrueNegatives++
		}
	}

	s.Accuracy = ratio(s.TruePositives+s.TrueNegatives, len(yTrue))
	s.Precision = ratio(s.TruePositives, s.TruePositives+s.FalsePositives)
	s.Recall = ratio(s.TruePositives, s.TruePositives+s.FalseNegatives)
	return s, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// MaxDrawdown is the largest fall from a running peak, as a fraction of that
// peak. Non-positive peaks are skipped.
func MaxDrawdown(curve []float64) float64 {
	var peak, maxDD float64
	for i, v := range curve {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
