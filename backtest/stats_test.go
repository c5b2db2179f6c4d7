package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logs(arith ...float64) []float64 {
	out := make([]float64, len(arith))
	for i, a := range arith {
		out[i] = math.Log1p(a)
	}
	return out
}

func TestSharpeRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		returns []float64
		rf      float64
		periods int
		want    float64
	}{
		{"unit ratio", logs(0.02, 0, 0.01), 0, 252, math.Sqrt(252)},
		{"risk free", logs(0.011, 0.001, 0.006), 0.252, 252, math.Sqrt(252)},
		{"zero mean", logs(0.01, -0.01), 0, 252, 0},
		{"constant", []float64{0.001, 0.001, 0.001, 0.001}, 0, 252, 0},
		{"constant with rf", []float64{0.003, 0.003, 0.003}, 0.05, 252, 0},
		{"single", []float64{0.05}, 0, 252, 0},
		{"empty", nil, 0, 252, 0},
		{"hourly", logs(0.02, 0, 0.01), 0, 6048, math.Sqrt(6048)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, SharpeRatio(tt.returns, tt.rf, tt.periods), 1e-6)
		})
	}
}

func TestSharpeRatioConstantIsExactlyZero(t *testing.T) {
	t.Parallel()

	r := make([]float64, 100)
	for i := range r {
		r[i] = 0.1
	}
	assert.Equal(t, 0.0, SharpeRatio(r, 0.01, DefaultPeriodsPerYear))
}

func TestEvaluateStrategy(t *testing.T) {
	t.Parallel()

	s := EvaluateStrategy([]float64{0.1, -0.05, 0.2}, 0, DefaultPeriodsPerYear)
	assert.InDelta(t, math.Exp(0.25)-1, s.CumulativeReturn, 1e-12)
	assert.NotZero(t, s.SharpeRatio)

	res, err := Run([]float64{0, 0.1, -0.2, 0.3}, []int{1, 0, 1, 1})
	require.NoError(t, err)
	e := Evaluate(res, 0, DefaultPeriodsPerYear)
	assert.Equal(t, 2, e.NumTrades)
	assert.InDelta(t, math.Exp(0.4)-1, e.CumulativeReturn, 1e-12)
}

func TestEvaluateClassification(t *testing.T) {
	t.Parallel()

	s, err := EvaluateClassification([]int{1, 0, 1, 1, 0}, []int{1, 1, 0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, s.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.Recall, 1e-12)
	assert.Equal(t, 2, s.TruePositives)
	assert.Equal(t, 1, s.FalsePositives)
	assert.Equal(t, 1, s.FalseNegatives)
	assert.Equal(t, 1, s.TrueNegatives)

	s, err = EvaluateClassification([]int{1, 0}, []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Precision)
	assert.Equal(t, 0.0, s.Recall)
	assert.InDelta(t, 0.5, s.Accuracy, 1e-12)

	s, err = EvaluateClassification(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ClassificationStats{}, s)

	_, err = EvaluateClassification([]int{1}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, MaxDrawdown([]float64{100, 120, 90, 130, 117}), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}
