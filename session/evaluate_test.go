package session

import (
	"math"
	"testing"

	"github.com/ftilbury/aibot/backtest"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateHoldOut(t *testing.T) {
	t.Parallel()

	closes := []float64{100, 101, 102, 103, 104, 105, 104, 106, 107, 105}
	signals := []int{0, 0, 0, 0, 0, 0, 1, 1, 0, 1}
	s := series("EURUSD", closes, signals)

	cfg := config.EvaluationConfig{PeriodsPerYear: 252, TrainFraction: 0.6}
	ev, err := Evaluate(s, cfg)
	require.NoError(t, err)

	assert.Equal(t, 6, ev.Split)
	assert.Equal(t, 4, ev.TestBars)
	assert.True(t, ev.Start.Equal(s.Bars[6].Time))
	assert.True(t, ev.End.Equal(s.Bars[9].Time))

	// rows 6..9; the last row is dropped by the backtest
	require.Equal(t, 3, ev.Backtest.Len())
	want := math.Log(106.0/104) + math.Log(107.0/106)
	assert.InDelta(t, math.Exp(want), ev.Backtest.Final(), 1e-12)
	assert.InDelta(t, math.Expm1(want), ev.Strategy.CumulativeReturn, 1e-12)
	assert.Equal(t, 2, ev.Strategy.NumTrades)

	// labels for rows 6..8 are up, up, down; predictions 1, 1, 0
	assert.Equal(t, 1.0, ev.Classification.Accuracy)
	assert.Equal(t, 1.0, ev.Classification.Precision)
	assert.Equal(t, 1.0, ev.Classification.Recall)

	var r backtest.Report
	ev.Apply(&r)
	assert.Equal(t, 4, r.TestBars)
	require.NotNil(t, r.Classification)
	assert.Equal(t, ev.Strategy, r.Strategy)
}

func TestEvaluateMismatch(t *testing.T) {
	t.Parallel()

	s := series("X", []float64{1, 2, 3}, []int{1, 0})
	_, err := Evaluate(s, config.EvaluationConfig{TrainFraction: 0.5})
	assert.ErrorIs(t, err, market.ErrInvalidInput)
}

func TestEvaluateEmptyHoldOut(t *testing.T) {
	t.Parallel()

	s := series("X", []float64{1, 2, 3}, []int{1, 0, 1})
	ev, err := Evaluate(s, config.EvaluationConfig{TrainFraction: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, ev.TestBars)
	assert.Equal(t, 0, ev.Backtest.Len())
	assert.Equal(t, 1.0, ev.Backtest.Final())
}
