package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput is returned when a bar series and its signal array cannot
// be processed together, e.g. when their lengths differ.
var ErrInvalidInput = errors.New("invalid input")

// Signal values. Anything else is treated as "no instruction".
const (
	Flat = 0
	Long = 1
)

// Bar is the minimum price record the simulator needs.
type Bar struct {
	Time  time.Time
	Close float64
}

// Series pairs one symbol's chronological bars with the model's signals.
type Series struct {
	Symbol  string
	Bars    []Bar
	Signals []int
}

func (s Series) Len() int { return len(s.Bars) }

// Validate fails with ErrInvalidInput when bars and signals differ in length.
func (s Series) Validate() error {
	return CheckLengths(len(s.Bars), len(s.Signals))
}

// CheckLengths is the shared length contract for prices and signals.
func CheckLengths(prices, signals int) error {
	if prices != signals {
		return fmt.Errorf("%w: %d signals for %d bars", ErrInvalidInput, signals, prices)
	}
	return nil
}

// Closes returns the close prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Times returns the bar timestamps in order.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

// LogReturns computes r[i] = ln(close[i]/close[i-1]). r[0] has no previous
// bar and is reported as 0.
func LogReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// SignalFromFloat casts a model output to a signal: positive is Long.
func SignalFromFloat(v float64) int {
	if v > 0 {
		return Long
	}
	return Flat
}
