package risk

import (
	"errors"
	"fmt"
)

// Limits are the fixed parameters of one risk engine. Both fractions are
// measured against InitialCapital, not current equity.
type Limits struct {
	InitialCapital      float64 // e.g. 100000
	MaxDailyLoss        float64 // 0.025
	MaxTrailingDrawdown float64 // 0.10
}

// DefaultLimits are the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		InitialCapital:      100_000,
		MaxDailyLoss:        0.025,
		MaxTrailingDrawdown: 0.10,
	}
}

func (l Limits) Validate() error {
	if l.InitialCapital <= 0 {
		return errors.New("initial capital must be positive")
	}
	if l.MaxDailyLoss <= 0 || l.MaxDailyLoss >= 1 {
		return fmt.Errorf("max daily loss %.4f must be in (0, 1)", l.MaxDailyLoss)
	}
	if l.MaxTrailingDrawdown <= 0 || l.MaxTrailingDrawdown >= 1 {
		return fmt.Errorf("max trailing drawdown %.4f must be in (0, 1)", l.MaxTrailingDrawdown)
	}
	return nil
}
