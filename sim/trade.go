package sim

import (
	"fmt"
	"time"
)

// ExitReason records why a trade was closed.
type ExitReason string

const (
	ExitSignal    ExitReason = "signal"
	ExitEndOfData ExitReason = "end_of_data"
)

// UnitVolume is the only position size the simulator trades.
const UnitVolume = 1.0

// Trade is one long-only round trip. ExitTime and ExitPrice are zero while
// Open is true and both set once it is closed; a closed trade never changes.
type Trade struct {
	ID         string
	Symbol     string
	Volume     float64
	EntryTime  time.Time
	EntryPrice float64

	// Realized
	ExitTime  time.Time
	ExitPrice float64
	Reason    ExitReason
	Open      bool
}

func (t *Trade) close(exitTime time.Time, exitPrice float64, reason ExitReason) error {
	if !t.Open {
		return fmt.Errorf("close trade: trade %q is already closed", t.ID)
	}
	t.ExitTime = exitTime
	t.ExitPrice = exitPrice
	t.Reason = reason
	t.Open = false
	return nil
}

// PnL is the realized profit of a closed trade, 0 while open.
func (t Trade) PnL() float64 {
	if t.Open {
		return 0
	}
	return (t.ExitPrice - t.EntryPrice) * t.Volume
}

// HoldingTime is the time between entry and exit, 0 while open.
func (t Trade) HoldingTime() time.Duration {
	if t.Open {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime)
}
