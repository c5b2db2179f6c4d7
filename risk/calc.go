package risk

import (
	"math"
	"time"
)

// DrawdownFraction is (reference - equity) / capital. A non-positive capital
// turns any loss into +Inf so that it always exceeds a limit.
func DrawdownFraction(reference, equity, capital float64) float64 {
	loss := reference - equity
	if capital <= 0 {
		if loss <= 0 {
			return 0
		}
		return math.Inf(1)
	}
	return loss / capital
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
