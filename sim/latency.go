package sim

import "fmt"

// LatencyMode selects how the first bars of a delayed signal array are filled.
type LatencyMode string

const (
	// LatencyWrap rotates the array: bar i acts on signal (i-latency) mod N,
	// so the last signals of the series reappear at its start.
	LatencyWrap LatencyMode = "wrap"
	// LatencyZero treats bars before the first delayed signal as flat.
	LatencyZero LatencyMode = "zero"
)

// ParseLatencyMode accepts "wrap", "zero" or "" (wrap).
func ParseLatencyMode(s string) (LatencyMode, error) {
	switch LatencyMode(s) {
	case "", LatencyWrap:
		return LatencyWrap, nil
	case LatencyZero:
		return LatencyZero, nil
	}
	return "", fmt.Errorf("unknown latency mode %q (supported: wrap, zero)", s)
}

// Delay returns a new array where index i holds the signal generated latency
// bars earlier. signals is not modified.
func Delay(signals []int, latency int, mode LatencyMode) []int {
	n := len(signals)
	out := make([]int, n)
	if n == 0 {
		return out
	}

	for i := range out {
		src := i - latency
		if mode == LatencyZero {
			if src >= 0 && src < n {
				out[i] = signals[src]
			}
			continue
		}
		out[i] = signals[((src%n)+n)%n]
	}
	return out
}
