package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		signals []int
		latency int
		mode    LatencyMode
		want    []int
	}{
		{"wrap one bar", []int{0, 1, 1, 0}, 1, LatencyWrap, []int{0, 0, 1, 1}},
		{"wrap leaks tail", []int{0, 0, 0, 1}, 1, LatencyWrap, []int{1, 0, 0, 0}},
		{"zero drops tail", []int{0, 0, 0, 1}, 1, LatencyZero, []int{0, 0, 0, 0}},
		{"no latency", []int{1, 0, 1}, 0, LatencyWrap, []int{1, 0, 1}},
		{"wrap beyond length", []int{1, 0, 0}, 4, LatencyWrap, []int{0, 1, 0}},
		{"zero beyond length", []int{1, 1, 1}, 5, LatencyZero, []int{0, 0, 0}},
		{"zero two bars", []int{1, 0, 1, 1}, 2, LatencyZero, []int{0, 0, 1, 0}},
		{"empty", nil, 1, LatencyWrap, []int{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Delay(tt.signals, tt.latency, tt.mode))
		})
	}
}

func TestDelayDoesNotMutate(t *testing.T) {
	t.Parallel()

	in := []int{1, 0, 0}
	_ = Delay(in, 1, LatencyWrap)
	assert.Equal(t, []int{1, 0, 0}, in)
}

func TestParseLatencyMode(t *testing.T) {
	t.Parallel()

	m, err := ParseLatencyMode("")
	require.NoError(t, err)
	assert.Equal(t, LatencyWrap, m)

	m, err = ParseLatencyMode("zero")
	require.NoError(t, err)
	assert.Equal(t, LatencyZero, m)

	_, err = ParseLatencyMode("drop")
	assert.Error(t, err)
}
