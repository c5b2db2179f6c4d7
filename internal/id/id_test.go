package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForTradeDeterministic(t *testing.T) {
	t.Parallel()

	entry := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	a := ForTrade("EURUSD", entry, 3)
	b := ForTrade("EURUSD", entry, 3)
	assert.Equal(t, a, b)

	_, err := ulid.Parse(a)
	require.NoError(t, err)
}

func TestForTradeDistinct(t *testing.T) {
	t.Parallel()

	entry := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	assert.NotEqual(t, ForTrade("EURUSD", entry, 0), ForTrade("EURUSD", entry, 1))
	assert.NotEqual(t, ForTrade("EURUSD", entry, 0), ForTrade("GBPUSD", entry, 0))
}

func TestForTradeSortsByEntry(t *testing.T) {
	t.Parallel()

	early := ForTrade("EURUSD", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 9)
	late := ForTrade("EURUSD", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 0)
	assert.Less(t, early, late)
}

func TestForTradeZeroTime(t *testing.T) {
	t.Parallel()

	got := ForTrade("FX", time.Time{}, 0)
	parsed, err := ulid.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), parsed.Time())
}
