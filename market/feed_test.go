package market

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const sampleCSV = `time,close,signal
2024-01-02T00:00:00Z,1.1000,0
2024-01-02T00:15:00Z,1.1010,1

2024-01-02T00:30:00Z,1.1020,1.0
2024-01-02 00:45:00,1.1015,0
`

func TestReadCSV(t *testing.T) {
	t.Parallel()

	s, err := ReadCSV(strings.NewReader(sampleCSV), "EURUSD")
	require.NoError(t, err)

	assert.Equal(t, "EURUSD", s.Symbol)
	require.Equal(t, 4, s.Len())
	assert.Equal(t, []int{0, 1, 1, 0}, s.Signals)
	assert.Equal(t, []float64{1.1000, 1.1010, 1.1020, 1.1015}, s.Closes())
	assert.True(t, s.Bars[3].Time.Equal(time.Date(2024, 1, 2, 0, 45, 0, 0, time.UTC)))
	assert.Len(t, s.Times(), 4)
	assert.True(t, s.Times()[0].Equal(s.Bars[0].Time))
	assert.NoError(t, s.Validate())
}

func TestReadCSVNoHeader(t *testing.T) {
	t.Parallel()

	s, err := ReadCSV(strings.NewReader("2024-01-02,100,1\n2024-01-03,101,0\n"), "X")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestReadCSVBadRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"short row", "2024-01-02,100\n"},
		{"bad time", "yesterday,100,1\n"},
		{"bad close", "2024-01-02,abc,1\n"},
		{"bad signal", "2024-01-02,100,long\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(tt.body), "X")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadRow)
		})
	}
}

func TestLoadCSVXZ(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "gbpusd.csv.xz")

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	s, err := LoadCSV(path, "")
	require.NoError(t, err)
	assert.Equal(t, "GBPUSD", s.Symbol)
	assert.Equal(t, 4, s.Len())
}

func TestLoadCSVMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), "X")
	assert.Error(t, err)
}

func TestSeriesValidate(t *testing.T) {
	t.Parallel()

	s := Series{Bars: make([]Bar, 3), Signals: []int{1, 0}}
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogReturns(t *testing.T) {
	t.Parallel()

	got := LogReturns([]float64{100, 110, 99})
	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 0.0953101798, got[1], 1e-9)
	assert.InDelta(t, -0.1053605157, got[2], 1e-9)

	assert.Empty(t, LogReturns(nil))
}

func TestSignalFromFloat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Long, SignalFromFloat(1))
	assert.Equal(t, Long, SignalFromFloat(0.7))
	assert.Equal(t, Flat, SignalFromFloat(0))
	assert.Equal(t, Flat, SignalFromFloat(-1))
}

func TestSymbolFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EURUSD", SymbolFromPath("data/eurusd.csv.xz"))
	assert.Equal(t, "USDJPY", SymbolFromPath("USDJPY.csv"))
}

func TestLoadSymbol(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usdjpy.csv"), []byte(sampleCSV), 0o644))

	s, err := LoadSymbol(dir, "USDJPY")
	require.NoError(t, err)
	assert.Equal(t, "USDJPY", s.Symbol)
	assert.Equal(t, 4, s.Len())

	_, err = LoadSymbol(dir, "AUDUSD")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
