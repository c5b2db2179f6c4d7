package journal

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/ftilbury/aibot/backtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBacktestCSV(t *testing.T) {
	t.Parallel()

	res, err := backtest.Run([]float64{0, 0.5, -0.25}, []int{1, 1, 0})
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteBacktestCSV(&buf, []time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)}, res))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "time,signal,strategy_return,cum_return", string(lines[0]))
	assert.Contains(t, string(lines[1]), "2024-01-01T00:00:00Z,1,0.5,")
	assert.Contains(t, string(lines[2]), "2024-01-01T01:00:00Z,1,-0.25,")

	assert.Error(t, WriteBacktestCSV(&buf, []time.Time{t0}, res))
}

func TestSaveBacktestCSV(t *testing.T) {
	t.Parallel()

	res, err := backtest.Run([]float64{0, 0.1}, []int{1, 0})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	path, err := SaveBacktestCSV(dir, "USDCAD", nil, res)
	require.NoError(t, err)
	assert.Equal(t, BacktestPath(dir, "USDCAD"), path)
	assert.FileExists(t, path)
}
