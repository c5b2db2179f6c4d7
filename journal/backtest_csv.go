package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ftilbury/aibot/backtest"
)

// BacktestPath is the per-symbol vectorized backtest file inside dir.
func BacktestPath(dir, symbol string) string {
	return filepath.Join(dir, "backtest_"+symbol+".csv")
}

// WriteBacktestCSV writes one row per evaluated bar. times, when not nil,
// must hold at least res.Len() timestamps; row i uses times[i].
func WriteBacktestCSV(w io.Writer, times []time.Time, res backtest.Result) error {
	if times != nil && len(times) < res.Len() {
		return fmt.Errorf("backtest csv: %d times for %d rows", len(times), res.Len())
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "signal", "strategy_return", "cum_return"}); err != nil {
		return err
	}
	for i := 0; i < res.Len(); i++ {
		ts := ""
		if times != nil {
			ts = times[i].Format(time.RFC3339Nano)
		}
		if err := cw.Write([]string{
			ts,
			strconv.Itoa(res.Signals[i]),
			num(res.StrategyReturns[i]),
			num(res.CumReturns[i]),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveBacktestCSV writes backtest_<symbol>.csv into dir.
func SaveBacktestCSV(dir, symbol string, times []time.Time, res backtest.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := BacktestPath(dir, symbol)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteBacktestCSV(f, times, res); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
