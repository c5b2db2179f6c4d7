package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ftilbury/aibot/alert"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/journal"
	"github.com/ftilbury/aibot/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	j, err := openJournal(context.Background(), config.JournalConfig{Type: "csv", OutputDir: filepath.Join(dir, "out")})
	require.NoError(t, err)
	assert.IsType(t, &journal.CSVJournal{}, j)
	require.NoError(t, j.Close())

	j, err = openJournal(context.Background(), config.JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "db", "j.db")})
	require.NoError(t, err)
	assert.IsType(t, &journal.SQLite{}, j)
	require.NoError(t, j.Close())

	_, err = openJournal(context.Background(), config.JournalConfig{Type: "mongo"})
	assert.ErrorContains(t, err, "unknown journal type")
}

func TestNewNotifier(t *testing.T) {
	t.Parallel()

	log := zap.NewNop()

	n, err := newNotifier(config.AlertConfig{Type: "log"}, log)
	require.NoError(t, err)
	assert.IsType(t, &alert.Log{}, n)

	n, err = newNotifier(config.AlertConfig{Type: "telegram", Token: "t", ChatID: "42"}, log)
	require.NoError(t, err)
	assert.Len(t, n, 2)

	_, err = newNotifier(config.AlertConfig{Type: "telegram", ChatID: "42"}, log)
	assert.Error(t, err)

	_, err = newNotifier(config.AlertConfig{Type: "pager"}, log)
	assert.Error(t, err)
}

func TestCheckRisk(t *testing.T) {
	t.Parallel()

	limits := risk.DefaultLimits()
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name              string
		equity, start, pk float64
		allowed           bool
		wantErr           bool
	}{
		{"defaults ok", 99_000, 0, 0, true, false},
		{"daily breach", 97_400, 0, 0, false, false},
		{"trailing breach", 98_500, 100_000, 109_000, false, false},
		{"peak below start", 100_000, 100_000, 90_000, false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := checkRisk(limits, now, tt.equity, tt.start, tt.pk)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
		})
	}
}

func TestDayBounds(t *testing.T) {
	t.Parallel()

	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), end)

	_, _, err = dayBounds(time.UTC, "15/01/2024")
	assert.Error(t, err)
}

// The commands share package-level flag state, so this test is sequential.
func TestSimulateCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "EURUSD.csv"), []byte(
		"time,close,signal\n"+
			"2024-01-02T00:00:00Z,1.1000,1\n"+
			"2024-01-02T00:15:00Z,1.1010,1\n"+
			"2024-01-02T00:30:00Z,1.1030,0\n"+
			"2024-01-02T00:45:00Z,1.1020,0\n"), 0o644))

	dbPath := filepath.Join(dir, "journal.db")
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Symbols = []string{"EURUSD", "GBPUSD"}
	cfg.Execution.Slippage = 0
	cfg.Execution.Latency = 0
	cfg.Journal.Type = "sqlite"
	cfg.Journal.DBPath = dbPath
	cfg.Log.Level = "error"
	cfgPath := filepath.Join(dir, "aibot.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	orgDir := filepath.Join(dir, "org")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"simulate", "-c", cfgPath, "--org-dir", orgDir})
	err := rootCmd.ExecuteContext(context.Background())

	// GBPUSD has no data file
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 symbols failed")

	db, err := journal.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()

	trades, err := db.ListTrades(context.Background(), "EURUSD")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 1.1010, trades[0].EntryPrice, 1e-12)
	assert.InDelta(t, 1.1020, trades[0].ExitPrice, 1e-12)

	assert.FileExists(t, filepath.Join(orgDir, "simulation_eurusd.org"))

	rootCmd.SetArgs([]string{"journal", "trade", trades[0].TradeID, "--db", dbPath})
	out.Reset()
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), trades[0].TradeID)
}

func TestConfigInitValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aibot.json")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", "-o", path})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.FileExists(t, path)

	out.Reset()
	rootCmd.SetArgs([]string{"config", "validate", "-f", path})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Configuration valid")
	assert.Contains(t, out.String(), "EURUSD")
}
