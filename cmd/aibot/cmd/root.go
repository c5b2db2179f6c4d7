package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "aibot",
	Short: "Signal-driven FX paper trading simulator and risk monitor",
	Long: `aibot turns model signals (1 = long, 0 = flat) aligned to price bars into a
simulated trade ledger, a realized equity curve and a go/no-go risk decision.

It provides tools for:
  - Simulating signals with latency and slippage
  - Daily loss and trailing drawdown risk checks
  - Vectorized hold-out evaluation (returns, Sharpe, accuracy)
  - Trade journals in CSV, SQLite or Postgres
  - Live paper trading from a websocket bar feed
  - A read-only HTTP API over the journal`,
	SilenceUsage: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
// The command context is canceled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults plus AIBOT_* env when empty")
}

// setup loads the configuration, resolves SSM secrets when needed and builds
// the logger.
func setup(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.NeedsSecrets() {
		store, err := config.NewSSM(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("ssm: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			return nil, nil, err
		}
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}
