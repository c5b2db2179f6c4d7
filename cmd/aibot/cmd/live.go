package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ftilbury/aibot/live"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Paper trade from a websocket bar feed",
	Long: `Live connects to a websocket feed of closed bars with signals:

  {"symbol":"EURUSD","time":"2024-06-03T08:00:00Z","close":1.0812,"signal":1}

Every bar re-simulates the symbol's history and checks the risk limits on the
realized capital. A halted symbol stops opening positions and alerts once.
Runs until interrupted.

Example:
  aibot live --url ws://localhost:8765/bars`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

var liveURL string

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringVar(&liveURL, "url", "", "websocket feed URL (default from config)")
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	if liveURL != "" {
		cfg.Live.URL = liveURL
	}

	j, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	n, err := newNotifier(cfg.Alert, log)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}

	mgr := live.NewManager(cfg, j, n, log)
	handle := func(ctx context.Context, msg live.BarMessage) error {
		u, err := mgr.Handle(ctx, msg)
		if err != nil {
			return err
		}
		log.Debug("bar applied",
			zap.String("symbol", u.Symbol),
			zap.Int("bars", u.Bars),
			zap.Float64("capital", u.Capital),
			zap.Bool("halted", u.Halted),
		)
		return nil
	}

	client := live.NewClient(cfg.Live.URL, cfg.Live.HandshakeTimeout, cfg.Live.ReconnectDelay, handle, log)
	log.Info("live session started", zap.String("url", cfg.Live.URL))

	err = client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("live session stopped", zap.Strings("symbols", mgr.Symbols()))
		return nil
	}
	return err
}
