package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ftilbury/aibot/alert"
	"github.com/ftilbury/aibot/config"
	"github.com/ftilbury/aibot/journal"
	"go.uber.org/zap"
)

// openJournal builds the journal selected by cfg.Journal.Type.
func openJournal(ctx context.Context, cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.OutputDir)

	case "sqlite":
		if err := ensureDir(filepath.Dir(cfg.DBPath)); err != nil {
			return nil, err
		}
		return journal.NewSQLite(cfg.DBPath)

	case "postgres":
		pg := cfg.Postgres
		if pg.CreateDB {
			if err := journal.CreateDatabase(ctx, pg.DSN("postgres"), pg.DBName); err != nil {
				return nil, fmt.Errorf("create database: %w", err)
			}
		}
		return journal.NewPostgres(pg.DSN(""))
	}
	return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
}

// newNotifier builds the alert sink. Telegram alerts are also logged.
func newNotifier(cfg config.AlertConfig, log *zap.Logger) (alert.Notifier, error) {
	logN := alert.NewLog(log)
	switch cfg.Type {
	case "", "log":
		return logN, nil

	case "telegram":
		tg, err := alert.NewTelegram(alert.TelegramConfig{
			Token:      cfg.Token,
			ChatID:     cfg.ChatID,
			BaseURL:    cfg.BaseURL,
			RatePerSec: cfg.RatePerSec,
		})
		if err != nil {
			return nil, err
		}
		return alert.Multi{logN, tg}, nil
	}
	return nil, fmt.Errorf("unknown alert type %q", cfg.Type)
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
