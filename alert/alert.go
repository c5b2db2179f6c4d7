// Package alert delivers short text notifications about trades and risk
// halts. Delivery is fire-and-forget from the trading side: callers log a
// failed Notify and carry on.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ftilbury/aibot/sim"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg string) error

func (f NotifierFunc) Notify(ctx context.Context, msg string) error { return f(ctx, msg) }

// Log writes every message to a zap logger. It is the notifier used when no
// remote channel is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("alert")}
}

func (l *Log) Notify(_ context.Context, msg string) error {
	l.log.Info(msg)
	return nil
}

// Multi sends to every notifier and joins the failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message.
var Discard Notifier = NotifierFunc(func(context.Context, string) error { return nil })

const timeLayout = "2006-01-02 15:04:05"

// HaltMessage is sent when the risk engine stops trading on symbol.
func HaltMessage(symbol string) string {
	return fmt.Sprintf("Risk limits exceeded on %s; trading halted.", symbol)
}

// TradeMessage describes one closed trade.
func TradeMessage(t sim.Trade) string {
	return fmt.Sprintf("%s trade: enter at %.5f on %s, exit at %.5f on %s, PnL: %.2f",
		t.Symbol,
		t.EntryPrice, t.EntryTime.Format(timeLayout),
		t.ExitPrice, t.ExitTime.Format(timeLayout),
		t.PnL(),
	)
}

// OpenMessage describes a position opened in live mode.
func OpenMessage(t sim.Trade) string {
	return fmt.Sprintf("%s trade: enter at %.5f on %s", t.Symbol, t.EntryPrice, t.EntryTime.Format(timeLayout))
}

// Safe calls n and logs instead of returning a delivery failure. A nil
// notifier is a no-op.
func Safe(ctx context.Context, n Notifier, log *zap.Logger, msg string) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := n.Notify(ctx, msg); err != nil && log != nil {
		log.Warn("failed to send alert", zap.Error(err), zap.String("message", msg))
	}
}
