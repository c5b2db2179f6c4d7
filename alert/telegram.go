package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTelegramURL = "https://api.telegram.org"

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

type TelegramConfig struct {
	Token   string
	ChatID  string
	BaseURL string

	// RatePerSec and Burst bound outgoing messages. Telegram allows about
	// one message per second per chat.
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
}

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	cfg     TelegramConfig
	http    *http.Client
	limiter *rate.Limiter
	sleep   func(ctx context.Context, attempt int)
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("telegram: chat id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTelegramURL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Telegram{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		sleep:   backoff,
	}, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Notify(ctx context.Context, msg string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.cfg.ChatID, Text: msg})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.Token)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("telegram request: %w", redact(err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.http.Do(req)
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("telegram send failed after %d attempts: %w", attempt+1, redact(err))
			}
			t.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("telegram status %d after %d attempts", resp.StatusCode, attempt+1)
			}
			t.sleep(ctx, attempt)
			continue
		}

		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var out apiResponse
		if err := json.Unmarshal(b, &out); err != nil {
			return fmt.Errorf("telegram status %d: decode response: %w", resp.StatusCode, err)
		}
		if resp.StatusCode >= 400 || !out.OK {
			return fmt.Errorf("telegram status %d: %s", resp.StatusCode, out.Description)
		}
		return nil
	}
	return fmt.Errorf("telegram: exhausted %d retries", maxRetries)
}

// redact strips the request URL, which embeds the bot token.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

func backoff(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
