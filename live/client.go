package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler is called for every decoded bar, in arrival order.
type Handler func(ctx context.Context, msg BarMessage) error

// Client reads bar messages from a websocket feed and reconnects on read
// errors until its context is canceled.
type Client struct {
	url            string
	dialer         *websocket.Dialer
	header         http.Header
	reconnectDelay time.Duration
	handler        Handler
	logger         *zap.Logger
}

func NewClient(url string, handshakeTimeout, reconnectDelay time.Duration, h Handler, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	d := *websocket.DefaultDialer
	if handshakeTimeout > 0 {
		d.HandshakeTimeout = handshakeTimeout
	}
	return &Client{
		url:            url,
		dialer:         &d,
		reconnectDelay: reconnectDelay,
		handler:        h,
		logger:         logger.Named("ws"),
	}
}

// SetHeader sets extra handshake headers, e.g. an auth token.
func (c *Client) SetHeader(h http.Header) { c.header = h }

// Run connects and listens until ctx is done. It returns ctx.Err() on
// cancellation and only fails early if the first dial fails.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	for {
		err := c.listen(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("websocket read error", zap.Error(err))

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.reconnectDelay):
			}
			conn, err = c.dial(ctx)
			if err == nil {
				c.logger.Info("reconnected", zap.String("url", c.url))
				break
			}
			c.logger.Warn("reconnect failed, retrying", zap.Error(err))
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.logger.Info("websocket connected", zap.String("url", c.url))
	return conn, nil
}

// listen reads until the connection fails or ctx is done.
func (c *Client) listen(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := DecodeBar(data)
		if err != nil {
			c.logger.Warn("dropping message", zap.Error(err))
			continue
		}
		if c.handler == nil {
			continue
		}
		if err := c.handler(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Warn("bar rejected", zap.String("symbol", msg.Symbol), zap.Error(err))
		}
	}
}
