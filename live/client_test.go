package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsServer(t *testing.T, payloads []string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientDeliversBars(t *testing.T) {
	t.Parallel()

	srv := wsServer(t, []string{
		`{"symbol":"EURUSD","time":"2024-06-03T08:00:00Z","close":1.08,"signal":0}`,
		`garbage`,
		`{"symbol":"EURUSD","time":"2024-06-03T09:00:00Z","close":1.09,"signal":1}`,
		`{"symbol":"GBPUSD","time":"2024-06-03T09:00:00Z","close":1.27,"signal":1}`,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan BarMessage, 8)
	c := NewClient(wsURL(srv), time.Second, 10*time.Millisecond, func(_ context.Context, m BarMessage) error {
		got <- m
		if len(got) == 3 {
			cancel()
		}
		return nil
	}, nil)

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, got, 3)
	first := <-got
	assert.Equal(t, "EURUSD", first.Symbol)
	assert.Equal(t, 1.08, first.Close)
	<-got
	third := <-got
	assert.Equal(t, "GBPUSD", third.Symbol)
}

func TestClientFeedsManager(t *testing.T) {
	t.Parallel()

	srv := wsServer(t, []string{
		`{"symbol":"EURUSD","time":"2024-06-03T08:00:00Z","close":100,"signal":1}`,
		`{"symbol":"EURUSD","time":"2024-06-03T09:00:00Z","close":101,"signal":1}`,
		`{"symbol":"EURUSD","time":"2024-06-03T10:00:00Z","close":102,"signal":0}`,
	})

	n := &recorder{}
	m := newManager(testConfig(100_000), nil, n)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count := 0
	c := NewClient(wsURL(srv), time.Second, 10*time.Millisecond, func(ctx context.Context, msg BarMessage) error {
		_, err := m.Handle(ctx, msg)
		count++
		if count == 3 {
			cancel()
		}
		return err
	}, nil)

	_ = c.Run(ctx)
	assert.Equal(t, 3, count)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "enter at 102.00000")
}

func TestClientDialFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(wsURL(srv), time.Second, time.Millisecond, nil, nil)
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}
