package live

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ftilbury/aibot/market"
)

// BarMessage is one closed bar with the model's signal for it.
type BarMessage struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Close  float64   `json:"close"`
	Signal float64   `json:"signal"`
}

// DecodeBar parses and validates a websocket payload.
func DecodeBar(data []byte) (BarMessage, error) {
	var m BarMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return BarMessage{}, fmt.Errorf("decode bar: %w", err)
	}
	m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
	if m.Symbol == "" {
		return BarMessage{}, fmt.Errorf("decode bar: %w: missing symbol", market.ErrBadRow)
	}
	if m.Time.IsZero() {
		return BarMessage{}, fmt.Errorf("decode bar %s: %w: missing time", m.Symbol, market.ErrBadRow)
	}
	if m.Close <= 0 {
		return BarMessage{}, fmt.Errorf("decode bar %s: %w: close %v", m.Symbol, market.ErrBadRow, m.Close)
	}
	return m, nil
}

func (m BarMessage) Bar() market.Bar {
	return market.Bar{Time: m.Time, Close: m.Close}
}
