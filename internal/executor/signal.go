// Package executor turns validated entry signals into exchange orders,
// applying the per-candle dedup, the exposure caps and the sizing rules
// along the way.
package executor

import (
	"fmt"
	"strings"

	"sinalbot/internal/gateway/exchange"
)

// intervals maps the accepted signal timeframes to kline intervals.
var intervals = map[string]string{
	"15m": "15m",
	"1h":  "1h",
	"4h":  "4h",
}

// Signal is one normalized entry alert.
type Signal struct {
	Symbol    string
	Side      exchange.PositionSide
	OrderType exchange.OrderType
	Timeframe string
}

// Normalize uppercases the symbol, defaults the order type to MARKET
// and validates every field.
func (s *Signal) Normalize() error {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if s.Symbol == "" {
		return fmt.Errorf("signal: symbol is required")
	}
	if !s.Side.Valid() {
		return fmt.Errorf("signal: side must be LONG or SHORT, got %q", s.Side)
	}
	if s.OrderType == "" {
		s.OrderType = exchange.OrderTypeMarket
	}
	if s.OrderType != exchange.OrderTypeMarket && s.OrderType != exchange.OrderTypeLimit {
		return fmt.Errorf("signal: order type must be MARKET or LIMIT, got %q", s.OrderType)
	}
	s.Timeframe = strings.ToLower(strings.TrimSpace(s.Timeframe))
	if _, ok := intervals[s.Timeframe]; !ok {
		return fmt.Errorf("signal: unsupported timeframe %q", s.Timeframe)
	}
	return nil
}
