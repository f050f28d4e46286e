package executor

import (
	"context"
	"fmt"

	"sinalbot/internal/filters"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/pkg/trading"

	"github.com/markcheno/go-talib"
)

// referenceCandles is how many klines back the reference price looks:
// the still-forming candle plus the eight closed ones it averages.
const referenceCandles = 9

// Sizing are the order-sizing constants shared by every instrument.
type Sizing struct {
	MaxNotionalUSDT float64
	Leverage        int
}

type marketData interface {
	RecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
}

// Sizer derives the reference price and the order quantity for one
// entry.
type Sizer struct {
	market  marketData
	filters *filters.Cache
	cfg     Sizing
}

func NewSizer(market marketData, fc *filters.Cache, cfg Sizing) *Sizer {
	return &Sizer{market: market, filters: fc, cfg: cfg}
}

// ReferencePrice is the 8-period mean of the closed candles before the
// forming one, floored to the tick grid.
func (s *Sizer) ReferencePrice(ctx context.Context, symbol, timeframe string) (float64, error) {
	interval, ok := intervals[timeframe]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	closes, err := s.market.RecentCloses(ctx, symbol, interval, referenceCandles)
	if err != nil {
		return 0, fmt.Errorf("fetch closes for %s: %w", symbol, err)
	}
	if len(closes) < referenceCandles {
		return 0, fmt.Errorf("reference price for %s: need %d candles, got %d", symbol, referenceCandles, len(closes))
	}
	closes = closes[len(closes)-referenceCandles:]

	// index 7 averages closes[0..7], leaving the forming candle out
	sma := talib.Sma(closes, referenceCandles-1)
	price := sma[referenceCandles-2]
	if price <= 0 {
		return 0, fmt.Errorf("reference price for %s: non-positive mean", symbol)
	}

	f, err := s.filters.Resolve(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return trading.Normalize(price, f.TickSize), nil
}

// Quantity converts the fixed notional at the configured leverage to
// contracts, floored to the step grid.
func (s *Sizer) Quantity(ctx context.Context, symbol string, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("quantity for %s: price must be positive", symbol)
	}
	f, err := s.filters.Resolve(ctx, symbol)
	if err != nil {
		return 0, err
	}
	notional := s.cfg.MaxNotionalUSDT * float64(s.cfg.Leverage)
	qty := trading.Normalize(notional/price, f.StepSize)
	if qty <= 0 {
		return 0, fmt.Errorf("quantity for %s rounds to zero at price %v", symbol, price)
	}
	return qty, nil
}

var _ marketData = (exchange.Exchange)(nil)
