package executor

import (
	"context"
	"fmt"
	"strings"

	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/trader"
)

// Caps bound the merged exposure: tracked positions plus resting entry
// orders. A zero cap disables its check.
type Caps struct {
	MaxOpen  int
	MaxLong  int
	MaxShort int
}

type openOrderLister interface {
	OpenOrders(ctx context.Context) ([]exchange.OpenOrder, error)
}

// Limiter gates new entries on total exposure. The open-order query
// fails open: when the exchange cannot be asked, only the tracked
// positions count.
type Limiter struct {
	orders openOrderLister
	caps   Caps
}

func NewLimiter(orders openOrderLister, caps Caps) *Limiter {
	return &Limiter{orders: orders, caps: caps}
}

// Allows merges the position exposure with the live entry orders and
// checks the caps. The returned reason is empty when the entry passes.
func (l *Limiter) Allows(ctx context.Context, exp trader.Exposure, symbol string, side exchange.PositionSide) (bool, string) {
	total, long, short := exp.Total, exp.Long, exp.Short

	open, err := l.orders.OpenOrders(ctx)
	if err != nil {
		logger.Warnf("open orders unavailable, counting none: %v", err)
		open = nil
	}
	for _, o := range open {
		if !isEntryOrder(o) {
			continue
		}
		if strings.EqualFold(o.Symbol, symbol) && o.PositionSide == side {
			return false, "entry order already resting for this leg"
		}
		total++
		if o.PositionSide == exchange.PositionSideLong {
			long++
		} else {
			short++
		}
	}

	if l.caps.MaxOpen > 0 && total >= l.caps.MaxOpen {
		return false, fmt.Sprintf("open exposure %d at cap %d", total, l.caps.MaxOpen)
	}
	if side == exchange.PositionSideLong && l.caps.MaxLong > 0 && long >= l.caps.MaxLong {
		return false, fmt.Sprintf("long exposure %d at cap %d", long, l.caps.MaxLong)
	}
	if side == exchange.PositionSideShort && l.caps.MaxShort > 0 && short >= l.caps.MaxShort {
		return false, fmt.Sprintf("short exposure %d at cap %d", short, l.caps.MaxShort)
	}
	return true, ""
}

// isEntryOrder selects the resting orders that still occupy an entry
// slot: not reduce-only and not yet terminal.
func isEntryOrder(o exchange.OpenOrder) bool {
	if o.ReduceOnly {
		return false
	}
	return o.Status == exchange.OrderStatusNew || o.Status == exchange.OrderStatusPartiallyFilled
}
