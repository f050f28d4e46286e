package binance

import (
	"math"
	"strings"

	"sinalbot/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/futures"
)

func positionRiskDelta(p *futures.PositionRisk) (exchange.PositionDelta, bool) {
	amt := parseFloat(p.PositionAmt)
	if amt == 0 {
		return exchange.PositionDelta{}, false
	}
	side := exchange.PositionSide(strings.ToUpper(p.PositionSide))
	if !side.Valid() {
		// one-way mode reports BOTH; derive the leg from the sign
		if amt > 0 {
			side = exchange.PositionSideLong
		} else {
			side = exchange.PositionSideShort
		}
	}
	return exchange.PositionDelta{
		Symbol:     p.Symbol,
		Side:       side,
		Quantity:   math.Abs(amt),
		EntryPrice: parseFloat(p.EntryPrice),
	}, true
}

// convertUserDataEvent maps one ws frame to the gateway-neutral event.
// Frames other than ACCOUNT_UPDATE and ORDER_TRADE_UPDATE are dropped.
func convertUserDataEvent(ev *futures.WsUserDataEvent) (exchange.UserDataEvent, bool) {
	if ev == nil {
		return exchange.UserDataEvent{}, false
	}
	switch ev.Event {
	case futures.UserDataEventTypeAccountUpdate:
		update := &exchange.AccountUpdate{
			Positions: make([]exchange.PositionDelta, 0, len(ev.AccountUpdate.Positions)),
		}
		for _, pos := range ev.AccountUpdate.Positions {
			side := exchange.PositionSide(pos.Side)
			if pos.Symbol == "" || !side.Valid() {
				continue
			}
			update.Positions = append(update.Positions, exchange.PositionDelta{
				Symbol:     pos.Symbol,
				Side:       side,
				Quantity:   math.Abs(parseFloat(pos.Amount)),
				EntryPrice: parseFloat(pos.EntryPrice),
			})
		}
		if len(update.Positions) == 0 {
			return exchange.UserDataEvent{}, false
		}
		return exchange.UserDataEvent{Account: update}, true
	case futures.UserDataEventTypeOrderTradeUpdate:
		o := ev.OrderTradeUpdate
		side := exchange.PositionSide(o.PositionSide)
		if o.Symbol == "" || !side.Valid() {
			return exchange.UserDataEvent{}, false
		}
		return exchange.UserDataEvent{Order: &exchange.OrderDelta{
			Symbol:         o.Symbol,
			Side:           side,
			Status:         exchange.OrderStatus(o.Status),
			Type:           exchange.OrderType(o.Type),
			AveragePrice:   parseFloat(o.AveragePrice),
			FilledQuantity: parseFloat(o.AccumulatedFilledQty),
			OrderID:        o.ID,
		}}, true
	default:
		return exchange.UserDataEvent{}, false
	}
}
