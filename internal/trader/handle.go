package trader

import (
	"context"

	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/metrics"
	"sinalbot/internal/store"
)

func (t *Trader) applyPositionDelta(d exchange.PositionDelta) {
	if !d.Side.Valid() || d.Symbol == "" {
		return
	}
	key := positionKey(d.Symbol, d.Side)

	if d.Quantity == 0 {
		if _, ok := t.positions[key]; !ok {
			return
		}
		delete(t.positions, key)
		t.refreshSnapshot()
		metrics.OpenPositions.Set(float64(len(t.positions)))
		logger.Infof("position closed %s %s", d.Symbol, d.Side)
		return
	}

	if pos, ok := t.positions[key]; ok {
		pos.Quantity = d.Quantity
		if d.EntryPrice > 0 {
			pos.EntryPrice = d.EntryPrice
		}
		t.positions[key] = pos
		t.refreshSnapshot()
		return
	}

	t.openPosition(d.Symbol, d.Side, d.Quantity, d.EntryPrice)
}

func (t *Trader) applyOrderDelta(o exchange.OrderDelta) {
	if !o.Side.Valid() || o.Symbol == "" {
		return
	}
	key := positionKey(o.Symbol, o.Side)

	switch o.Status {
	case exchange.OrderStatusFilled:
		// A fill for a leg we already track is one of our own exit
		// orders completing; the ACCOUNT_UPDATE frame carries the
		// quantity change.
		if _, ok := t.positions[key]; ok {
			return
		}
		if o.FilledQuantity <= 0 || o.AveragePrice <= 0 {
			return
		}
		t.clearPendingLimits(o.Symbol, o.Side)
		t.record(store.TradeEvent{
			Type:   store.EventOrderFilled,
			Symbol: o.Symbol,
			Side:   string(o.Side),
			Payload: map[string]any{
				"order_id":  o.OrderID,
				"avg_price": o.AveragePrice,
				"quantity":  o.FilledQuantity,
			},
		})
		t.openPosition(o.Symbol, o.Side, o.FilledQuantity, o.AveragePrice)

	case exchange.OrderStatusPartiallyFilled:
		pos, ok := t.positions[key]
		if !ok {
			return
		}
		t.record(store.TradeEvent{
			Type:   store.EventPartialFill,
			Symbol: o.Symbol,
			Side:   string(o.Side),
			Payload: map[string]any{
				"order_id": o.OrderID,
				"filled":   o.FilledQuantity,
			},
		})
		if pos.TrailingSent {
			return
		}
		// The flag flips regardless of submission outcome so a burst of
		// partial-fill frames cannot stack protective orders.
		t.sendProtection(pos)
		pos.TrailingSent = true
		t.positions[key] = pos
		t.refreshSnapshot()
		t.record(store.TradeEvent{
			Type:   store.EventTrailingSent,
			Symbol: o.Symbol,
			Side:   string(o.Side),
			Payload: map[string]any{
				"entry": pos.EntryPrice,
			},
		})
	}
}

// openPosition inserts the new leg and submits its take-profit tiers.
// TPSent is set up front: submission failures are logged, not retried.
func (t *Trader) openPosition(symbol string, side exchange.PositionSide, qty, entry float64) {
	pos := Position{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: entry,
		TPSent:     true,
	}
	t.positions[positionKey(symbol, side)] = pos
	t.refreshSnapshot()
	metrics.OpenPositions.Set(float64(len(t.positions)))
	logger.Infof("position opened %s %s qty=%v entry=%v", symbol, side, qty, entry)
	t.sendTakeProfits(pos)
}

func (t *Trader) record(evt store.TradeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	store.Record(ctx, t.audit, evt)
}
