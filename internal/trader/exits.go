package trader

import (
	"context"

	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/metrics"
	"sinalbot/internal/pkg/trading"
	"sinalbot/internal/store"
	"sinalbot/internal/strategy/exit"
)

// sendTakeProfits submits the two partial take-profit tiers for a fresh
// position. Failures are logged and never retried.
func (t *Trader) sendTakeProfits(pos Position) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	f, err := t.filters.Resolve(ctx, pos.Symbol)
	if err != nil {
		logger.Errorf("take profits skipped %s %s: %v", pos.Symbol, pos.Side, err)
		return
	}
	plan := exit.TakeProfits(pos.Side, pos.EntryPrice, pos.Quantity, f, t.params)
	if plan.TP1 == nil && plan.TP2 == nil {
		logger.Warnf("take profits skipped %s %s: quantity rounds away", pos.Symbol, pos.Side)
		return
	}

	closeSide := pos.Side.CloseOrderSide()
	if plan.TP1 != nil {
		t.submitExit(ctx, "tp1", exchange.OrderRequest{
			Symbol:       pos.Symbol,
			Side:         closeSide,
			PositionSide: pos.Side,
			Type:         exchange.OrderTypeLimit,
			Quantity:     plan.TP1.Quantity,
			Price:        plan.TP1.Price,
		})
	} else {
		logger.Warnf("tp1 skipped %s %s: tier quantity rounds to zero", pos.Symbol, pos.Side)
	}
	if plan.TP2 != nil {
		t.submitExit(ctx, "tp2", exchange.OrderRequest{
			Symbol:       pos.Symbol,
			Side:         closeSide,
			PositionSide: pos.Side,
			Type:         exchange.OrderTypeLimit,
			Quantity:     plan.TP2.Quantity,
			Price:        plan.TP2.Price,
		})
	}

	store.Record(ctx, t.audit, store.TradeEvent{
		Type:   store.EventTakeProfitSent,
		Symbol: pos.Symbol,
		Side:   string(pos.Side),
		Payload: map[string]any{
			"entry":    pos.EntryPrice,
			"quantity": pos.Quantity,
		},
	})
}

// sendProtection moves the stop to break-even and arms the trailing
// stop. Each leg is attempted independently.
func (t *Trader) sendProtection(pos Position) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	f, err := t.filters.Resolve(ctx, pos.Symbol)
	if err != nil {
		logger.Errorf("protection skipped %s %s: %v", pos.Symbol, pos.Side, err)
		return
	}
	closeSide := pos.Side.CloseOrderSide()

	mark, err := t.exch.MarkPrice(ctx, pos.Symbol)
	if err != nil {
		logger.Errorf("break-even stop skipped %s %s: mark price: %v", pos.Symbol, pos.Side, err)
	} else if stop := exit.BreakEvenStop(pos.Side, pos.EntryPrice, mark, f.TickSize); stop > 0 {
		t.submitExit(ctx, "break_even", exchange.OrderRequest{
			Symbol:       pos.Symbol,
			Side:         closeSide,
			PositionSide: pos.Side,
			Type:         exchange.OrderTypeStopMarket,
			Quantity:     trading.Normalize(pos.Quantity, f.StepSize),
			StopPrice:    stop,
		})
	}

	trail := exit.Trailing(pos.Side, pos.EntryPrice, pos.Quantity, f, t.params)
	if trail.Quantity <= 0 {
		logger.Warnf("trailing stop skipped %s %s: quantity rounds away", pos.Symbol, pos.Side)
		return
	}
	t.submitExit(ctx, "trailing", exchange.OrderRequest{
		Symbol:          pos.Symbol,
		Side:            closeSide,
		PositionSide:    pos.Side,
		Type:            exchange.OrderTypeTrailingStopMarket,
		Quantity:        trail.Quantity,
		ActivationPrice: trail.ActivationPrice,
		CallbackRate:    trail.CallbackRate,
	})
}

func (t *Trader) submitExit(ctx context.Context, kind string, req exchange.OrderRequest) {
	ref, err := t.exch.CreateOrder(ctx, req)
	if err != nil {
		metrics.ExitOrderFailures.WithLabelValues(kind).Inc()
		logger.Errorf("%s order failed %s %s: %v", kind, req.Symbol, req.PositionSide, err)
		return
	}
	metrics.ExitOrders.WithLabelValues(kind).Inc()
	logger.Infof("%s order placed %s %s id=%d", kind, req.Symbol, req.PositionSide, ref.OrderID)
}
