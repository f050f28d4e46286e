package executor

import (
	"context"
	"fmt"
	"time"

	"sinalbot/internal/filters"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/metrics"
	"sinalbot/internal/store"
	"sinalbot/internal/trader"
)

// Outcome classifies how a signal was handled. Skips are normal
// operation, not errors.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeSimulated      Outcome = "simulated"
	OutcomeRejected       Outcome = "rejected"
	OutcomeDedup          Outcome = "dedup"
	OutcomePositionExists Outcome = "position_exists"
	OutcomeExposure       Outcome = "exposure"
	OutcomePriceCeiling   Outcome = "price_ceiling"
	OutcomeError          Outcome = "error"
)

// Config holds the executor's trading constants.
type Config struct {
	Enabled         bool
	DryRun          bool
	Leverage        int
	MaxNotionalUSDT float64
	MaxAllowedPrice float64
	MarginType      string
	Caps            Caps
}

// PositionState is the read side of the trader's state table plus the
// pending-limit registration hook.
type PositionState interface {
	HasPosition(symbol string, side exchange.PositionSide) bool
	Exposure() trader.Exposure
	TrackPendingLimit(trader.PendingLimit)
}

// Executor runs the signal-to-order pipeline. Safe for concurrent use;
// signals for the same symbol serialize on the symbol lock.
type Executor struct {
	exch    exchange.Exchange
	sizer   *Sizer
	limiter *Limiter
	dedup   *Dedup
	locks   *symbolLocks
	state   PositionState
	audit   store.Recorder
	cfg     Config

	now func() time.Time
}

func New(exch exchange.Exchange, fc *filters.Cache, state PositionState, audit store.Recorder, cfg Config) *Executor {
	return &Executor{
		exch:    exch,
		sizer:   NewSizer(exch, fc, Sizing{MaxNotionalUSDT: cfg.MaxNotionalUSDT, Leverage: cfg.Leverage}),
		limiter: NewLimiter(exch, cfg.Caps),
		dedup:   NewDedup(),
		locks:   newSymbolLocks(),
		state:   state,
		audit:   audit,
		cfg:     cfg,
		now:     time.Now,
	}
}

// HandleSignal walks one signal through the gatekeeping checks and, if
// it survives, places the entry order.
func (e *Executor) HandleSignal(ctx context.Context, sig Signal) Outcome {
	if err := sig.Normalize(); err != nil {
		logger.Warnf("signal rejected: %v", err)
		metrics.Signals.WithLabelValues(string(OutcomeRejected)).Inc()
		return OutcomeRejected
	}

	unlock := e.locks.lock(sig.Symbol)
	defer unlock()

	store.Record(ctx, e.audit, store.TradeEvent{
		Type:      store.EventSignalReceived,
		Symbol:    sig.Symbol,
		Side:      string(sig.Side),
		Timeframe: sig.Timeframe,
		Payload:   map[string]any{"order_type": string(sig.OrderType)},
	})

	if e.cfg.MaxAllowedPrice > 0 {
		mark, err := e.exch.MarkPrice(ctx, sig.Symbol)
		if err != nil {
			return e.skip(ctx, sig, OutcomePriceCeiling, fmt.Sprintf("mark price unavailable: %v", err))
		}
		if mark > e.cfg.MaxAllowedPrice {
			return e.skip(ctx, sig, OutcomePriceCeiling, fmt.Sprintf("mark %v above ceiling %v", mark, e.cfg.MaxAllowedPrice))
		}
	}

	candleID := CandleID(sig.Timeframe, e.now())
	if e.dedup.Executed(sig, candleID) {
		return e.skip(ctx, sig, OutcomeDedup, fmt.Sprintf("already fired in candle %s", candleID))
	}

	if e.state.HasPosition(sig.Symbol, sig.Side) {
		return e.skip(ctx, sig, OutcomePositionExists, "position already open on this leg")
	}

	if ok, reason := e.limiter.Allows(ctx, e.state.Exposure(), sig.Symbol, sig.Side); !ok {
		return e.skip(ctx, sig, OutcomeExposure, reason)
	}

	if !e.cfg.Enabled || e.cfg.DryRun {
		logger.Infof("[simulated] %s %s %s %s", sig.Symbol, sig.Side, sig.OrderType, sig.Timeframe)
		metrics.Signals.WithLabelValues(string(OutcomeSimulated)).Inc()
		return OutcomeSimulated
	}

	// Both calls answer with an error when nothing needs changing, so
	// failures only get a debug line.
	if err := e.exch.SetMarginType(ctx, sig.Symbol, e.cfg.MarginType); err != nil {
		logger.Debugf("set margin type %s %s: %v", sig.Symbol, e.cfg.MarginType, err)
	}
	if err := e.exch.SetLeverage(ctx, sig.Symbol, e.cfg.Leverage); err != nil {
		logger.Warnf("set leverage %s %d: %v", sig.Symbol, e.cfg.Leverage, err)
	}

	price, err := e.sizer.ReferencePrice(ctx, sig.Symbol, sig.Timeframe)
	if err != nil {
		return e.fail(ctx, sig, err)
	}
	qty, err := e.sizer.Quantity(ctx, sig.Symbol, price)
	if err != nil {
		return e.fail(ctx, sig, err)
	}

	req := exchange.OrderRequest{
		Symbol:        sig.Symbol,
		Side:          sig.Side.EntryOrderSide(),
		PositionSide:  sig.Side,
		Type:          sig.OrderType,
		Quantity:      qty,
		ClientOrderID: fmt.Sprintf("mm8_%s_%s_%s", sig.Symbol, sig.Side, candleID),
	}
	if sig.OrderType == exchange.OrderTypeLimit {
		req.Price = price
	}

	outcome := OutcomeAccepted
	ref, err := e.exch.CreateOrder(ctx, req)
	if err != nil {
		logger.Errorf("entry order failed %s %s %s: %v", sig.Symbol, sig.Side, sig.OrderType, err)
		metrics.Signals.WithLabelValues(string(OutcomeError)).Inc()
		store.Record(ctx, e.audit, store.TradeEvent{
			Type:      store.EventOrderFailed,
			Symbol:    sig.Symbol,
			Side:      string(sig.Side),
			Timeframe: sig.Timeframe,
			Payload:   map[string]any{"error": err.Error()},
		})
		outcome = OutcomeError
	} else {
		logger.Infof("entry order placed %s %s %s qty=%v price=%v id=%d",
			sig.Symbol, sig.Side, sig.OrderType, qty, price, ref.OrderID)
		metrics.Signals.WithLabelValues(string(OutcomeAccepted)).Inc()
		metrics.OrdersSubmitted.WithLabelValues(string(sig.OrderType), string(sig.Side)).Inc()
		store.Record(ctx, e.audit, store.TradeEvent{
			Type:      store.EventOrderSent,
			Symbol:    sig.Symbol,
			Side:      string(sig.Side),
			Timeframe: sig.Timeframe,
			Payload: map[string]any{
				"order_id":   ref.OrderID,
				"order_type": string(sig.OrderType),
				"quantity":   qty,
				"price":      price,
			},
		})
		if sig.OrderType == exchange.OrderTypeLimit {
			e.state.TrackPendingLimit(trader.PendingLimit{
				Symbol:         sig.Symbol,
				Side:           sig.Side,
				Timeframe:      sig.Timeframe,
				OrderID:        ref.OrderID,
				Price:          price,
				OriginCandleID: candleID,
			})
		}
	}

	// The candle burns whether or not the exchange took the order; a
	// rejected submission is not retried within the same candle.
	e.dedup.MarkExecuted(sig, candleID)
	return outcome
}

func (e *Executor) skip(ctx context.Context, sig Signal, outcome Outcome, reason string) Outcome {
	logger.Infof("signal skipped %s %s %s: %s", sig.Symbol, sig.Side, sig.Timeframe, reason)
	metrics.Signals.WithLabelValues(string(outcome)).Inc()
	store.Record(ctx, e.audit, store.TradeEvent{
		Type:      store.EventSignalSkipped,
		Symbol:    sig.Symbol,
		Side:      string(sig.Side),
		Timeframe: sig.Timeframe,
		Payload:   map[string]any{"outcome": string(outcome), "reason": reason},
	})
	return outcome
}

func (e *Executor) fail(ctx context.Context, sig Signal, err error) Outcome {
	logger.Errorf("signal aborted %s %s %s: %v", sig.Symbol, sig.Side, sig.Timeframe, err)
	metrics.Signals.WithLabelValues(string(OutcomeError)).Inc()
	store.Record(ctx, e.audit, store.TradeEvent{
		Type:      store.EventOrderFailed,
		Symbol:    sig.Symbol,
		Side:      string(sig.Side),
		Timeframe: sig.Timeframe,
		Payload:   map[string]any{"error": err.Error()},
	})
	return OutcomeError
}
