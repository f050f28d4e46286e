// Package store defines the audit trail written by the signal executor
// and the exit machine.
package store

import (
	"context"
	"time"

	"sinalbot/internal/logger"
)

// Event types appended to the trail.
const (
	EventSignalReceived = "SIGNAL_RECEIVED"
	EventSignalSkipped  = "SIGNAL_SKIPPED"
	EventOrderSent      = "ORDER_SENT"
	EventOrderFailed    = "ORDER_FAILED"
	EventOrderFilled    = "ORDER_FILLED"
	EventPartialFill    = "PARTIAL_FILL"
	EventTakeProfitSent = "TP_SENT"
	EventTrailingSent   = "TRAILING_SENT"
)

// TradeEvent is one audit entry. Payload carries the free-form details
// of the event and is stored as JSON.
type TradeEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Symbol    string         `json:"symbol"`
	Side      string         `json:"side,omitempty"`
	Timeframe string         `json:"timeframe,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Recorder appends and reads audit events. Implementations must be safe
// for concurrent use.
type Recorder interface {
	Append(ctx context.Context, evt TradeEvent) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]TradeEvent, error)
}

// Record appends evt, tolerating a nil recorder and logging failures.
// The audit trail never blocks or fails the trading path.
func Record(ctx context.Context, r Recorder, evt TradeEvent) {
	if r == nil {
		return
	}
	if err := r.Append(ctx, evt); err != nil {
		logger.Warnf("audit append failed type=%s symbol=%s: %v", evt.Type, evt.Symbol, err)
	}
}
