// Package trader owns the in-memory position state. A single event loop
// consumes user-data frames, mutates the table and submits the exit
// orders; every other goroutine reads through immutable snapshots.
package trader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sinalbot/internal/filters"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/metrics"
	"sinalbot/internal/store"
	"sinalbot/internal/strategy/exit"
)

const (
	eventBuffer      = 256
	slowEventWarning = 3 * time.Second
	remoteTimeout    = 15 * time.Second
)

// Trader applies position and order deltas to the state table and
// drives the exit machine. Only the run loop touches positions.
type Trader struct {
	exch    exchange.Exchange
	filters *filters.Cache
	params  exit.Params
	audit   store.Recorder

	events   chan exchange.UserDataEvent
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	positions map[string]Position
	snapshot  atomic.Value // *Snapshot

	pendingMu sync.Mutex
	pending   map[string]PendingLimit
}

func New(exch exchange.Exchange, fc *filters.Cache, params exit.Params, audit store.Recorder) *Trader {
	t := &Trader{
		exch:      exch,
		filters:   fc,
		params:    params,
		audit:     audit,
		events:    make(chan exchange.UserDataEvent, eventBuffer),
		stopCh:    make(chan struct{}),
		positions: make(map[string]Position),
		pending:   make(map[string]PendingLimit),
	}
	t.refreshSnapshot()
	return t
}

// Events is the sink the user-data stream writes into.
func (t *Trader) Events() chan<- exchange.UserDataEvent {
	return t.events
}

// Bootstrap replaces the position table with the exchange's REST
// snapshot. Positions found here predate the process, so their exit
// orders are assumed placed and only the trailing stage stays armed.
func (t *Trader) Bootstrap(ctx context.Context) error {
	deltas, err := t.exch.Positions(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap positions: %w", err)
	}
	t.positions = make(map[string]Position, len(deltas))
	for _, d := range deltas {
		if d.Quantity <= 0 || !d.Side.Valid() {
			continue
		}
		t.positions[positionKey(d.Symbol, d.Side)] = Position{
			Symbol:       d.Symbol,
			Side:         d.Side,
			Quantity:     d.Quantity,
			EntryPrice:   d.EntryPrice,
			TPSent:       true,
			TrailingSent: false,
		}
	}
	t.refreshSnapshot()
	metrics.OpenPositions.Set(float64(len(t.positions)))
	logger.Infof("position table bootstrapped: %d open legs", len(t.positions))
	return nil
}

func (t *Trader) Start() {
	t.wg.Add(1)
	go t.run()
}

func (t *Trader) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	t.wg.Wait()
}

func (t *Trader) run() {
	defer t.wg.Done()
	for {
		select {
		case ev := <-t.events:
			t.handleEvent(ev)
		case <-t.stopCh:
			return
		}
	}
}

func (t *Trader) handleEvent(ev exchange.UserDataEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("trader event handler panicked: %v", r)
		}
	}()
	start := time.Now()
	switch {
	case ev.Account != nil:
		for _, d := range ev.Account.Positions {
			t.applyPositionDelta(d)
		}
	case ev.Order != nil:
		t.applyOrderDelta(*ev.Order)
	}
	if elapsed := time.Since(start); elapsed > slowEventWarning {
		logger.Warnf("trader event took %s", elapsed)
	}
}

// Snapshot returns the latest published view of the position table.
func (t *Trader) Snapshot() *Snapshot {
	snap, _ := t.snapshot.Load().(*Snapshot)
	return snap
}

// HasPosition reports whether a position is open on the leg.
func (t *Trader) HasPosition(symbol string, side exchange.PositionSide) bool {
	return t.Snapshot().Has(symbol, side)
}

// Exposure tallies the open legs for the entry limiter.
func (t *Trader) Exposure() Exposure {
	return t.Snapshot().Counts()
}

func (t *Trader) refreshSnapshot() {
	copied := make(map[string]Position, len(t.positions))
	for k, v := range t.positions {
		copied[k] = v
	}
	t.snapshot.Store(&Snapshot{positions: copied})
}

// TrackPendingLimit registers a resting LIMIT entry so its fill can be
// matched later. Called from the signal path right after submission.
func (t *Trader) TrackPendingLimit(p PendingLimit) {
	t.pendingMu.Lock()
	t.pending[pendingKey(p.Symbol, p.Side, p.Timeframe)] = p
	t.pendingMu.Unlock()
}

// PendingLimits returns the tracked resting entries.
func (t *Trader) PendingLimits() []PendingLimit {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	out := make([]PendingLimit, 0, len(t.pending))
	for _, p := range t.pending {
		out = append(out, p)
	}
	return out
}

// clearPendingLimits drops every tracked entry for the leg, any
// timeframe.
func (t *Trader) clearPendingLimits(symbol string, side exchange.PositionSide) {
	t.pendingMu.Lock()
	for key, p := range t.pending {
		if positionKey(p.Symbol, p.Side) == positionKey(symbol, side) {
			delete(t.pending, key)
		}
	}
	t.pendingMu.Unlock()
}
