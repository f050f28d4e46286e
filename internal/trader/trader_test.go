package trader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sinalbot/internal/filters"
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/strategy/exit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	mu        sync.Mutex
	orders    []exchange.OrderRequest
	failTypes map[exchange.OrderType]bool
	mark      float64
	markErr   error
	positions []exchange.PositionDelta
}

func (f *fakeExchange) Name() string { return "fake" }

func (f *fakeExchange) CreateOrder(_ context.Context, req exchange.OrderRequest) (*exchange.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTypes[req.Type] {
		return nil, fmt.Errorf("rejected")
	}
	f.orders = append(f.orders, req)
	return &exchange.OrderRef{OrderID: int64(len(f.orders)), Status: exchange.OrderStatusNew}, nil
}

func (f *fakeExchange) MarkPrice(context.Context, string) (float64, error) {
	return f.mark, f.markErr
}

func (f *fakeExchange) RecentCloses(context.Context, string, string, int) ([]float64, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeExchange) OpenOrders(context.Context) ([]exchange.OpenOrder, error) {
	return nil, nil
}

func (f *fakeExchange) Positions(context.Context) ([]exchange.PositionDelta, error) {
	return f.positions, nil
}

func (f *fakeExchange) SetLeverage(context.Context, string, int) error { return nil }

func (f *fakeExchange) SetMarginType(context.Context, string, string) error { return nil }

func (f *fakeExchange) SetPositionMode(context.Context, bool) error { return nil }

func (f *fakeExchange) SymbolFilter(context.Context, string) (exchange.SymbolFilter, error) {
	return exchange.SymbolFilter{TickSize: 0.01, StepSize: 0.001}, nil
}

func (f *fakeExchange) ordersOfType(typ exchange.OrderType) []exchange.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []exchange.OrderRequest
	for _, o := range f.orders {
		if o.Type == typ {
			out = append(out, o)
		}
	}
	return out
}

var testParams = exit.Params{
	TakeProfitPercent:         1.0,
	PartialFraction:           0.5,
	TrailingActivationPercent: 5.0,
	TrailingCallbackRate:      1.0,
}

func newTestTrader(t *testing.T, exch *fakeExchange) *Trader {
	t.Helper()
	fc, err := filters.NewCache("", exch)
	require.NoError(t, err)
	return New(exch, fc, testParams, nil)
}

func accountUpdate(symbol string, side exchange.PositionSide, qty, entry float64) exchange.UserDataEvent {
	return exchange.UserDataEvent{Account: &exchange.AccountUpdate{
		Positions: []exchange.PositionDelta{{Symbol: symbol, Side: side, Quantity: qty, EntryPrice: entry}},
	}}
}

func TestNewPositionSendsTakeProfits(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0))

	require.True(t, tr.Snapshot().Has("BTCUSDT", exchange.PositionSideLong))
	limits := exch.ordersOfType(exchange.OrderTypeLimit)
	require.Len(t, limits, 2)
	assert.Equal(t, exchange.OrderSideSell, limits[0].Side)
	assert.InDelta(t, 101.0, limits[0].Price, 1e-9)
	assert.InDelta(t, 0.25, limits[0].Quantity, 1e-9)
	assert.InDelta(t, 102.0, limits[1].Price, 1e-9)
	assert.InDelta(t, 0.25, limits[1].Quantity, 1e-9)
}

func TestRepeatedAccountUpdateSendsNoDuplicateTakeProfits(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0))
	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.6, 101.0))

	assert.Len(t, exch.ordersOfType(exchange.OrderTypeLimit), 2)
	pos := tr.Snapshot().Positions()
	require.Len(t, pos, 1)
	assert.InDelta(t, 0.6, pos[0].Quantity, 1e-9)
	assert.InDelta(t, 101.0, pos[0].EntryPrice, 1e-9)
}

func TestZeroQuantityClosesPosition(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideShort, 0.5, 100.0))
	require.True(t, tr.Snapshot().Has("BTCUSDT", exchange.PositionSideShort))

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideShort, 0, 0))
	assert.False(t, tr.Snapshot().Has("BTCUSDT", exchange.PositionSideShort))
}

func TestPartialFillArmsProtectionOnce(t *testing.T) {
	exch := &fakeExchange{mark: 104.0}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0))
	partial := exchange.UserDataEvent{Order: &exchange.OrderDelta{
		Symbol: "BTCUSDT",
		Side:   exchange.PositionSideLong,
		Status: exchange.OrderStatusPartiallyFilled,
	}}
	tr.handleEvent(partial)
	tr.handleEvent(partial)

	stops := exch.ordersOfType(exchange.OrderTypeStopMarket)
	require.Len(t, stops, 1)
	// entry*1.002=100.2 vs mark*0.999=103.896: the entry stop stands
	assert.InDelta(t, 100.2, stops[0].StopPrice, 1e-9)
	assert.Equal(t, exchange.OrderSideSell, stops[0].Side)

	trails := exch.ordersOfType(exchange.OrderTypeTrailingStopMarket)
	require.Len(t, trails, 1)
	assert.InDelta(t, 105.0, trails[0].ActivationPrice, 1e-9)
	assert.InDelta(t, 1.0, trails[0].CallbackRate, 1e-9)
}

func TestPartialFillFailureStillFlipsFlag(t *testing.T) {
	exch := &fakeExchange{
		mark:      104.0,
		failTypes: map[exchange.OrderType]bool{exchange.OrderTypeTrailingStopMarket: true},
	}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0))
	partial := exchange.UserDataEvent{Order: &exchange.OrderDelta{
		Symbol: "BTCUSDT",
		Side:   exchange.PositionSideLong,
		Status: exchange.OrderStatusPartiallyFilled,
	}}
	tr.handleEvent(partial)
	tr.handleEvent(partial)

	// trailing rejected both times, but only one attempt is made
	assert.Empty(t, exch.ordersOfType(exchange.OrderTypeTrailingStopMarket))
	assert.Len(t, exch.ordersOfType(exchange.OrderTypeStopMarket), 1)
}

func TestPartialFillForUnknownLegIgnored(t *testing.T) {
	exch := &fakeExchange{mark: 104.0}
	tr := newTestTrader(t, exch)

	tr.handleEvent(exchange.UserDataEvent{Order: &exchange.OrderDelta{
		Symbol: "BTCUSDT",
		Side:   exchange.PositionSideLong,
		Status: exchange.OrderStatusPartiallyFilled,
	}})
	assert.Empty(t, exch.ordersOfType(exchange.OrderTypeStopMarket))
}

func TestFilledOrderOpensPositionAndClearsPending(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)
	tr.TrackPendingLimit(PendingLimit{
		Symbol:    "ETHUSDT",
		Side:      exchange.PositionSideShort,
		Timeframe: "15m",
		OrderID:   7,
		Price:     2000,
	})

	tr.handleEvent(exchange.UserDataEvent{Order: &exchange.OrderDelta{
		Symbol:         "ETHUSDT",
		Side:           exchange.PositionSideShort,
		Status:         exchange.OrderStatusFilled,
		Type:           exchange.OrderTypeLimit,
		AveragePrice:   2000,
		FilledQuantity: 0.1,
		OrderID:        7,
	}})

	assert.True(t, tr.Snapshot().Has("ETHUSDT", exchange.PositionSideShort))
	assert.Empty(t, tr.PendingLimits())
	assert.Len(t, exch.ordersOfType(exchange.OrderTypeLimit), 2)
}

func TestFilledOrderForTrackedLegIgnored(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0))
	before := len(exch.ordersOfType(exchange.OrderTypeLimit))

	// an exit fill reports FILLED on the same leg; no new position
	tr.handleEvent(exchange.UserDataEvent{Order: &exchange.OrderDelta{
		Symbol:         "BTCUSDT",
		Side:           exchange.PositionSideLong,
		Status:         exchange.OrderStatusFilled,
		AveragePrice:   101,
		FilledQuantity: 0.25,
	}})
	assert.Len(t, exch.ordersOfType(exchange.OrderTypeLimit), before)
}

func TestBootstrapAssumesExitsPlaced(t *testing.T) {
	exch := &fakeExchange{positions: []exchange.PositionDelta{
		{Symbol: "BTCUSDT", Side: exchange.PositionSideLong, Quantity: 0.5, EntryPrice: 100},
		{Symbol: "ETHUSDT", Side: exchange.PositionSideShort, Quantity: 1, EntryPrice: 2000},
	}}
	tr := newTestTrader(t, exch)

	require.NoError(t, tr.Bootstrap(context.Background()))
	assert.True(t, tr.Snapshot().Has("BTCUSDT", exchange.PositionSideLong))
	assert.True(t, tr.Snapshot().Has("ETHUSDT", exchange.PositionSideShort))
	// no take profits fired for pre-existing positions
	assert.Empty(t, exch.ordersOfType(exchange.OrderTypeLimit))
}

func TestSnapshotCounts(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)

	tr.handleEvent(accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0))
	tr.handleEvent(accountUpdate("ETHUSDT", exchange.PositionSideShort, 1, 2000.0))
	tr.handleEvent(accountUpdate("ETHUSDT", exchange.PositionSideLong, 1, 2000.0))

	exp := tr.Snapshot().Counts()
	assert.Equal(t, 3, exp.Total)
	assert.Equal(t, 2, exp.Long)
	assert.Equal(t, 1, exp.Short)
	assert.Equal(t, SideCounts{Long: 1, Short: 1}, exp.PerSymbol["ETHUSDT"])
}

func TestStartStopDeliversEvents(t *testing.T) {
	exch := &fakeExchange{}
	tr := newTestTrader(t, exch)
	tr.Start()
	defer tr.Stop()

	tr.Events() <- accountUpdate("BTCUSDT", exchange.PositionSideLong, 0.5, 100.0)
	require.Eventually(t, func() bool {
		return tr.Snapshot().Has("BTCUSDT", exchange.PositionSideLong)
	}, 2*time.Second, 10*time.Millisecond)
}
