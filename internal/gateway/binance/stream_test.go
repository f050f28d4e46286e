package binance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sinalbot/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	key     string
	handler futures.WsUserDataHandler
	doneC   chan struct{}
	stopC   chan struct{}
	done    sync.Once
}

// drop simulates the server closing the connection.
func (c *fakeConn) drop() { c.done.Do(func() { close(c.doneC) }) }

type fakeStreamServer struct {
	mu       sync.Mutex
	conns    []*fakeConn
	attempts int
	refuse   int
	keySeq   int
	renews   int
}

func (f *fakeStreamServer) serve(key string, handler futures.WsUserDataHandler, _ futures.ErrHandler) (chan struct{}, chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.refuse > 0 {
		f.refuse--
		return nil, nil, errors.New("connection refused")
	}
	conn := &fakeConn{
		key:     key,
		handler: handler,
		doneC:   make(chan struct{}),
		stopC:   make(chan struct{}),
	}
	go func() {
		<-conn.stopC
		conn.drop()
	}()
	f.conns = append(f.conns, conn)
	return conn.doneC, conn.stopC, nil
}

func (f *fakeStreamServer) newKey(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keySeq++
	return fmt.Sprintf("key-%d", f.keySeq), nil
}

func (f *fakeStreamServer) renew(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renews++
	return nil
}

func (f *fakeStreamServer) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *fakeStreamServer) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

func (f *fakeStreamServer) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeStreamServer) renewCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renews
}

func newTestStream(f *fakeStreamServer) *Stream {
	return &Stream{
		serve:          f.serve,
		newListenKey:   f.newKey,
		renewListenKey: f.renew,
		retryDelay:     5 * time.Millisecond,
		keepaliveEvery: 5 * time.Millisecond,
	}
}

func TestStreamReconnectsAfterConnectionDrop(t *testing.T) {
	f := &fakeStreamServer{}
	s := newTestStream(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan exchange.UserDataEvent, 8)

	runDone := make(chan struct{})
	go func() {
		s.Run(ctx, events)
		close(runDone)
	}()

	require.Eventually(t, func() bool { return f.connCount() >= 1 }, time.Second, time.Millisecond)
	f.conn(0).drop()
	require.Eventually(t, func() bool { return f.connCount() >= 2 }, time.Second, time.Millisecond)

	// the renewal task survives the reconnect
	before := f.renewCount()
	require.Eventually(t, func() bool { return f.renewCount() > before }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on context cancellation")
	}
}

func TestStreamRefreshesListenKeyOnReconnect(t *testing.T) {
	f := &fakeStreamServer{}
	s := newTestStream(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan exchange.UserDataEvent, 8)
	go s.Run(ctx, events)

	require.Eventually(t, func() bool { return f.connCount() >= 1 }, time.Second, time.Millisecond)
	require.Equal(t, "key-1", f.conn(0).key)

	f.conn(0).drop()
	require.Eventually(t, func() bool { return f.connCount() >= 2 }, time.Second, time.Millisecond)
	require.Equal(t, "key-2", f.conn(1).key)
}

func TestStreamRetriesRefusedConnect(t *testing.T) {
	f := &fakeStreamServer{refuse: 2}
	s := newTestStream(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan exchange.UserDataEvent, 8)
	go s.Run(ctx, events)

	require.Eventually(t, func() bool { return f.connCount() >= 1 }, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, f.attemptCount(), 3)
}

func TestStreamForwardsOrderFrames(t *testing.T) {
	f := &fakeStreamServer{}
	s := newTestStream(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan exchange.UserDataEvent, 8)
	go s.Run(ctx, events)

	require.Eventually(t, func() bool { return f.connCount() >= 1 }, time.Second, time.Millisecond)
	handler := f.conn(0).handler

	// unknown frames are dropped before the channel
	handler(&futures.WsUserDataEvent{Event: futures.UserDataEventTypeMarginCall})
	handler(&futures.WsUserDataEvent{
		Event: futures.UserDataEventTypeOrderTradeUpdate,
		WsUserDataOrderTradeUpdate: futures.WsUserDataOrderTradeUpdate{OrderTradeUpdate: futures.WsOrderTradeUpdate{
			Symbol:               "BTCUSDT",
			PositionSide:         futures.PositionSideTypeLong,
			Status:               futures.OrderStatusTypeFilled,
			Type:                 futures.OrderTypeMarket,
			AveragePrice:         "65000",
			AccumulatedFilledQty: "0.5",
		}},
	})

	select {
	case evt := <-events:
		require.NotNil(t, evt.Order)
		require.Equal(t, "BTCUSDT", evt.Order.Symbol)
		require.Equal(t, exchange.OrderStatusFilled, evt.Order.Status)
	case <-time.After(time.Second):
		t.Fatal("no event forwarded")
	}
	require.Empty(t, events)
}
