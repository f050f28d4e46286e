package binance

import (
	"context"
	"sync"
	"time"

	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/logger"
	"sinalbot/internal/metrics"

	"github.com/adshao/go-binance/v2/futures"
)

const (
	keepaliveInterval = 1800 * time.Second
	reconnectDelay    = 5 * time.Second
)

// serveFunc matches futures.WsUserDataServe so tests can stand in a
// fake connection.
type serveFunc func(listenKey string, handler futures.WsUserDataHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error)

// Stream maintains the user-data stream: one listen key, renewed every
// 30 minutes, and a ws connection that reconnects after a fixed delay
// for as long as the context lives. The key is refreshed before each
// reconnect; the server invalidates keys that miss their keepalives,
// and reusing a dead one would strand the loop.
type Stream struct {
	serve          serveFunc
	newListenKey   func(ctx context.Context) (string, error)
	renewListenKey func(ctx context.Context, key string) error

	retryDelay     time.Duration
	keepaliveEvery time.Duration

	mu        sync.Mutex
	listenKey string
}

func NewStream(g *Gateway) *Stream {
	client := g.client
	return &Stream{
		serve: futures.WsUserDataServe,
		newListenKey: func(ctx context.Context) (string, error) {
			return client.NewStartUserStreamService().Do(ctx)
		},
		renewListenKey: func(ctx context.Context, key string) error {
			return client.NewKeepaliveUserStreamService().ListenKey(key).Do(ctx)
		},
		retryDelay:     reconnectDelay,
		keepaliveEvery: keepaliveInterval,
	}
}

func (s *Stream) Run(ctx context.Context, events chan<- exchange.UserDataEvent) {
	if !s.acquireListenKey(ctx) {
		return
	}
	logger.Infof("[ws] listen key obtained")
	go s.keepaliveLoop(ctx)
	s.serveLoop(ctx, events)
}

func (s *Stream) acquireListenKey(ctx context.Context) bool {
	for {
		key, err := s.newListenKey(ctx)
		if err == nil && key != "" {
			s.setListenKey(key)
			return true
		}
		logger.Errorf("[ws] listen key request failed: %v", err)
		if !sleepWithContext(ctx, s.retryDelay) {
			return false
		}
	}
}

func (s *Stream) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(s.keepaliveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.renewListenKey(ctx, s.currentListenKey()); err != nil {
				metrics.KeepaliveFailures.Inc()
				logger.Errorf("[ws] keepalive failed: %v", err)
			}
		}
	}
}

func (s *Stream) serveLoop(ctx context.Context, out chan<- exchange.UserDataEvent) {
	for {
		if ctx.Err() != nil {
			return
		}
		var errMu sync.Mutex
		var lastErr error
		handler := func(ev *futures.WsUserDataEvent) {
			converted, ok := convertUserDataEvent(ev)
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
			case out <- converted:
			}
		}
		errHandler := func(err error) {
			if err == nil {
				return
			}
			errMu.Lock()
			lastErr = err
			errMu.Unlock()
		}
		doneC, stopC, err := s.serve(s.currentListenKey(), handler, errHandler)
		if err != nil {
			metrics.StreamReconnects.Inc()
			logger.Errorf("[ws] connect failed: %v, retrying in %s", err, s.retryDelay)
			if !sleepWithContext(ctx, s.retryDelay) {
				return
			}
			s.refreshListenKey(ctx)
			continue
		}
		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return
		case <-doneC:
		}
		close(stopC)
		errMu.Lock()
		errCopy := lastErr
		errMu.Unlock()
		metrics.StreamReconnects.Inc()
		logger.Warnf("[ws] connection closed (err=%v), reconnecting in %s", errCopy, s.retryDelay)
		if !sleepWithContext(ctx, s.retryDelay) {
			return
		}
		s.refreshListenKey(ctx)
	}
}

// refreshListenKey swaps in a fresh key before the next connect attempt.
// On failure the current key is kept; the attempt may still succeed if
// the key is alive.
func (s *Stream) refreshListenKey(ctx context.Context) {
	key, err := s.newListenKey(ctx)
	if err != nil || key == "" {
		logger.Warnf("[ws] listen key refresh failed, keeping current: %v", err)
		return
	}
	s.setListenKey(key)
}

func (s *Stream) setListenKey(key string) {
	s.mu.Lock()
	s.listenKey = key
	s.mu.Unlock()
}

func (s *Stream) currentListenKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenKey
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
