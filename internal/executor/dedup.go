package executor

import (
	"fmt"
	"sync"
	"time"
)

// CandleID identifies the candle that contains now for the timeframe,
// in UTC. Signals landing inside the same candle produce the same id.
func CandleID(timeframe string, now time.Time) string {
	now = now.UTC()
	switch timeframe {
	case "15m":
		return fmt.Sprintf("%d%d%d%d%d", now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute()/15)
	case "1h":
		return fmt.Sprintf("%d%d%d%d", now.Year(), int(now.Month()), now.Day(), now.Hour())
	case "4h":
		return fmt.Sprintf("%d%d%d%d", now.Year(), int(now.Month()), now.Day(), now.Hour()/4)
	}
	return ""
}

// Dedup remembers the last candle each signal key fired in, so one
// candle never produces two entries for the same symbol, side and
// timeframe.
type Dedup struct {
	mu       sync.Mutex
	executed map[string]string
}

func NewDedup() *Dedup {
	return &Dedup{executed: make(map[string]string)}
}

func dedupKey(sig Signal) string {
	return fmt.Sprintf("%s_%s_%s", sig.Symbol, sig.Side, sig.Timeframe)
}

// Executed reports whether the signal key already fired in candleID.
func (d *Dedup) Executed(sig Signal, candleID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return candleID != "" && d.executed[dedupKey(sig)] == candleID
}

// MarkExecuted burns candleID for the signal key. Earlier candles are
// overwritten; only the latest one is remembered.
func (d *Dedup) MarkExecuted(sig Signal, candleID string) {
	if candleID == "" {
		return
	}
	d.mu.Lock()
	d.executed[dedupKey(sig)] = candleID
	d.mu.Unlock()
}
