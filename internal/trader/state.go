package trader

import (
	"fmt"
	"strings"

	"sinalbot/internal/gateway/exchange"
)

// Position is one tracked hedge-mode leg. The exit flags are one-way:
// once set they stay set for the life of the position, so a repeated
// stream frame never re-submits an exit order.
type Position struct {
	Symbol       string
	Side         exchange.PositionSide
	Quantity     float64
	EntryPrice   float64
	TPSent       bool
	TrailingSent bool
}

// PendingLimit tracks a resting LIMIT entry order awaiting its fill.
type PendingLimit struct {
	Symbol         string
	Side           exchange.PositionSide
	Timeframe      string
	OrderID        int64
	Price          float64
	OriginCandleID string
	CandlesElapsed int
}

func positionKey(symbol string, side exchange.PositionSide) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(symbol), side)
}

func pendingKey(symbol string, side exchange.PositionSide, timeframe string) string {
	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(symbol), side, timeframe)
}

// Snapshot is an immutable copy of the position table, published by the
// event loop and read lock-free by the signal path.
type Snapshot struct {
	positions map[string]Position
}

// Has reports whether a position is open on the given leg.
func (s *Snapshot) Has(symbol string, side exchange.PositionSide) bool {
	if s == nil {
		return false
	}
	_, ok := s.positions[positionKey(symbol, side)]
	return ok
}

// Positions returns the tracked positions in no particular order.
func (s *Snapshot) Positions() []Position {
	if s == nil {
		return nil
	}
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}

// SideCounts splits one symbol's open legs.
type SideCounts struct {
	Long  int
	Short int
}

// Exposure aggregates the open position legs for the entry limiter.
type Exposure struct {
	Total     int
	Long      int
	Short     int
	PerSymbol map[string]SideCounts
}

// Counts tallies the snapshot's legs globally, per direction and per
// symbol.
func (s *Snapshot) Counts() Exposure {
	exp := Exposure{PerSymbol: make(map[string]SideCounts)}
	if s == nil {
		return exp
	}
	for _, p := range s.positions {
		exp.Total++
		counts := exp.PerSymbol[p.Symbol]
		if p.Side == exchange.PositionSideLong {
			exp.Long++
			counts.Long++
		} else {
			exp.Short++
			counts.Short++
		}
		exp.PerSymbol[p.Symbol] = counts
	}
	return exp
}
