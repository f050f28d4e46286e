package exchange

import "context"

// Exchange is the REST surface the executor and the exit machine need.
// Implementations must be safe for concurrent use.
type Exchange interface {
	Name() string

	CreateOrder(ctx context.Context, req OrderRequest) (*OrderRef, error)

	MarkPrice(ctx context.Context, symbol string) (float64, error)

	// RecentCloses returns the closing prices of the most recent limit
	// candles for the interval, oldest first. The final entry belongs to
	// the still-forming candle.
	RecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error)

	OpenOrders(ctx context.Context) ([]OpenOrder, error)

	Positions(ctx context.Context) ([]PositionDelta, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error

	SetMarginType(ctx context.Context, symbol, marginType string) error

	SetPositionMode(ctx context.Context, hedge bool) error

	SymbolFilter(ctx context.Context, symbol string) (SymbolFilter, error)
}

// UserStream delivers account and order deltas from the exchange's
// private stream. Run blocks until ctx is done, reconnecting on its own.
type UserStream interface {
	Run(ctx context.Context, events chan<- UserDataEvent)
}
