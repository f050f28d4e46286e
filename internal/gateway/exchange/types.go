package exchange

// PositionSide distinguishes the two legs of a hedge-mode account.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Valid reports whether the side is one of the two known legs.
func (s PositionSide) Valid() bool {
	return s == PositionSideLong || s == PositionSideShort
}

// CloseOrderSide returns the order side that closes a position on this leg.
func (s PositionSide) CloseOrderSide() OrderSide {
	if s == PositionSideLong {
		return OrderSideSell
	}
	return OrderSideBuy
}

// EntryOrderSide returns the order side that opens a position on this leg.
func (s PositionSide) EntryOrderSide() OrderSide {
	if s == PositionSideLong {
		return OrderSideBuy
	}
	return OrderSideSell
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeMarket             OrderType = "MARKET"
	OrderTypeLimit              OrderType = "LIMIT"
	OrderTypeStopMarket         OrderType = "STOP_MARKET"
	OrderTypeTrailingStopMarket OrderType = "TRAILING_STOP_MARKET"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// OrderRequest describes one order to be created. Quantity and prices are
// already normalized to the instrument's grids by the caller.
type OrderRequest struct {
	Symbol          string
	Side            OrderSide
	PositionSide    PositionSide
	Type            OrderType
	Quantity        float64
	Price           float64 // LIMIT only
	StopPrice       float64 // STOP_MARKET only
	ActivationPrice float64 // TRAILING_STOP_MARKET only
	CallbackRate    float64 // TRAILING_STOP_MARKET only, percent
	ClientOrderID   string
}

// OrderRef identifies an order accepted by the exchange.
type OrderRef struct {
	OrderID       int64
	ClientOrderID string
	Status        OrderStatus
}

// OpenOrder is the subset of a resting order the exposure limiter needs.
type OpenOrder struct {
	Symbol       string
	PositionSide PositionSide
	Type         OrderType
	Status       OrderStatus
	ReduceOnly   bool
}

// PositionDelta reports the state of one position leg, either from the
// REST snapshot or from an ACCOUNT_UPDATE stream frame. Quantity is
// absolute; zero means the leg is closed.
type PositionDelta struct {
	Symbol     string
	Side       PositionSide
	Quantity   float64
	EntryPrice float64
}

// OrderDelta reports one order status change from ORDER_TRADE_UPDATE.
type OrderDelta struct {
	Symbol         string
	Side           PositionSide
	Status         OrderStatus
	Type           OrderType
	AveragePrice   float64
	FilledQuantity float64
	OrderID        int64
}

// UserDataEvent is one decoded frame from the private stream. Exactly one
// of the two fields is set; frames with unknown tags are dropped by the
// gateway before they get here.
type UserDataEvent struct {
	Account *AccountUpdate
	Order   *OrderDelta
}

// AccountUpdate carries the position deltas of one ACCOUNT_UPDATE frame.
type AccountUpdate struct {
	Positions []PositionDelta
}

// SymbolFilter carries the per-instrument rounding grids.
type SymbolFilter struct {
	TickSize float64
	StepSize float64
}
