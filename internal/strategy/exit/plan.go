// Package exit computes the resting exit orders for a filled position:
// two partial take-profit tiers, a break-even stop and a trailing stop.
// Everything here is pure math; submission stays with the caller.
package exit

import (
	"sinalbot/internal/gateway/exchange"
	"sinalbot/internal/pkg/trading"

	"github.com/shopspring/decimal"
)

// Params are the strategy constants, percentages in human notation
// (1.0 means 1%).
type Params struct {
	TakeProfitPercent         float64
	PartialFraction           float64
	TrailingActivationPercent float64
	TrailingCallbackRate      float64
}

// Order is one computed exit leg, already normalized to the grids.
type Order struct {
	Price    float64
	Quantity float64
}

// TakeProfitPlan carries the two partial take-profit tiers. A nil tier
// means its quantity rounded away and it must be skipped.
type TakeProfitPlan struct {
	TP1 *Order
	TP2 *Order
}

// TakeProfits splits qty into a first tier of PartialFraction and a
// second tier for the remainder, at one and two multiples of
// TakeProfitPercent away from entry on the closing side.
// TP1 quantity + TP2 quantity never exceeds qty.
func TakeProfits(side exchange.PositionSide, entry, qty float64, f exchange.SymbolFilter, p Params) TakeProfitPlan {
	var plan TakeProfitPlan
	if entry <= 0 || qty <= 0 {
		return plan
	}

	tp1Qty := trading.Normalize(qty*p.PartialFraction, f.StepSize)
	if tp1Qty > 0 {
		plan.TP1 = &Order{
			Price:    trading.Normalize(tierPrice(side, entry, p.TakeProfitPercent, 1), f.TickSize),
			Quantity: tp1Qty,
		}
	}

	remainder := decimal.NewFromFloat(qty).Sub(decimal.NewFromFloat(tp1Qty))
	tp2Qty := trading.Normalize(decToFloat(remainder), f.StepSize)
	if tp2Qty > 0 {
		plan.TP2 = &Order{
			Price:    trading.Normalize(tierPrice(side, entry, p.TakeProfitPercent, 2), f.TickSize),
			Quantity: tp2Qty,
		}
	}
	return plan
}

// BreakEvenStop returns the profit-lock stop price: a touch beyond entry,
// clamped so it never crosses the current mark price. Returns 0 when the
// inputs cannot produce a valid stop.
func BreakEvenStop(side exchange.PositionSide, entry, mark, tick float64) float64 {
	if entry <= 0 || mark <= 0 {
		return 0
	}
	e := decimal.NewFromFloat(entry)
	m := decimal.NewFromFloat(mark)
	var stop decimal.Decimal
	if side == exchange.PositionSideLong {
		stop = decimal.Min(e.Mul(decimal.NewFromFloat(1.002)), m.Mul(decimal.NewFromFloat(0.999)))
	} else {
		stop = decimal.Max(e.Mul(decimal.NewFromFloat(0.998)), m.Mul(decimal.NewFromFloat(1.001)))
	}
	return trading.Normalize(decToFloat(stop), tick)
}

// TrailingOrder is the computed trailing-stop leg.
type TrailingOrder struct {
	ActivationPrice float64
	Quantity        float64
	CallbackRate    float64
}

// Trailing returns the trailing stop: activation offset from entry by
// TrailingActivationPercent in the favorable direction, full remaining
// quantity, fixed callback rate.
func Trailing(side exchange.PositionSide, entry, qty float64, f exchange.SymbolFilter, p Params) TrailingOrder {
	if entry <= 0 || qty <= 0 {
		return TrailingOrder{}
	}
	return TrailingOrder{
		ActivationPrice: trading.Normalize(tierPrice(side, entry, p.TrailingActivationPercent, 1), f.TickSize),
		Quantity:        trading.Normalize(qty, f.StepSize),
		CallbackRate:    p.TrailingCallbackRate,
	}
}

func tierPrice(side exchange.PositionSide, entry, pct float64, mult int64) float64 {
	e := decimal.NewFromFloat(entry)
	offset := decimal.NewFromFloat(pct).Mul(decimal.NewFromInt(mult)).Div(decimal.NewFromInt(100))
	var factor decimal.Decimal
	if side == exchange.PositionSideShort {
		factor = decimal.NewFromInt(1).Sub(offset)
	} else {
		factor = decimal.NewFromInt(1).Add(offset)
	}
	return decToFloat(e.Mul(factor))
}

func decToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
