package exit

import (
	"testing"

	"sinalbot/internal/gateway/exchange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	btcFilter = exchange.SymbolFilter{TickSize: 0.10, StepSize: 0.001}
	adaFilter = exchange.SymbolFilter{TickSize: 0.0001, StepSize: 1}

	params = Params{
		TakeProfitPercent:         1.0,
		PartialFraction:           0.5,
		TrailingActivationPercent: 5.0,
		TrailingCallbackRate:      1.0,
	}
)

func TestTakeProfitsLong(t *testing.T) {
	plan := TakeProfits(exchange.PositionSideLong, 100.0, 0.5, btcFilter, params)
	require.NotNil(t, plan.TP1)
	require.NotNil(t, plan.TP2)

	assert.InDelta(t, 101.0, plan.TP1.Price, 1e-9)
	assert.InDelta(t, 102.0, plan.TP2.Price, 1e-9)
	assert.InDelta(t, 0.25, plan.TP1.Quantity, 1e-9)
	assert.InDelta(t, 0.25, plan.TP2.Quantity, 1e-9)
}

func TestTakeProfitsShort(t *testing.T) {
	plan := TakeProfits(exchange.PositionSideShort, 100.0, 0.5, btcFilter, params)
	require.NotNil(t, plan.TP1)
	require.NotNil(t, plan.TP2)

	assert.InDelta(t, 99.0, plan.TP1.Price, 1e-9)
	assert.InDelta(t, 98.0, plan.TP2.Price, 1e-9)
}

func TestTakeProfitsNeverExceedFilled(t *testing.T) {
	quantities := []float64{0.001, 0.003, 0.5, 1.2345, 7}
	for _, qty := range quantities {
		plan := TakeProfits(exchange.PositionSideLong, 250.0, qty, btcFilter, params)
		total := 0.0
		if plan.TP1 != nil {
			total += plan.TP1.Quantity
		}
		if plan.TP2 != nil {
			total += plan.TP2.Quantity
		}
		assert.LessOrEqual(t, total, qty+1e-12, "qty=%v", qty)
	}
}

func TestTakeProfitsTP1RoundsToZero(t *testing.T) {
	// half of 1 contract floors to zero on an integer step
	plan := TakeProfits(exchange.PositionSideLong, 0.5, 1, adaFilter, params)
	assert.Nil(t, plan.TP1)
	require.NotNil(t, plan.TP2)
	assert.InDelta(t, 1, plan.TP2.Quantity, 1e-12)
}

func TestTakeProfitsTP2RemainderRoundsAway(t *testing.T) {
	// 0.001 at fraction 0.5: TP1 floors to zero, remainder carries all
	plan := TakeProfits(exchange.PositionSideLong, 100.0, 0.001, btcFilter, params)
	assert.Nil(t, plan.TP1)
	require.NotNil(t, plan.TP2)
	assert.InDelta(t, 0.001, plan.TP2.Quantity, 1e-12)

	// nothing at all when the filled quantity itself rounds away
	plan = TakeProfits(exchange.PositionSideLong, 100.0, 0.0004, btcFilter, params)
	assert.Nil(t, plan.TP1)
	assert.Nil(t, plan.TP2)
}

func TestTakeProfitsInvalidInputs(t *testing.T) {
	assert.Equal(t, TakeProfitPlan{}, TakeProfits(exchange.PositionSideLong, 0, 1, btcFilter, params))
	assert.Equal(t, TakeProfitPlan{}, TakeProfits(exchange.PositionSideLong, 100, 0, btcFilter, params))
}

func TestBreakEvenStopLongClampsToMark(t *testing.T) {
	// entry*1.002 would sit above mark, so the mark clamp wins
	stop := BreakEvenStop(exchange.PositionSideLong, 100.0, 100.05, 0.0001)
	assert.InDelta(t, 99.9499, stop, 1e-6)

	// mark far above entry: the entry-based stop stands
	stop = BreakEvenStop(exchange.PositionSideLong, 100.0, 110.0, 0.0001)
	assert.InDelta(t, 100.2, stop, 1e-6)
}

func TestBreakEvenStopShortClampsToMark(t *testing.T) {
	// entry*0.998 would sit below mark, so the mark clamp wins
	stop := BreakEvenStop(exchange.PositionSideShort, 100.0, 99.95, 0.0001)
	assert.InDelta(t, 100.0499, stop, 1e-6)

	stop = BreakEvenStop(exchange.PositionSideShort, 100.0, 90.0, 0.0001)
	assert.InDelta(t, 99.8, stop, 1e-6)
}

func TestBreakEvenStopInvalid(t *testing.T) {
	assert.Zero(t, BreakEvenStop(exchange.PositionSideLong, 0, 100, 0.1))
	assert.Zero(t, BreakEvenStop(exchange.PositionSideLong, 100, 0, 0.1))
}

func TestTrailingLong(t *testing.T) {
	order := Trailing(exchange.PositionSideLong, 100.0, 0.5, btcFilter, params)
	assert.InDelta(t, 105.0, order.ActivationPrice, 1e-9)
	assert.InDelta(t, 0.5, order.Quantity, 1e-9)
	assert.InDelta(t, 1.0, order.CallbackRate, 1e-9)
}

func TestTrailingShort(t *testing.T) {
	order := Trailing(exchange.PositionSideShort, 100.0, 0.5, btcFilter, params)
	assert.InDelta(t, 95.0, order.ActivationPrice, 1e-9)
}
