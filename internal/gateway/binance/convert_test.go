package binance

import (
	"testing"

	"sinalbot/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/require"
)

func TestConvertAccountUpdate(t *testing.T) {
	ev := &futures.WsUserDataEvent{
		Event: futures.UserDataEventTypeAccountUpdate,
		WsUserDataAccountUpdate: futures.WsUserDataAccountUpdate{AccountUpdate: futures.WsAccountUpdate{
			Positions: []futures.WsPosition{
				{Symbol: "BTCUSDT", Side: futures.PositionSideTypeLong, Amount: "-0.5", EntryPrice: "65000.5"},
				{Symbol: "", Side: futures.PositionSideTypeShort, Amount: "1"},
				{Symbol: "ETHUSDT", Side: "BOTH", Amount: "2"},
			},
		}},
	}

	out, ok := convertUserDataEvent(ev)
	require.True(t, ok)
	require.NotNil(t, out.Account)
	require.Nil(t, out.Order)
	require.Len(t, out.Account.Positions, 1)

	delta := out.Account.Positions[0]
	require.Equal(t, "BTCUSDT", delta.Symbol)
	require.Equal(t, exchange.PositionSideLong, delta.Side)
	require.Equal(t, 0.5, delta.Quantity)
	require.Equal(t, 65000.5, delta.EntryPrice)
}

func TestConvertAccountUpdateAllFilteredOut(t *testing.T) {
	ev := &futures.WsUserDataEvent{
		Event: futures.UserDataEventTypeAccountUpdate,
		WsUserDataAccountUpdate: futures.WsUserDataAccountUpdate{AccountUpdate: futures.WsAccountUpdate{
			Positions: []futures.WsPosition{{Symbol: "ETHUSDT", Side: "BOTH", Amount: "2"}},
		}},
	}
	_, ok := convertUserDataEvent(ev)
	require.False(t, ok)
}

func TestConvertOrderTradeUpdate(t *testing.T) {
	ev := &futures.WsUserDataEvent{
		Event: futures.UserDataEventTypeOrderTradeUpdate,
		WsUserDataOrderTradeUpdate: futures.WsUserDataOrderTradeUpdate{OrderTradeUpdate: futures.WsOrderTradeUpdate{
			Symbol:               "SOLUSDT",
			PositionSide:         futures.PositionSideTypeShort,
			Status:               futures.OrderStatusTypePartiallyFilled,
			Type:                 futures.OrderTypeLimit,
			AveragePrice:         "150.25",
			AccumulatedFilledQty: "3",
			ID:                   991,
		}},
	}

	out, ok := convertUserDataEvent(ev)
	require.True(t, ok)
	require.NotNil(t, out.Order)
	require.Nil(t, out.Account)
	require.Equal(t, "SOLUSDT", out.Order.Symbol)
	require.Equal(t, exchange.PositionSideShort, out.Order.Side)
	require.Equal(t, exchange.OrderStatusPartiallyFilled, out.Order.Status)
	require.Equal(t, exchange.OrderTypeLimit, out.Order.Type)
	require.Equal(t, 150.25, out.Order.AveragePrice)
	require.Equal(t, 3.0, out.Order.FilledQuantity)
	require.Equal(t, int64(991), out.Order.OrderID)
}

func TestConvertIgnoresOtherFrames(t *testing.T) {
	_, ok := convertUserDataEvent(&futures.WsUserDataEvent{Event: futures.UserDataEventTypeListenKeyExpired})
	require.False(t, ok)

	_, ok = convertUserDataEvent(nil)
	require.False(t, ok)
}

func TestPositionRiskDelta(t *testing.T) {
	delta, ok := positionRiskDelta(&futures.PositionRisk{
		Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: "0.25", EntryPrice: "64000",
	})
	require.True(t, ok)
	require.Equal(t, exchange.PositionSideLong, delta.Side)
	require.Equal(t, 0.25, delta.Quantity)
	require.Equal(t, 64000.0, delta.EntryPrice)

	// one-way mode derives the leg from the sign
	delta, ok = positionRiskDelta(&futures.PositionRisk{
		Symbol: "ETHUSDT", PositionSide: "BOTH", PositionAmt: "-4",
	})
	require.True(t, ok)
	require.Equal(t, exchange.PositionSideShort, delta.Side)
	require.Equal(t, 4.0, delta.Quantity)

	_, ok = positionRiskDelta(&futures.PositionRisk{Symbol: "XRPUSDT", PositionAmt: "0"})
	require.False(t, ok)
}
