package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderInProgress, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderReady, false},
		{OrderPending, OrderCompleted, false},
		{OrderInProgress, OrderReady, true},
		{OrderInProgress, OrderCancelled, true},
		{OrderInProgress, OrderPending, false},
		{OrderReady, OrderDelivered, true},
		{OrderReady, OrderCompleted, true},
		{OrderReady, OrderCancelled, true},
		{OrderDelivered, OrderCompleted, true},
		{OrderDelivered, OrderCancelled, true},
		{OrderDelivered, OrderReady, false},
		{OrderCompleted, OrderPending, false},
		{OrderCompleted, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderPending, OrderPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_NonTerminalCanAlwaysCancel(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderInProgress, OrderReady, OrderDelivered} {
		assert.False(t, s.Terminal())
		assert.True(t, s.CanTransitionTo(OrderCancelled), s)
	}
	assert.True(t, OrderCompleted.Terminal())
	assert.True(t, OrderCancelled.Terminal())
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, OrderStatus("ready").Valid())
	assert.False(t, OrderStatus("sentToKitchen").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestEnums_Valid(t *testing.T) {
	assert.True(t, MethodMobileMoney.Valid())
	assert.False(t, PaymentMethod("momo").Valid())
	assert.True(t, OrderTypePickup.Valid())
	assert.False(t, OrderType("take-out").Valid())
}

func TestOrderItem_LineTotal(t *testing.T) {
	item := OrderItem{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2}
	assert.Equal(t, "20.00", item.LineTotal().StringFixed(2))
}
