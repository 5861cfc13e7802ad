package dto

import (
	"dinedash-backend/internal/apperr"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperr.KindValidation, appErr.Kind)
	return appErr.Fields
}

func TestValidator_EmptyItems(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&CreateOrderRequest{OrderType: "dine_in"})

	fields := validationFields(t, err)
	assert.Contains(t, fields, "items")
}

func TestValidator_CheckoutCrossFieldRules(t *testing.T) {
	v := NewValidator()
	req := &CheckoutRequest{
		Order: CreateOrderRequest{
			OrderType: "delivery",
			Items:     []Item{{MenuItemID: 1, Quantity: 0}},
		},
		Payment: PaymentRequest{Method: "mobile_money"},
	}

	fields := validationFields(t, v.Validate(req))
	assert.Equal(t, "required for delivery orders", fields["order.delivery_address"])
	assert.Equal(t, "required for mobile_money payments", fields["payment.phone"])
	assert.Equal(t, "required for mobile_money payments", fields["payment.provider"])
	assert.Contains(t, fields, "order.items[0].quantity")
}

func TestValidator_UnknownMethodAndType(t *testing.T) {
	v := NewValidator()
	req := &CheckoutRequest{
		Order: CreateOrderRequest{
			OrderType: "drive_thru",
			Items:     []Item{{MenuItemID: 1, Quantity: 1}},
		},
		Payment: PaymentRequest{Method: "crypto"},
	}

	fields := validationFields(t, v.Validate(req))
	assert.Contains(t, fields["order.order_type"], "must be one of")
	assert.Contains(t, fields["payment.method"], "must be one of")
}

func TestValidator_ValidRequests(t *testing.T) {
	v := NewValidator()
	pickup := time.Now().Add(time.Hour)
	fee := decimal.RequireFromString("1.50")

	assert.NoError(t, v.Validate(&CheckoutRequest{
		Order: CreateOrderRequest{
			OrderType:   "pickup",
			PickupTime:  &pickup,
			Items:       []Item{{MenuItemID: 1, Quantity: 2}},
			DeliveryFee: &fee,
		},
		Payment: PaymentRequest{Method: "card", PaymentToken: "fake-valid-nonce"},
	}))
	assert.NoError(t, v.Validate(&FinalizeRequest{OrderID: 1, PaymentMethod: "cash", Amount: fee}))
}

func TestValidator_FinalizeAmount(t *testing.T) {
	fields := validationFields(t, NewValidator().Validate(&FinalizeRequest{OrderID: 1, PaymentMethod: "cash"}))
	assert.Equal(t, "must be positive", fields["amount"])
}

func TestVerifyQuery_FlutterwaveAliases(t *testing.T) {
	q := &VerifyQuery{TxRef: "PAY-1-abc", Status: "successful"}
	assert.Equal(t, "PAY-1-abc", q.Reference())
	assert.Equal(t, "successful", q.Result())

	q = &VerifyQuery{Ref: "PAY-1-def", TxRef: "other", Outcome: "failed", Status: "successful"}
	assert.Equal(t, "PAY-1-def", q.Reference())
	assert.Equal(t, "failed", q.Result())
}
