package service

import (
	"context"
	"dinedash-backend/internal/apperr"
	"dinedash-backend/internal/cache"
	"dinedash-backend/internal/client"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/event"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/repository"
	"dinedash-backend/internal/testutil"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	db          *gorm.DB
	recorder    *event.Recorder
	router      *client.GatewayRouter
	catalogRepo repository.CatalogRepository
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	orders      OrderService
	payments    PaymentService
	checkout    CheckoutService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithCache(t, cache.Noop{})
}

func newHarnessWithCache(t *testing.T, trackingCache cache.TrackingCache) *harness {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger()
	h := &harness{
		db:          db,
		recorder:    &event.Recorder{},
		router:      client.NewGatewayRouter(&config.Config{}, log),
		catalogRepo: repository.NewCatalogRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
	}

	h.orders = NewOrderService(db, h.orderRepo, h.catalogRepo, trackingCache, h.recorder, log)
	h.payments = NewPaymentService(db, "http://localhost:8080", h.router, h.orderRepo, h.paymentRepo, trackingCache, h.recorder, log)
	h.checkout = NewCheckoutService(db, dto.NewValidator(), h.orders, h.payments, h.router, h.recorder, log)

	return h
}

func (h *harness) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(m).Count(&n).Error)
	return n
}

func pizzaOrder(pizza *model.MenuItem) dto.CreateOrderRequest {
	fee := decimal.RequireFromString("1.50")
	return dto.CreateOrderRequest{
		CustomerName:    "Ama",
		CustomerEmail:   "ama@example.com",
		OrderType:       "delivery",
		DeliveryAddress: "12 Oxford St, Osu",
		DeliveryFee:     &fee,
		Items:           []dto.Item{{MenuItemID: pizza.ID, Quantity: 2}},
	}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind, appErr.Error())
	return appErr
}

// checkoutPending places a mobile money checkout and returns its pending payment.
func (h *harness) checkoutPending(t *testing.T, pizza *model.MenuItem) *CheckoutResult {
	t.Helper()
	res, err := h.checkout.Checkout(context.Background(), &dto.CheckoutRequest{
		Order:   pizzaOrder(pizza),
		Payment: dto.PaymentRequest{Method: "mobile_money", Phone: "0240000000", Provider: "mtn"},
	})
	require.NoError(t, err)
	require.True(t, res.AwaitingPayment)
	return res
}
