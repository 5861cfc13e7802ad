package service

import (
	"context"
	"dinedash-backend/internal/cache"
	"dinedash-backend/internal/client"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/testutil"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedHarness struct {
	*harness
	mr *miniredis.Miniredis
}

func newCachedHarness(t *testing.T) *cachedHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return &cachedHarness{
		harness: newHarnessWithCache(t, cache.NewTrackingCache(rdb, time.Minute, testutil.Logger())),
		mr:      mr,
	}
}

// track looks the order up after earlier invalidations have expired, so the
// result is cached.
func (h *cachedHarness) track(t *testing.T, code string) *model.Order {
	t.Helper()
	h.mr.FastForward(10 * time.Second)
	order, err := h.orders.GetByTrackingCode(context.Background(), code)
	require.NoError(t, err)
	require.True(t, h.mr.Exists("order:tracking:"+code))
	return order
}

func (h *cachedHarness) cached(code string) bool {
	return h.mr.Exists("order:tracking:" + code)
}

func TestTracking_VerifyRefreshesCachedOrder(t *testing.T) {
	h := newCachedHarness(t)
	ctx := context.Background()
	pizza := testutil.AddMenuItem(t, h.db, "Pizza", "10.00")
	res := h.checkoutPending(t, pizza)
	code := res.Order.TrackingCode

	before := h.track(t, code)
	assert.Equal(t, model.OrderPending, before.Status)

	_, err := h.payments.Verify(ctx, VerifyInput{TransactionRef: res.Payment.TransactionRef, OrderID: res.Order.ID, Outcome: "successful"})
	require.NoError(t, err)
	assert.False(t, h.cached(code))

	after, err := h.orders.GetByTrackingCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.OrderInProgress, after.Status)
	require.Len(t, after.Payments, 1)
	assert.Equal(t, model.PaymentCompleted, after.Payments[0].Status)
}

func TestTracking_PaymentMutationsInvalidate(t *testing.T) {
	h := newCachedHarness(t)
	ctx := context.Background()
	pizza := testutil.AddMenuItem(t, h.db, "Pizza", "10.00")

	t.Run("record initiation", func(t *testing.T) {
		res := h.checkoutPending(t, pizza)
		h.track(t, res.Order.TrackingCode)

		require.NoError(t, h.payments.RecordInitiation(ctx, res.Payment, "mock", &client.GatewayInitiation{
			Reference:   "MOCK-2",
			RedirectURL: res.Payment.PaymentLink,
		}))
		assert.False(t, h.cached(res.Order.TrackingCode))
	})

	t.Run("fail initiation", func(t *testing.T) {
		res := h.checkoutPending(t, pizza)
		h.track(t, res.Order.TrackingCode)

		require.NoError(t, h.payments.FailInitiation(ctx, res.Payment, errors.New("i/o timeout")))
		assert.False(t, h.cached(res.Order.TrackingCode))

		order, err := h.orders.GetByTrackingCode(ctx, res.Order.TrackingCode)
		require.NoError(t, err)
		require.Len(t, order.Payments, 1)
		assert.Equal(t, model.PaymentFailed, order.Payments[0].Status)
	})

	t.Run("stale sweep", func(t *testing.T) {
		res := h.checkoutPending(t, pizza)
		h.track(t, res.Order.TrackingCode)

		require.NoError(t, h.db.Model(&model.Payment{}).
			Where("id = ?", res.Payment.ID).
			Update("created_at", time.Now().Add(-48*time.Hour)).Error)
		_, err := h.payments.SweepStale(ctx, 24*time.Hour, 100)
		require.NoError(t, err)
		assert.False(t, h.cached(res.Order.TrackingCode))
	})

	t.Run("status change", func(t *testing.T) {
		res := h.checkoutPending(t, pizza)
		h.track(t, res.Order.TrackingCode)

		_, err := h.orders.TransitionStatus(ctx, res.Order.ID, model.OrderCancelled)
		require.NoError(t, err)
		assert.False(t, h.cached(res.Order.TrackingCode))
	})
}

func TestTracking_LookupDuringFenceIsNotCached(t *testing.T) {
	h := newCachedHarness(t)
	ctx := context.Background()
	pizza := testutil.AddMenuItem(t, h.db, "Pizza", "10.00")
	res := h.checkoutPending(t, pizza)

	_, err := h.orders.TransitionStatus(ctx, res.Order.ID, model.OrderCancelled)
	require.NoError(t, err)

	order, err := h.orders.GetByTrackingCode(ctx, res.Order.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, order.Status)
	assert.False(t, h.cached(res.Order.TrackingCode))
}
