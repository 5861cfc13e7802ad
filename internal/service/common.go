package service

import (
	"dinedash-backend/internal/apperr"
	"dinedash-backend/internal/event"
	"dinedash-backend/internal/model"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxTrackingCodeAttempts = 5

func randomHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// newTrackingCode returns 10 uppercase hex characters of a random UUID.
func newTrackingCode() string {
	return strings.ToUpper(randomHex(10))
}

func newTransactionRef(orderID uint) string {
	return fmt.Sprintf("PAY-%d-%s", orderID, randomHex(12))
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func orderEvent(typ event.Type, order *model.Order, from model.OrderStatus) event.Event {
	return event.Event{
		Type:         typ,
		OrderID:      order.ID,
		TrackingCode: order.TrackingCode,
		OrderStatus:  order.Status,
		FromStatus:   from,
		OccurredAt:   time.Now().UTC(),
	}
}

func paymentEvent(typ event.Type, payment *model.Payment) event.Event {
	amount := payment.Amount
	return event.Event{
		Type:       typ,
		OrderID:    payment.OrderID,
		PaymentID:  payment.ID,
		PaymentRef: payment.TransactionRef,
		Method:     payment.Method,
		Amount:     &amount,
		OccurredAt: time.Now().UTC(),
	}
}
