package service

import (
	"context"
	"dinedash-backend/internal/apperr"
	"dinedash-backend/internal/cache"
	"dinedash-backend/internal/client"
	"dinedash-backend/internal/event"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/repository"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentInput struct {
	Method model.PaymentMethod
	// Amount defaults to the order's amount due when nil.
	Amount *decimal.Decimal

	Provider     string
	Phone        string
	BankDetails  string
	PaymentToken string
}

type VerifyInput struct {
	TransactionRef string
	OrderID        uint
	Outcome        string
	// GatewayTransactionID is the processor's id from the callback, if any.
	GatewayTransactionID string
	// Confirmed skips the round trip to the gateway; set only when the outcome
	// came from the gateway itself rather than a callback.
	Confirmed bool
}

type PaymentResult struct {
	Order   *model.Order
	Payment *model.Payment
	// Replayed is set when the payment was already completed before this call.
	Replayed bool
}

type PaymentService interface {
	Initiate(ctx context.Context, tx *gorm.DB, order *model.Order, in PaymentInput) (*model.Payment, error)
	Verify(ctx context.Context, in VerifyInput) (*PaymentResult, error)
	FinalizeByStaff(ctx context.Context, orderID uint, method model.PaymentMethod, amount decimal.Decimal) (*PaymentResult, error)
	RecordInitiation(ctx context.Context, payment *model.Payment, gateway string, init *client.GatewayInitiation) error
	FailInitiation(ctx context.Context, payment *model.Payment, cause error) error
	SweepStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type paymentServiceImpl struct {
	db             *gorm.DB
	serviceBaseUrl string
	gateways       GatewaySelector
	orderRepo      repository.OrderRepository
	paymentRepo    repository.PaymentRepository
	cache          cache.TrackingCache
	publisher      event.Publisher
	log            zerolog.Logger
}

func NewPaymentService(
	db *gorm.DB,
	serviceBaseUrl string,
	gateways GatewaySelector,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	trackingCache cache.TrackingCache,
	publisher event.Publisher,
	log zerolog.Logger,
) PaymentService {
	return &paymentServiceImpl{
		db:             db,
		serviceBaseUrl: serviceBaseUrl,
		gateways:       gateways,
		orderRepo:      orderRepo,
		paymentRepo:    paymentRepo,
		cache:          trackingCache,
		publisher:      publisher,
		log:            log.With().Str("component", "payment_service").Logger(),
	}
}

// confirmTimeout bounds the gateway round trip made before a payment is locked.
const confirmTimeout = 20 * time.Second

// verifyURL is the callback a gateway (or the customer) hits to confirm a payment.
func (s *paymentServiceImpl) verifyURL(transactionRef string, orderID uint) string {
	q := url.Values{}
	q.Set("ref", transactionRef)
	q.Set("order_id", strconv.FormatUint(uint64(orderID), 10))
	return s.serviceBaseUrl + "/payments/verify?" + q.Encode()
}

// Initiate records a payment attempt against a pending order inside tx. Cash
// settles immediately and moves the order to in_progress; every other method
// stays pending until verified.
func (s *paymentServiceImpl) Initiate(ctx context.Context, tx *gorm.DB, order *model.Order, in PaymentInput) (*model.Payment, error) {
	if !in.Method.Valid() {
		return nil, apperr.Validation(map[string]string{"method": fmt.Sprintf("unknown payment method %q", in.Method)})
	}
	if order.Status != model.OrderPending {
		return nil, apperr.New(apperr.KindOrderNotPayable, "order %d is %s; only pending orders accept payment", order.ID, order.Status)
	}

	due := order.AmountDue()
	amount := due
	if in.Amount != nil {
		amount = *in.Amount
	}
	if amount.LessThan(due) {
		return nil, apperr.New(apperr.KindAmountTooLow, "payment amount %s is below amount due %s", amount.StringFixed(2), due.StringFixed(2))
	}

	ref := newTransactionRef(order.ID)
	payment := &model.Payment{
		OrderID:        order.ID,
		TransactionRef: ref,
		Amount:         amount,
		Method:         in.Method,
		Status:         model.PaymentPending,
		Provider:       in.Provider,
		Phone:          in.Phone,
		BankDetails:    in.BankDetails,
		PaymentToken:   in.PaymentToken,
	}

	if in.Method == model.MethodCash {
		payment.Status = model.PaymentCompleted
		payment.Gateway = "counter"
	} else {
		payment.PaymentLink = s.verifyURL(ref, order.ID)
	}

	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("store payment in db: %w", err)
	}

	if payment.Status == model.PaymentCompleted {
		ok, err := s.orderRepo.CompareAndSetStatus(ctx, tx, order.ID, model.OrderPending, model.OrderInProgress)
		if err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
		if !ok {
			return nil, apperr.New(apperr.KindOrderNotPayable, "order %d is no longer pending", order.ID)
		}
		order.Status = model.OrderInProgress
	}

	return payment, nil
}

// Verify applies a gateway outcome to the payment identified by both its
// reference and its order. The outcome is confirmed with the gateway before
// the payment is locked. Repeating a successful verification is a no-op.
func (s *paymentServiceImpl) Verify(ctx context.Context, in VerifyInput) (*PaymentResult, error) {
	fields := make(map[string]string)
	if in.TransactionRef == "" {
		fields["ref"] = "is required"
	}
	if in.OrderID == 0 {
		fields["order_id"] = "is required"
	}
	if in.Outcome == "" {
		fields["outcome"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	if !in.Confirmed {
		payment, err := s.paymentRepo.FindByRef(ctx, nil, in.OrderID, in.TransactionRef)
		if err != nil {
			return nil, notFoundOr(err, "payment %s for order %d not found", in.TransactionRef, in.OrderID)
		}
		if payment.Status == model.PaymentPending {
			if in, err = s.confirm(ctx, payment, in); err != nil {
				return nil, err
			}
		}
	}

	result := &PaymentResult{}
	var events []event.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.FindByRefForUpdate(ctx, tx, in.OrderID, in.TransactionRef)
		if err != nil {
			return notFoundOr(err, "payment %s for order %d not found", in.TransactionRef, in.OrderID)
		}

		switch payment.Status {
		case model.PaymentCompleted:
			result.Replayed = true
		case model.PaymentPending:
			events, err = s.settle(ctx, tx, payment, in)
			if err != nil {
				return err
			}
		}

		if result.Payment, err = s.paymentRepo.FindByID(ctx, tx, payment.ID); err != nil {
			return fmt.Errorf("reload payment: %w", err)
		}
		if result.Order, err = s.orderRepo.FindByID(ctx, tx, in.OrderID); err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		s.cache.Invalidate(ctx, result.Order.TrackingCode)
		s.publisher.Publish(ctx, events...)
		s.log.Info().Uint("order_id", in.OrderID).Str("ref", in.TransactionRef).
			Str("payment_status", string(result.Payment.Status)).Msg("payment verified")
	}

	return result, nil
}

func (s *paymentServiceImpl) confirm(ctx context.Context, payment *model.Payment, in VerifyInput) (VerifyInput, error) {
	gateway, ok := s.gateways.Named(payment.Gateway)
	if !ok {
		gateway = s.gateways.For(payment.Method)
	}

	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	confirmed, err := gateway.Confirm(ctx, &client.ConfirmRequest{
		TransactionRef: payment.TransactionRef,
		GatewayRef:     payment.GatewayRef,
		Amount:         payment.Amount,
		Outcome:        in.Outcome,
		TransactionID:  in.GatewayTransactionID,
	})
	if err != nil {
		return in, apperr.Wrap(apperr.KindGatewayFailure, err,
			"payment %s could not be confirmed with %s; it remains pending", payment.TransactionRef, gateway.Name())
	}

	if confirmed.Outcome != in.Outcome {
		s.log.Warn().Str("ref", payment.TransactionRef).Str("gateway", gateway.Name()).
			Str("reported", in.Outcome).Str("confirmed", confirmed.Outcome).Msg("gateway disagrees with callback outcome")
	}

	in.Outcome = confirmed.Outcome
	if confirmed.TransactionID != "" {
		in.GatewayTransactionID = confirmed.TransactionID
	}
	in.Confirmed = true
	return in, nil
}

// settle moves a locked pending payment to its terminal state. A successful
// outcome only completes the payment if the order is still pending, so an
// order can never collect two completed payments.
func (s *paymentServiceImpl) settle(ctx context.Context, tx *gorm.DB, payment *model.Payment, in VerifyInput) ([]event.Event, error) {
	transactionID := in.GatewayTransactionID
	if transactionID == "" {
		transactionID = payment.GatewayRef
	}
	if transactionID == "" {
		transactionID = "GW-" + uuid.NewString()
	}

	if in.Outcome != model.OutcomeSuccessful {
		if _, err := s.paymentRepo.Finalize(ctx, tx, payment.ID, model.PaymentFailed, &transactionID); err != nil {
			return nil, fmt.Errorf("mark payment failed: %w", err)
		}
		payment.Status = model.PaymentFailed
		return []event.Event{paymentEvent(event.PaymentFailed, payment)}, nil
	}

	order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	moved, err := s.orderRepo.CompareAndSetStatus(ctx, tx, order.ID, model.OrderPending, model.OrderInProgress)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if !moved {
		s.log.Warn().Uint("order_id", order.ID).Str("order_status", string(order.Status)).
			Str("ref", payment.TransactionRef).Msg("successful callback for an order that is no longer pending")
		if _, err := s.paymentRepo.Finalize(ctx, tx, payment.ID, model.PaymentFailed, &transactionID); err != nil {
			return nil, fmt.Errorf("mark payment failed: %w", err)
		}
		payment.Status = model.PaymentFailed
		return []event.Event{paymentEvent(event.PaymentFailed, payment)}, nil
	}

	if _, err := s.paymentRepo.Finalize(ctx, tx, payment.ID, model.PaymentCompleted, &transactionID); err != nil {
		return nil, fmt.Errorf("mark payment completed: %w", err)
	}
	payment.Status = model.PaymentCompleted
	from := order.Status
	order.Status = model.OrderInProgress

	return []event.Event{
		paymentEvent(event.PaymentCompleted, payment),
		orderEvent(event.OrderStatusChanged, order, from),
	}, nil
}

// FinalizeByStaff records a payment collected by staff for an order that is
// ready or delivered, and completes the order.
func (s *paymentServiceImpl) FinalizeByStaff(ctx context.Context, orderID uint, method model.PaymentMethod, amount decimal.Decimal) (*PaymentResult, error) {
	if !method.Valid() {
		return nil, apperr.Validation(map[string]string{"payment_method": fmt.Sprintf("unknown payment method %q", method)})
	}

	result := &PaymentResult{}
	var from model.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return notFoundOr(err, "order %d not found", orderID)
		}
		from = order.Status

		if !order.Status.AwaitingCollection() {
			return apperr.New(apperr.KindOrderNotReady, "order %d is %s; staff can only finalize ready or delivered orders", orderID, order.Status)
		}

		paid, err := s.paymentRepo.HasCompleted(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("check completed payments: %w", err)
		}
		if paid {
			return apperr.New(apperr.KindAlreadyFinalized, "order %d already has a completed payment", orderID)
		}

		if due := order.AmountDue(); amount.LessThan(due) {
			return apperr.New(apperr.KindAmountTooLow, "payment amount %s is below amount due %s", amount.StringFixed(2), due.StringFixed(2))
		}

		payment := &model.Payment{
			OrderID:        orderID,
			TransactionRef: newTransactionRef(orderID),
			Amount:         amount,
			Method:         method,
			Status:         model.PaymentCompleted,
			Gateway:        "staff",
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("store payment in db: %w", err)
		}

		ok, err := s.orderRepo.CompareAndSetStatus(ctx, tx, orderID, from, model.OrderCompleted)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !ok {
			return apperr.New(apperr.KindIllegalTransition, "order %d left %s before it could be completed", orderID, from)
		}

		result.Payment = payment
		if result.Order, err = s.orderRepo.FindByID(ctx, tx, orderID); err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, result.Order.TrackingCode)
	s.log.Info().Uint("order_id", orderID).Str("method", string(method)).
		Str("amount", amount.StringFixed(2)).Msg("order finalized by staff")
	s.publisher.Publish(ctx,
		paymentEvent(event.PaymentCompleted, result.Payment),
		orderEvent(event.OrderStatusChanged, result.Order, from),
	)

	return result, nil
}

func (s *paymentServiceImpl) RecordInitiation(ctx context.Context, payment *model.Payment, gateway string, init *client.GatewayInitiation) error {
	if err := s.paymentRepo.SetGatewayInitiation(ctx, payment.ID, gateway, init.Reference, init.RedirectURL); err != nil {
		return fmt.Errorf("store gateway initiation: %w", err)
	}
	payment.Gateway = gateway
	payment.GatewayRef = init.Reference
	payment.PaymentLink = init.RedirectURL

	s.invalidateOrder(ctx, payment.OrderID)
	return nil
}

// FailInitiation marks a payment failed when its gateway could not be reached.
// The order stays pending so the customer can retry.
func (s *paymentServiceImpl) FailInitiation(ctx context.Context, payment *model.Payment, cause error) error {
	ok, err := s.paymentRepo.Finalize(ctx, nil, payment.ID, model.PaymentFailed, nil)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if !ok {
		return nil
	}
	payment.Status = model.PaymentFailed
	s.invalidateOrder(ctx, payment.OrderID)

	s.log.Warn().Err(cause).Uint("order_id", payment.OrderID).Str("ref", payment.TransactionRef).Msg("payment initiation failed")
	s.publisher.Publish(ctx, paymentEvent(event.PaymentFailed, payment))
	return nil
}

// SweepStale fails pending payments older than olderThan, at most limit per call.
func (s *paymentServiceImpl) SweepStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := s.paymentRepo.FindPendingBefore(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("find stale payments: %w", err)
	}

	swept := 0
	for _, payment := range stale {
		ok, err := s.paymentRepo.Finalize(ctx, nil, payment.ID, model.PaymentFailed, nil)
		if err != nil {
			return swept, fmt.Errorf("expire payment %d: %w", payment.ID, err)
		}
		if !ok {
			continue
		}
		payment.Status = model.PaymentFailed
		swept++
		s.invalidateOrder(ctx, payment.OrderID)
		s.publisher.Publish(ctx, paymentEvent(event.PaymentFailed, payment))
	}

	return swept, nil
}

// invalidateOrder drops the cached copy of an order whose payments changed.
func (s *paymentServiceImpl) invalidateOrder(ctx context.Context, orderID uint) {
	code, err := s.orderRepo.TrackingCodeOf(ctx, orderID)
	if err != nil {
		s.log.Warn().Err(err).Uint("order_id", orderID).Msg("resolve tracking code for cache invalidation")
		return
	}
	s.cache.Invalidate(ctx, code)
}
