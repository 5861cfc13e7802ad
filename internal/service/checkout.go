package service

import (
	"context"
	"dinedash-backend/internal/apperr"
	"dinedash-backend/internal/client"
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/event"
	"dinedash-backend/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type GatewaySelector interface {
	For(method model.PaymentMethod) client.PaymentGateway
	Named(name string) (client.PaymentGateway, bool)
}

type CheckoutResult struct {
	Order   *model.Order
	Payment *model.Payment
	// AwaitingPayment is set for checkouts that still need verification.
	AwaitingPayment bool
}

type CheckoutService interface {
	Checkout(ctx context.Context, req *dto.CheckoutRequest) (*CheckoutResult, error)
}

type checkoutServiceImpl struct {
	db         *gorm.DB
	validator  *dto.Validator
	orderSvc   OrderService
	paymentSvc PaymentService
	gateways   GatewaySelector
	publisher  event.Publisher
	log        zerolog.Logger
}

func NewCheckoutService(
	db *gorm.DB,
	validator *dto.Validator,
	orderSvc OrderService,
	paymentSvc PaymentService,
	gateways GatewaySelector,
	publisher event.Publisher,
	log zerolog.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		db:         db,
		validator:  validator,
		orderSvc:   orderSvc,
		paymentSvc: paymentSvc,
		gateways:   gateways,
		publisher:  publisher,
		log:        log.With().Str("component", "checkout_service").Logger(),
	}
}

// Checkout creates the order and its first payment attempt in one transaction.
// Gateways are only contacted after commit, so no lock is held across the
// network call.
func (s *checkoutServiceImpl) Checkout(ctx context.Context, req *dto.CheckoutRequest) (*CheckoutResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	in := PaymentInput{
		Method:       model.PaymentMethod(req.Payment.Method),
		Amount:       req.Payment.Amount,
		Provider:     req.Payment.Provider,
		Phone:        req.Payment.Phone,
		BankDetails:  req.Payment.BankDetails,
		PaymentToken: req.Payment.PaymentToken,
	}

	result := &CheckoutResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderSvc.Create(ctx, tx, &req.Order)
		if err != nil {
			return err
		}

		payment, err := s.paymentSvc.Initiate(ctx, tx, order, in)
		if err != nil {
			return err
		}

		result.Order = order
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, payment := result.Order, result.Payment
	events := []event.Event{orderEvent(event.OrderCreated, order, "")}

	if payment.Status == model.PaymentCompleted {
		events = append(events,
			paymentEvent(event.PaymentCompleted, payment),
			orderEvent(event.OrderStatusChanged, order, model.OrderPending),
		)
		s.publisher.Publish(ctx, events...)
		s.log.Info().Uint("order_id", order.ID).Str("method", string(payment.Method)).Msg("checkout settled")
		return result, nil
	}

	s.publisher.Publish(ctx, events...)
	result.AwaitingPayment = true

	gateway := s.gateways.For(payment.Method)
	init, err := gateway.Initiate(ctx, &client.GatewayRequest{
		OrderID:        order.ID,
		TrackingCode:   order.TrackingCode,
		TransactionRef: payment.TransactionRef,
		Amount:         payment.Amount,
		Method:         payment.Method,
		CustomerName:   order.CustomerName,
		CustomerEmail:  order.CustomerEmail,
		Phone:          payment.Phone,
		Provider:       payment.Provider,
		BankDetails:    payment.BankDetails,
		PaymentToken:   payment.PaymentToken,
		CallbackURL:    payment.PaymentLink,
	})
	if err != nil {
		if failErr := s.paymentSvc.FailInitiation(ctx, payment, err); failErr != nil {
			s.log.Error().Err(failErr).Uint("payment_id", payment.ID).Msg("mark payment failed")
		}
		return nil, apperr.Wrap(apperr.KindGatewayFailure, err,
			"payment gateway %s is unavailable; order %s remains pending", gateway.Name(), order.TrackingCode)
	}

	if err := s.paymentSvc.RecordInitiation(ctx, payment, gateway.Name(), init); err != nil {
		return nil, err
	}

	if init.Outcome != "" {
		// the gateway settled the sale while we waited; apply it now
		settled, err := s.paymentSvc.Verify(ctx, VerifyInput{
			TransactionRef:       payment.TransactionRef,
			OrderID:              order.ID,
			Outcome:              init.Outcome,
			GatewayTransactionID: init.TransactionID,
			Confirmed:            true,
		})
		if err != nil {
			return nil, err
		}
		result.Order, result.Payment = settled.Order, settled.Payment
		result.AwaitingPayment = false

		s.log.Info().Uint("order_id", order.ID).Str("method", string(payment.Method)).
			Str("gateway", gateway.Name()).Str("payment_status", string(settled.Payment.Status)).Msg("checkout settled by gateway")
		return result, nil
	}

	s.log.Info().Uint("order_id", order.ID).Str("method", string(payment.Method)).
		Str("gateway", gateway.Name()).Msg("checkout awaiting payment")

	return result, nil
}
