package client

import (
	"context"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/model"
	"fmt"
	"net/url"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
)

type braintreeClientImpl struct {
	gateway *braintree.Braintree
}

// NewBraintreeClient initializes the Braintree SDK gateway for card sales.
func NewBraintreeClient(cfg *config.Braintree) PaymentGateway {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeClientImpl{
		gateway: gateway,
	}
}

func (c *braintreeClientImpl) Name() string { return "braintree" }

// Initiate runs a sale against the card nonce. Braintree answers synchronously,
// so the initiation already carries the terminal outcome.
func (c *braintreeClientImpl) Initiate(ctx context.Context, gr *GatewayRequest) (*GatewayInitiation, error) {
	if gr.PaymentToken == "" {
		return nil, fmt.Errorf("braintree sale needs a payment method nonce")
	}

	req := &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             toBraintreeDecimal(gr.Amount),
		PaymentMethodNonce: gr.PaymentToken,
		OrderId:            gr.TransactionRef,
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true,
		},
	}

	tx, err := c.gateway.Transaction().Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("transaction creation failed: %w", err)
	}

	outcome := saleOutcome(tx.Status)

	return &GatewayInitiation{
		Reference:     tx.Id,
		RedirectURL:   gr.CallbackURL + "&outcome=" + outcome + "&transaction_id=" + url.QueryEscape(tx.Id),
		Outcome:       outcome,
		TransactionID: tx.Id,
	}, nil
}

// Confirm looks the sale up again so a replayed callback link cannot claim a
// sale that Braintree voided or declined.
func (c *braintreeClientImpl) Confirm(ctx context.Context, cr *ConfirmRequest) (*Confirmation, error) {
	if cr.Outcome != model.OutcomeSuccessful {
		return passthrough(cr), nil
	}

	id := cr.GatewayRef
	if id == "" {
		id = cr.TransactionID
	}
	if id == "" {
		return nil, fmt.Errorf("braintree transaction id is unknown for %s", cr.TransactionRef)
	}

	tx, err := c.gateway.Transaction().Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find braintree transaction: %w", err)
	}
	if tx.OrderId != cr.TransactionRef {
		return nil, fmt.Errorf("braintree transaction %s belongs to %s, not %s", id, tx.OrderId, cr.TransactionRef)
	}

	return &Confirmation{Outcome: saleOutcome(tx.Status), TransactionID: tx.Id}, nil
}

func saleOutcome(status braintree.TransactionStatus) string {
	switch status {
	case braintree.TransactionStatusAuthorized,
		braintree.TransactionStatusSubmittedForSettlement,
		braintree.TransactionStatusSettling,
		braintree.TransactionStatusSettled:
		return model.OutcomeSuccessful
	default:
		return "declined"
	}
}

// toBraintreeDecimal converts to Braintree's (unscaled, scale) form with two places.
func toBraintreeDecimal(amount decimal.Decimal) *braintree.Decimal {
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return braintree.NewDecimal(cents, 2)
}
