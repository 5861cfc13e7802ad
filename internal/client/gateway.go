package client

import (
	"context"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentGateway starts a payment with an external processor and confirms the
// outcome a verification callback reports before it is applied.
type PaymentGateway interface {
	Name() string
	Initiate(ctx context.Context, req *GatewayRequest) (*GatewayInitiation, error)
	Confirm(ctx context.Context, req *ConfirmRequest) (*Confirmation, error)
}

type GatewayRequest struct {
	OrderID        uint
	TrackingCode   string
	TransactionRef string
	Amount         decimal.Decimal
	Method         model.PaymentMethod

	CustomerName  string
	CustomerEmail string
	Phone         string
	Provider      string
	BankDetails   string
	PaymentToken  string

	// CallbackURL is our verification endpoint with ref and order_id already set.
	CallbackURL string
}

type GatewayInitiation struct {
	Reference   string // processor-side id, may be empty
	RedirectURL string // where the customer (or processor) goes next

	// Outcome is set when the processor settled the payment during Initiate.
	Outcome       string
	TransactionID string
}

type ConfirmRequest struct {
	TransactionRef string
	GatewayRef     string
	Amount         decimal.Decimal

	// reported by the callback
	Outcome       string
	TransactionID string
}

// Confirmation is the processor's own view of a payment.
type Confirmation struct {
	Outcome       string
	TransactionID string
}

func passthrough(req *ConfirmRequest) *Confirmation {
	return &Confirmation{Outcome: req.Outcome, TransactionID: req.TransactionID}
}

type mockGateway struct{}

// NewMockGateway returns a gateway that hands back our own verification link
// with a successful outcome, the way the hosted checkout would on approval.
func NewMockGateway() PaymentGateway {
	return &mockGateway{}
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) Initiate(ctx context.Context, req *GatewayRequest) (*GatewayInitiation, error) {
	return &GatewayInitiation{
		Reference:   "MOCK-" + uuid.NewString(),
		RedirectURL: req.CallbackURL + "&outcome=" + model.OutcomeSuccessful,
	}, nil
}

// Confirm trusts the callback; the mock gateway has nothing to ask.
func (g *mockGateway) Confirm(ctx context.Context, req *ConfirmRequest) (*Confirmation, error) {
	return passthrough(req), nil
}

type GatewayRouter struct {
	fallback PaymentGateway
	byMethod map[model.PaymentMethod]PaymentGateway
	byName   map[string]PaymentGateway
}

// NewGatewayRouter wires every configured processor to the methods it serves
// and falls back to the mock gateway for the rest.
func NewGatewayRouter(cfg *config.Config, log zerolog.Logger) *GatewayRouter {
	fallback := NewMockGateway()
	router := &GatewayRouter{
		fallback: fallback,
		byMethod: make(map[model.PaymentMethod]PaymentGateway),
		byName:   map[string]PaymentGateway{fallback.Name(): fallback},
	}

	if cfg.BrainTree.Enabled() {
		router.Use(NewBraintreeClient(&cfg.BrainTree), model.MethodCard)
	}
	if cfg.Paypal.Enabled() {
		router.Use(NewPaypalClient(&cfg.Paypal), model.MethodOnline)
	}
	if cfg.Flutterwave.Enabled() {
		router.Use(NewFlutterwaveClient(&cfg.Flutterwave), model.MethodMobileMoney, model.MethodBankRedirect)
	}

	for _, m := range []model.PaymentMethod{model.MethodCard, model.MethodOnline, model.MethodMobileMoney, model.MethodBankRedirect} {
		log.Info().Str("method", string(m)).Str("gateway", router.For(m).Name()).Msg("payment gateway configured")
	}

	return router
}

func (r *GatewayRouter) Use(gateway PaymentGateway, methods ...model.PaymentMethod) {
	r.byName[gateway.Name()] = gateway
	for _, m := range methods {
		r.byMethod[m] = gateway
	}
}

func (r *GatewayRouter) For(method model.PaymentMethod) PaymentGateway {
	if g, ok := r.byMethod[method]; ok {
		return g
	}
	return r.fallback
}

// Named returns the gateway that initiated a payment, by its recorded name.
func (r *GatewayRouter) Named(name string) (PaymentGateway, bool) {
	g, ok := r.byName[name]
	return g, ok
}
