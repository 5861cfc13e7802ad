package dto

import (
	"dinedash-backend/internal/model"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	MenuItemID uint `json:"menu_item_id" validate:"required"`
	Quantity   int  `json:"quantity" validate:"required,min=1,max=100"`
}

type CreateOrderRequest struct {
	CustomerName  string `json:"customer_name" validate:"omitempty,max=200"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email,max=254"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=20"`

	OrderType   string           `json:"order_type" validate:"required,oneof=dine_in takeaway delivery pickup"`
	Items       []Item           `json:"items" validate:"required,min=1,dive"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee"`

	DeliveryAddress      string     `json:"delivery_address" validate:"max=500"`
	DeliveryInstructions string     `json:"delivery_instructions" validate:"max=500"`
	PickupTime           *time.Time `json:"pickup_time"`
}

func (r *CreateOrderRequest) crossCheck(prefix string, fields map[string]string) {
	switch model.OrderType(r.OrderType) {
	case model.OrderTypeDelivery:
		if r.DeliveryAddress == "" {
			fields[prefix+"delivery_address"] = "required for delivery orders"
		}
	case model.OrderTypePickup:
		if r.PickupTime == nil {
			fields[prefix+"pickup_time"] = "required for pickup orders"
		}
	}
	if r.DeliveryFee != nil && r.DeliveryFee.IsNegative() {
		fields[prefix+"delivery_fee"] = "must not be negative"
	}
}

type PaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card online mobile_money bank_redirect"`
	// Amount defaults to the order's amount due.
	Amount *decimal.Decimal `json:"amount"`

	Provider     string `json:"provider" validate:"max=50"`
	Phone        string `json:"phone" validate:"max=20"`
	BankDetails  string `json:"bank_details" validate:"max=1000"`
	PaymentToken string `json:"payment_token" validate:"max=255"`
}

func (r *PaymentRequest) crossCheck(prefix string, fields map[string]string) {
	switch model.PaymentMethod(r.Method) {
	case model.MethodMobileMoney:
		if r.Phone == "" {
			fields[prefix+"phone"] = "required for mobile_money payments"
		}
		if r.Provider == "" {
			fields[prefix+"provider"] = "required for mobile_money payments"
		}
	case model.MethodBankRedirect:
		if r.BankDetails == "" {
			fields[prefix+"bank_details"] = "required for bank_redirect payments"
		}
	case model.MethodCard:
		if r.PaymentToken == "" {
			fields[prefix+"payment_token"] = "required for card payments"
		}
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		fields[prefix+"amount"] = "must be positive"
	}
}

type CheckoutRequest struct {
	Order   CreateOrderRequest `json:"order"`
	Payment PaymentRequest     `json:"payment"`
}

func (r *CheckoutRequest) crossCheck(prefix string, fields map[string]string) {
	r.Order.crossCheck(prefix+"order.", fields)
	r.Payment.crossCheck(prefix+"payment.", fields)
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

type FinalizeRequest struct {
	OrderID       uint            `json:"order_id" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash card online mobile_money bank_redirect"`
	Amount        decimal.Decimal `json:"amount"`
}

func (r *FinalizeRequest) crossCheck(prefix string, fields map[string]string) {
	if !r.Amount.IsPositive() {
		fields[prefix+"amount"] = "must be positive"
	}
}

type VerifyQuery struct {
	Ref           string `query:"ref"`
	TxRef         string `query:"tx_ref"`
	OrderID       uint   `query:"order_id"`
	Outcome       string `query:"outcome"`
	Status        string `query:"status"`
	TransactionID string `query:"transaction_id"`
}

// Reference accepts Flutterwave's tx_ref when ref is absent.
func (q *VerifyQuery) Reference() string {
	if q.Ref != "" {
		return q.Ref
	}
	return q.TxRef
}

func (q *VerifyQuery) Result() string {
	if q.Outcome != "" {
		return q.Outcome
	}
	return q.Status
}

const StatusPendingPaymentRedirect = "PENDING_PAYMENT_REDIRECT"

type CheckoutResponse struct {
	Status         string         `json:"status,omitempty"`
	Message        string         `json:"message"`
	Order          *model.Order   `json:"order"`
	Payment        *model.Payment `json:"payment"`
	TransactionRef string         `json:"transaction_ref"`
	PaymentLink    string         `json:"payment_link,omitempty"`
}

type VerifyResponse struct {
	Message  string         `json:"message"`
	Replayed bool           `json:"replayed"`
	OrderID  uint           `json:"order_id"`
	Order    *model.Order   `json:"order"`
	Payment  *model.Payment `json:"payment"`
}

type FinalizeResponse struct {
	Message string         `json:"message"`
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment"`
}

type MenuResponse struct {
	Items []*model.MenuItem `json:"items"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type ErrorResponse struct {
	Error   bool              `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}
