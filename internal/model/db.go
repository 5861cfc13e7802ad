package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is a catalog entry. The ordering core only reads it.
type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Category    string          `gorm:"size:20;index;not null;default:main_course" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	IsAvailable bool            `gorm:"index;not null;default:true" json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	TrackingCode string      `gorm:"size:16;uniqueIndex;not null" json:"tracking_code"`
	OrderType    OrderType   `gorm:"size:16;not null" json:"order_type"`
	Status       OrderStatus `gorm:"size:20;index;not null" json:"status"`

	CustomerName  string `gorm:"size:200" json:"customer_name,omitempty"`
	CustomerEmail string `gorm:"size:254" json:"customer_email,omitempty"`
	CustomerPhone string `gorm:"size:20" json:"customer_phone,omitempty"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"` // items + delivery fee, frozen
	DeliveryFee decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"delivery_fee"`

	DeliveryAddress      string     `gorm:"type:text" json:"delivery_address,omitempty"`
	DeliveryInstructions string     `gorm:"type:text" json:"delivery_instructions,omitempty"`
	PickupTime           *time.Time `json:"pickup_time,omitempty"`

	Items    []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Payments []Payment   `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AmountDue is what a payment must cover. TotalAmount already carries the delivery fee.
func (o *Order) AmountDue() decimal.Decimal {
	return o.TotalAmount
}

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"index;not null" json:"-"`

	// nil once the catalog entry is removed; the snapshot below stays valid
	MenuItemID *uint     `gorm:"index" json:"menu_item_id"`
	MenuItem   *MenuItem `gorm:"constraint:OnDelete:SET NULL" json:"-"`

	ItemName  string          `gorm:"size:200;not null" json:"item_name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	CreatedAt time.Time       `json:"-"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Payment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        uint            `gorm:"uniqueIndex:idx_payment_order_ref;not null" json:"order_id"`
	TransactionRef string          `gorm:"size:100;uniqueIndex:idx_payment_order_ref;not null" json:"transaction_ref"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method         PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Status         PaymentStatus   `gorm:"size:10;index;not null" json:"status"`
	TransactionID  *string         `gorm:"size:100" json:"transaction_id"`
	Gateway        string          `gorm:"size:20" json:"gateway,omitempty"`
	GatewayRef     string          `gorm:"size:100" json:"gateway_ref,omitempty"`
	PaymentLink    string          `gorm:"type:text" json:"payment_link,omitempty"`

	Provider     string `gorm:"size:50" json:"provider,omitempty"`
	Phone        string `gorm:"size:20" json:"phone,omitempty"`
	BankDetails  string `gorm:"type:text" json:"bank_details,omitempty"`
	PaymentToken string `gorm:"size:255" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels lists every table the service migrates.
func AllModels() []any {
	return []any{&MenuItem{}, &Order{}, &OrderItem{}, &Payment{}}
}
