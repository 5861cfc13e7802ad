package model

import "slices"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderReady      OrderStatus = "ready"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderReady, OrderCancelled},
	OrderReady:      {OrderDelivered, OrderCompleted, OrderCancelled},
	OrderDelivered:  {OrderCompleted, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderReady, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo reports whether moving from s to target is a legal step.
// Staying in the same state is not a transition.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(orderTransitions[s], target)
}

// AwaitingCollection reports whether staff may collect payment out of band.
func (s OrderStatus) AwaitingCollection() bool {
	return s == OrderReady || s == OrderDelivered
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery, OrderTypePickup:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodOnline       PaymentMethod = "online"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankRedirect PaymentMethod = "bank_redirect"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodOnline, MethodMobileMoney, MethodBankRedirect:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// OutcomeSuccessful is the only gateway outcome that completes a payment.
const OutcomeSuccessful = "successful"
