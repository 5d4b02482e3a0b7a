package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout. Card goes through the hosted
// checkout gateway; the others are confirmed out of band.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Order is the root aggregate created at checkout. OrderNumber is the
// human-facing identifier and doubles as the gateway conversation id.
// PaymentToken, once set, is immutable and is the only correlation key the
// reconciler accepts on the callback path.
type Order struct {
	ID             int64
	OrderNumber    string
	UserID         *int64
	GuestEmail     string
	GuestFirstName string
	GuestLastName  string
	GuestPhone     string

	BillingAddress  string
	ShippingAddress string

	SubTotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal

	Status         OrderStatus
	PaymentStatus  PaymentStatus
	ShippingStatus ShippingStatus

	PaymentMethod        PaymentMethod
	PaymentToken         string
	PaymentTransactionID string
	PaymentDate          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerEmail returns the address order notifications go to.
func (o *Order) CustomerEmail() string {
	return o.GuestEmail
}

// OrderItem is an immutable snapshot of a cart line at order time. Name,
// code and price are copied by value so catalog edits cannot alter
// historical totals.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	VariantID   *int64
	ProductName string
	ProductCode string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}
