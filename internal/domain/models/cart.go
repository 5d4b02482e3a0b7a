package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartOwner identifies who a cart belongs to: an authenticated user or an
// anonymous session. Exactly one side is set. It replaces any ambient
// session state; callers always pass the owner explicitly.
type CartOwner struct {
	UserID       int64
	SessionToken string
}

// UserOwner keys a cart by user id.
func UserOwner(userID int64) CartOwner {
	return CartOwner{UserID: userID}
}

// SessionOwner keys a cart by an anonymous session token.
func SessionOwner(token string) CartOwner {
	return CartOwner{SessionToken: token}
}

// IsUser reports whether the owner is an authenticated user.
func (o CartOwner) IsUser() bool {
	return o.UserID != 0
}

// CartLine is one product (or product variant) in a cart. UnitPrice is
// snapshotted when the line is added and is not refreshed on later catalog
// price changes.
type CartLine struct {
	ID        int64
	Owner     CartOwner
	ProductID int64
	VariantID *int64
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}

// LineTotal is quantity times the snapshotted unit price.
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSubtotal sums line totals over the cart snapshot.
func CartSubtotal(lines []*CartLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	return subtotal
}
