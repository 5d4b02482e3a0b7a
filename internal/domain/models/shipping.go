package models

import "github.com/shopspring/decimal"

// ShippingRate is one desi tier: [MinDesi, MaxDesi) with a flat cost. A nil
// MaxDesi means the tier is unbounded above. Exactly one active rate carries
// IsDefault and serves as the fallback when no tier matches. When the cart
// subtotal reaches FreeThreshold (if set), shipping is free.
type ShippingRate struct {
	ID            int64
	Name          string
	MinDesi       decimal.Decimal
	MaxDesi       *decimal.Decimal
	Cost          decimal.Decimal
	FreeThreshold *decimal.Decimal
	IsDefault     bool
	IsActive      bool
}

// Contains reports whether desi falls inside the tier's half-open range.
func (r *ShippingRate) Contains(desi decimal.Decimal) bool {
	if desi.LessThan(r.MinDesi) {
		return false
	}
	if r.MaxDesi != nil && desi.GreaterThanOrEqual(*r.MaxDesi) {
		return false
	}
	return true
}
