package models

import "github.com/shopspring/decimal"

// Product is the catalog view the checkout core needs: identity, pricing and
// the desi value used as a shipping weight proxy. Catalog management itself
// lives outside this service.
type Product struct {
	ID    int64
	Name  string
	Code  string
	Price decimal.Decimal
	Desi  decimal.Decimal
}

// ProductVariant optionally overrides the parent product's price and desi.
// Nil fields mean "inherit from product".
type ProductVariant struct {
	ID        int64
	ProductID int64
	Name      string
	Code      string
	Price     *decimal.Decimal
	Desi      *decimal.Decimal
}

// EffectivePrice returns the variant price when one is set, otherwise the
// product price.
func (p *Product) EffectivePrice(v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}

// EffectiveDesi returns the variant desi when one is set, otherwise the
// product desi.
func (p *Product) EffectiveDesi(v *ProductVariant) decimal.Decimal {
	if v != nil && v.Desi != nil {
		return *v.Desi
	}
	return p.Desi
}
