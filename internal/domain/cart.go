package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// CartLineItem is one product entry in a customer's cart.
type CartLineItem struct {
	ProductID          string  `json:"productId"`
	Name               string  `json:"name"`
	UnitPrice          float64 `json:"unitPrice"`
	UnitCarbonEmission float64 `json:"unitCarbonEmission"`
	Quantity           int     `json:"quantity"`
	TraderID           string  `json:"traderId"`
	Image              string  `json:"image,omitempty"`
}

// Cart is the persisted shape of a customer's cart.
type Cart struct {
	CustomerID string         `json:"customerId"`
	Items      []CartLineItem `json:"items"`
}

// NewLineItem builds a cart line from a catalog product.
// Missing or invalid numeric fields are treated as zero and the price is
// rounded to cents.
func NewLineItem(p Product, quantity int) CartLineItem {
	return CartLineItem{
		ProductID:          p.ID.Hex(),
		Name:               p.Name,
		UnitPrice:          Cents(p.Price),
		UnitCarbonEmission: NonNegative(p.CarbonEmission),
		Quantity:           quantity,
		TraderID:           p.TraderID,
		Image:              p.Image,
	}
}

// NonNegative maps NaN, infinities and negative values to zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Cents returns v as a non-negative amount rounded half away from zero to
// whole cents.
func Cents(v float64) float64 {
	return decimal.NewFromFloat(NonNegative(v)).Round(2).InexactFloat64()
}
