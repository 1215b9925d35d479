// Package pricing derives monetary and emission totals from cart lines.
package pricing

import (
	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/shopspring/decimal"
)

// TaxRate is applied to the subtotal. Shipping is always free.
var TaxRate = decimal.NewFromFloat(0.10)

type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	TotalEmissions decimal.Decimal
}

// Aggregate recomputes all totals from scratch.
func Aggregate(items []domain.CartLineItem) Totals {
	subtotal := decimal.Zero
	emissions := decimal.Zero

	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(decimal.NewFromFloat(domain.NonNegative(item.UnitPrice)).Mul(qty))
		emissions = emissions.Add(decimal.NewFromFloat(domain.NonNegative(item.UnitCarbonEmission)).Mul(qty))
	}

	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		Total:          subtotal.Add(tax),
		TotalEmissions: emissions,
	}
}

// Summary is the JSON view of Totals with money rounded to cents.
type Summary struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"taxAmount"`
	Shipping       float64 `json:"shipping"`
	Total          float64 `json:"total"`
	TotalEmissions float64 `json:"totalEmissions"`
}

func (t Totals) Summary() Summary {
	return Summary{
		Subtotal:       t.Subtotal.Round(2).InexactFloat64(),
		TaxAmount:      t.TaxAmount.Round(2).InexactFloat64(),
		Total:          t.Total.Round(2).InexactFloat64(),
		TotalEmissions: t.TotalEmissions.InexactFloat64(),
	}
}
