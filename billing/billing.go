// Package billing computes order totals the way the till prints them.
package billing

import (
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/pos-sync/models"
)

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	CGST     float64 `json:"cgst"`
	SGST     float64 `json:"sgst"`
	Total    float64 `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// Compute prices the lines. Percentage discounts are capped at 100% and
// fixed discounts at the subtotal. GST applies to the discounted amount and
// only when the brand has it enabled. Every component is rounded to 2
// places before the total is summed.
func Compute(lines []models.OrderLine, discount float64, discountType string, brand models.BrandSettings) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	off := decimal.NewFromFloat(discount)
	if off.IsNegative() {
		off = decimal.Zero
	}
	switch discountType {
	case models.DiscountFixed:
		off = decimal.Min(off, subtotal)
	default:
		off = subtotal.Mul(decimal.Min(off, hundred)).Div(hundred)
	}
	off = off.Round(2)

	taxable := subtotal.Sub(off)
	cgst, sgst := decimal.Zero, decimal.Zero
	if brand.GSTEnabled {
		cgst = taxable.Mul(decimal.NewFromFloat(brand.CGSTRate)).Div(hundred).Round(2)
		sgst = taxable.Mul(decimal.NewFromFloat(brand.SGSTRate)).Div(hundred).Round(2)
	}

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Discount: off.InexactFloat64(),
		CGST:     cgst.InexactFloat64(),
		SGST:     sgst.InexactFloat64(),
		Total:    taxable.Add(cgst).Add(sgst).InexactFloat64(),
	}
}

// Apply fills the monetary fields of order from its own lines and discount.
func Apply(order *models.Order, brand models.BrandSettings) {
	t := Compute(order.Items, order.Discount, order.DiscountType, brand)
	order.Subtotal = t.Subtotal
	order.Discount = t.Discount
	order.CGST = t.CGST
	order.SGST = t.SGST
	order.Total = t.Total
}
