package model

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// moneyTolerance is the allowed drift between submitted and recomputed
// financial fields. Values come from clients that round to cents.
var moneyTolerance = decimal.RequireFromString("0.01")

// Totals holds the authoritative financial fields derived from the line
// items and the tax rate.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals derives subtotal, tax amount and total from the given
// items. Pure and deterministic; it must be re-run whenever an item or
// the tax rate changes so the UI and the submission stay consistent.
// Each item's Amount is quantity times unit price regardless of what the
// caller put there.
func ComputeTotals(items []InvoiceItem, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		amount := lineAmount(it)
		subtotal = subtotal.Add(amount)
	}
	taxAmount := subtotal.Mul(taxRate).Div(hundred)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}
}

// ApplyTotals recomputes every derived field on the invoice in place:
// item amounts, subtotal, tax amount and total.
func ApplyTotals(inv *Invoice) {
	for i := range inv.Items {
		inv.Items[i].Amount = lineAmount(inv.Items[i])
	}
	t := ComputeTotals(inv.Items, inv.TaxRate)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
}

func lineAmount(it InvoiceItem) decimal.Decimal {
	return decimal.NewFromInt(it.Quantity).Mul(it.UnitPrice)
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(moneyTolerance)
}
