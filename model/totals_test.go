package model_test

import (
	"testing"

	"github.com/quickbill/dashboard/model"
	"github.com/shopspring/decimal"
)

func item(desc string, qty int64, price string) model.InvoiceItem {
	return model.InvoiceItem{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name          string
		items         []model.InvoiceItem
		taxRate       string
		wantSubtotal  string
		wantTaxAmount string
		wantTotal     string
	}{
		{
			name:          "no items",
			items:         nil,
			taxRate:       "19",
			wantSubtotal:  "0",
			wantTaxAmount: "0",
			wantTotal:     "0",
		},
		{
			name: "two items zero tax",
			items: []model.InvoiceItem{
				item("Website redesign", 2, "500"),
				item("Logo refresh", 1, "400"),
			},
			taxRate:       "0",
			wantSubtotal:  "1400",
			wantTaxAmount: "0",
			wantTotal:     "1400",
		},
		{
			name: "single item 19 percent",
			items: []model.InvoiceItem{
				item("Consulting", 1, "100"),
			},
			taxRate:       "19",
			wantSubtotal:  "100",
			wantTaxAmount: "19",
			wantTotal:     "119",
		},
		{
			name: "fractional prices",
			items: []model.InvoiceItem{
				item("Widgets", 3, "19.99"),
				item("Shipping", 1, "4.50"),
			},
			taxRate:       "7",
			wantSubtotal:  "64.47",
			wantTaxAmount: "4.5129",
			wantTotal:     "68.9829",
		},
		{
			name: "tax rate 100",
			items: []model.InvoiceItem{
				item("Luxury", 1, "50"),
			},
			taxRate:       "100",
			wantSubtotal:  "50",
			wantTaxAmount: "50",
			wantTotal:     "100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.ComputeTotals(tt.items, decimal.RequireFromString(tt.taxRate))
			if !got.Subtotal.Equal(decimal.RequireFromString(tt.wantSubtotal)) {
				t.Errorf("Subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			}
			if !got.TaxAmount.Equal(decimal.RequireFromString(tt.wantTaxAmount)) {
				t.Errorf("TaxAmount = %s, want %s", got.TaxAmount, tt.wantTaxAmount)
			}
			if !got.Total.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
			if !got.Total.Equal(got.Subtotal.Add(got.TaxAmount)) {
				t.Errorf("Total %s != Subtotal %s + TaxAmount %s", got.Total, got.Subtotal, got.TaxAmount)
			}
		})
	}
}

func TestApplyTotals(t *testing.T) {
	inv := &model.Invoice{
		TaxRate: decimal.RequireFromString("16"),
		Items: []model.InvoiceItem{
			// Amounts submitted wrong on purpose; ApplyTotals overrides.
			{Description: "Retainer", Quantity: 10, UnitPrice: decimal.RequireFromString("120"), Amount: decimal.NewFromInt(1)},
		},
	}
	model.ApplyTotals(inv)

	if want := decimal.RequireFromString("1200"); !inv.Items[0].Amount.Equal(want) {
		t.Errorf("item amount = %s, want %s", inv.Items[0].Amount, want)
	}
	if want := decimal.RequireFromString("1200"); !inv.Subtotal.Equal(want) {
		t.Errorf("subtotal = %s, want %s", inv.Subtotal, want)
	}
	if want := decimal.RequireFromString("192"); !inv.TaxAmount.Equal(want) {
		t.Errorf("tax amount = %s, want %s", inv.TaxAmount, want)
	}
	if want := decimal.RequireFromString("1392"); !inv.Total.Equal(want) {
		t.Errorf("total = %s, want %s", inv.Total, want)
	}
}
