package model_test

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/quickbill/dashboard/model"
	"github.com/shopspring/decimal"
)

// validInvoice builds an invoice that passes every check: two items
// (2 x 500 + 1 x 400), zero tax, due 30 days after issue.
func validInvoice() *model.Invoice {
	inv := &model.Invoice{
		UserID:    "user-1",
		Number:    "INV-TEST-0001",
		Status:    model.InvoiceStatusDraft,
		IssueDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		TaxRate:   decimal.Zero,
		Items: []model.InvoiceItem{
			item("Website redesign", 2, "500"),
			item("Logo refresh", 1, "400"),
		},
		ClientName:  "Acme Corporation",
		ClientEmail: "billing@acme.example",
	}
	model.ApplyTotals(inv)
	return inv
}

func fieldsOf(errs model.ValidationErrors) []string { return errs.Fields() }

func TestValidate_OK(t *testing.T) {
	inv := validInvoice()
	if errs := model.Validate(inv); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if want := decimal.RequireFromString("1400"); !inv.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", inv.Total, want)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*model.Invoice)
		wantField string
	}{
		{
			name:      "missing number",
			mutate:    func(inv *model.Invoice) { inv.Number = "" },
			wantField: "invoice_number",
		},
		{
			name:      "lowercase number rejected",
			mutate:    func(inv *model.Invoice) { inv.Number = "inv-123" },
			wantField: "invoice_number",
		},
		{
			name:      "unknown status",
			mutate:    func(inv *model.Invoice) { inv.Status = "archived" },
			wantField: "status",
		},
		{
			name: "tax rate above 100",
			mutate: func(inv *model.Invoice) {
				inv.TaxRate = decimal.NewFromInt(101)
				model.ApplyTotals(inv)
			},
			wantField: "tax_rate",
		},
		{
			name:      "notes too long",
			mutate:    func(inv *model.Invoice) { inv.Notes = strings.Repeat("x", 1001) },
			wantField: "notes",
		},
		{
			name:      "bad client email",
			mutate:    func(inv *model.Invoice) { inv.ClientEmail = "not-an-email" },
			wantField: "client_email",
		},
		{
			name:      "due date before issue date",
			mutate:    func(inv *model.Invoice) { inv.DueDate = inv.IssueDate.AddDate(0, 0, -1) },
			wantField: "due_date",
		},
		{
			name:      "recurring without frequency",
			mutate:    func(inv *model.Invoice) { inv.IsRecurring = true },
			wantField: "recurring_frequency",
		},
		{
			name:      "frequency without recurring",
			mutate:    func(inv *model.Invoice) { inv.RecurringFrequency = model.RecurringMonthly },
			wantField: "recurring_frequency",
		},
		{
			name:      "empty item list",
			mutate:    func(inv *model.Invoice) { inv.Items = nil },
			wantField: "items",
		},
		{
			name: "too many items",
			mutate: func(inv *model.Invoice) {
				inv.Items = nil
				for range 51 {
					inv.Items = append(inv.Items, item("row", 1, "10"))
				}
				model.ApplyTotals(inv)
			},
			wantField: "items",
		},
		{
			name: "zero quantity",
			mutate: func(inv *model.Invoice) {
				inv.Items[0].Quantity = 0
				model.ApplyTotals(inv)
			},
			wantField: "items[0].quantity",
		},
		{
			name: "free line item rejected",
			mutate: func(inv *model.Invoice) {
				inv.Items[1].UnitPrice = decimal.Zero
				model.ApplyTotals(inv)
			},
			wantField: "items[1].unit_price",
		},
		{
			name: "amount not quantity times price",
			mutate: func(inv *model.Invoice) {
				inv.Items[0].Amount = decimal.NewFromInt(999)
				// totals submitted to match the forged amount
				inv.Subtotal = decimal.NewFromInt(1399)
				inv.Total = decimal.NewFromInt(1399)
			},
			wantField: "items[0].amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			tt.mutate(inv)
			errs := model.Validate(inv)
			if len(errs) == 0 {
				t.Fatalf("expected an error on %s, got none", tt.wantField)
			}
			if !slices.Contains(fieldsOf(errs), tt.wantField) {
				t.Errorf("errors %v do not mention %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidate_SubtotalMismatch(t *testing.T) {
	// Items imply 1400; a submitted subtotal of 1300 must fail on the
	// subtotal field (and, transitively, on total vs subtotal+tax).
	inv := validInvoice()
	inv.Subtotal = decimal.NewFromInt(1300)

	errs := model.Validate(inv)
	if !slices.Contains(fieldsOf(errs), "subtotal") {
		t.Fatalf("expected subtotal error, got %v", errs)
	}
}

func TestValidate_ToleranceAccepted(t *testing.T) {
	// Drift up to one cent is accepted on every cross-field check.
	inv := validInvoice()
	inv.Subtotal = inv.Subtotal.Add(decimal.RequireFromString("0.01"))
	inv.Total = inv.Total.Add(decimal.RequireFromString("0.01"))

	if errs := model.Validate(inv); len(errs) != 0 {
		t.Fatalf("one-cent drift should pass, got %v", errs)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	// One broken candidate, several independent violations: all of them
	// must be reported at once, field checks before cross-field checks.
	inv := validInvoice()
	inv.Number = "bad number"
	inv.DueDate = inv.IssueDate.AddDate(0, 0, -5)
	inv.Subtotal = decimal.NewFromInt(1300)

	errs := model.Validate(inv)
	fields := fieldsOf(errs)
	for _, want := range []string{"invoice_number", "due_date", "subtotal"} {
		if !slices.Contains(fields, want) {
			t.Errorf("missing error for %s in %v", want, fields)
		}
	}
	if slices.Index(fields, "invoice_number") > slices.Index(fields, "due_date") {
		t.Errorf("field errors should precede cross-field errors: %v", fields)
	}
}

func TestValidate_TotalMustBePositive(t *testing.T) {
	inv := validInvoice()
	inv.Items = nil
	model.ApplyTotals(inv) // all derived fields collapse to zero

	errs := model.Validate(inv)
	fields := fieldsOf(errs)
	if !slices.Contains(fields, "items") {
		t.Errorf("expected items error, got %v", errs)
	}
	if !slices.Contains(fields, "total") {
		t.Errorf("expected total error, got %v", errs)
	}
}

func TestValidateClient(t *testing.T) {
	c := &model.Client{Name: "A", Email: "nope", Phone: "abc", Country: "Atlantis"}
	errs := model.ValidateClient(c)
	fields := fieldsOf(errs)
	for _, want := range []string{"name", "email", "phone", "country"} {
		if !slices.Contains(fields, want) {
			t.Errorf("missing %s in %v", want, fields)
		}
	}

	ok := &model.Client{Name: "Acme Corporation", Email: "Billing@Acme.example", Phone: "+1 602 555 0101", Country: "Germany"}
	if errs := model.ValidateClient(ok); len(errs) != 0 {
		t.Errorf("expected valid client, got %v", errs)
	}
	if got := model.NormalizeCountry("Germany"); got != "DE" {
		t.Errorf("NormalizeCountry(Germany) = %q, want DE", got)
	}
	if got := model.NormalizeEmail("  Billing@Acme.example "); got != "billing@acme.example" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestValidatePayment(t *testing.T) {
	p := &model.Payment{Amount: decimal.Zero, Method: "barter"}
	errs := model.ValidatePayment(p)
	fields := fieldsOf(errs)
	for _, want := range []string{"invoice_id", "amount", "payment_method"} {
		if !slices.Contains(fields, want) {
			t.Errorf("missing %s in %v", want, fields)
		}
	}
}
