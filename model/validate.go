package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxItems    = 50
	maxNotesLen = 1000
	maxDescLen  = 200
)

var (
	numberPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^\+?[0-9 ()./-]{5,30}$`)

	minUnitPrice = decimal.RequireFromString("0.01")
)

// Validate checks a candidate invoice and returns every violation found,
// in a stable order: field-level checks first, then the cross-field
// consistency checks (due date, subtotal, tax amount, total). It returns
// nil when the invoice is well formed.
func Validate(inv *Invoice) ValidationErrors {
	var errs ValidationErrors

	if inv.Number == "" {
		errs = errs.add("invoice_number", "invoice number is required")
	} else if !numberPattern.MatchString(inv.Number) {
		errs = errs.add("invoice_number", "invoice number may only contain uppercase letters, digits and dashes")
	}
	if !inv.Status.Valid() {
		errs = errs.add("status", fmt.Sprintf("unknown status %q", inv.Status))
	}
	if inv.IssueDate.IsZero() {
		errs = errs.add("issue_date", "issue date is required")
	}
	if inv.DueDate.IsZero() {
		errs = errs.add("due_date", "due date is required")
	}
	if inv.TaxRate.IsNegative() || inv.TaxRate.GreaterThan(hundred) {
		errs = errs.add("tax_rate", "tax rate must be between 0 and 100")
	}
	if len(inv.Notes) > maxNotesLen {
		errs = errs.add("notes", fmt.Sprintf("notes must be at most %d characters", maxNotesLen))
	}
	if inv.ClientEmail != "" && !emailPattern.MatchString(NormalizeEmail(inv.ClientEmail)) {
		errs = errs.add("client_email", "client email is not valid")
	}

	// Recurrence frequency is present exactly when the invoice recurs.
	if inv.IsRecurring {
		if !inv.RecurringFrequency.Valid() {
			errs = errs.add("recurring_frequency", "recurring invoices need a frequency of weekly, monthly, quarterly or yearly")
		}
	} else if inv.RecurringFrequency != "" {
		errs = errs.add("recurring_frequency", "frequency is only allowed on recurring invoices")
	}

	errs = append(errs, validateItems(inv.Items)...)

	// Cross-field checks, in this order. Each failing check yields one
	// error tagged with the field it concerns.
	if !inv.IssueDate.IsZero() && !inv.DueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		errs = errs.add("due_date", "due date must be on or after the issue date")
	}
	want := ComputeTotals(inv.Items, inv.TaxRate)
	if !withinTolerance(inv.Subtotal, want.Subtotal) {
		errs = errs.add("subtotal", fmt.Sprintf("subtotal %s does not match the item sum %s",
			inv.Subtotal.StringFixed(2), want.Subtotal.StringFixed(2)))
	}
	if !withinTolerance(inv.TaxAmount, want.TaxAmount) {
		errs = errs.add("tax_amount", fmt.Sprintf("tax amount %s does not match %s%% of the subtotal",
			inv.TaxAmount.StringFixed(2), inv.TaxRate.String()))
	}
	if !withinTolerance(inv.Total, inv.Subtotal.Add(inv.TaxAmount)) {
		errs = errs.add("total", "total does not match subtotal plus tax")
	}
	if !inv.Total.IsPositive() {
		errs = errs.add("total", "total must be greater than zero")
	}
	return errs
}

func validateItems(items []InvoiceItem) ValidationErrors {
	var errs ValidationErrors
	if len(items) == 0 {
		return errs.add("items", "at least one line item is required")
	}
	if len(items) > maxItems {
		return errs.add("items", fmt.Sprintf("at most %d line items are allowed", maxItems))
	}
	for i, it := range items {
		path := func(f string) string { return fmt.Sprintf("items[%d].%s", i, f) }
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			errs = errs.add(path("description"), "description is required")
		} else if len(it.Description) > maxDescLen {
			errs = errs.add(path("description"), fmt.Sprintf("description must be at most %d characters", maxDescLen))
		}
		if it.Quantity < 1 {
			errs = errs.add(path("quantity"), "quantity must be a whole number of at least 1")
		}
		if it.UnitPrice.LessThan(minUnitPrice) {
			// Free line items are rejected on purpose.
			errs = errs.add(path("unit_price"), "unit price must be at least 0.01")
		}
		if !it.Amount.Equal(lineAmount(it)) {
			errs = errs.add(path("amount"), "amount must equal quantity times unit price")
		}
	}
	return errs
}
