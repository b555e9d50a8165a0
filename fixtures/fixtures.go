// Package fixtures provides shared test helpers: an in-memory database,
// a seeded baseline dataset and entity builders.
package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/quickbill/dashboard/model"
	"github.com/shopspring/decimal"
)

// DefaultUserID is the id of the user created by SeedTestData.
const DefaultUserID = "00000000-0000-4000-8000-000000000001"

// NewTestStore opens a throwaway in-memory database with the full schema.
func NewTestStore(t *testing.T) *model.DB {
	t.Helper()
	db, err := model.OpenMemory()
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	return db
}

// TestData is the baseline dataset written by SeedTestData.
type TestData struct {
	User    *model.User
	Client  *model.Client
	Invoice *model.Invoice
	Payment *model.Payment
}

// SeedTestData creates one user, one client, one sent invoice with two
// items and one payment against it.
func SeedTestData(t *testing.T, db *model.DB) *TestData {
	t.Helper()
	ctx := context.Background()

	user := &model.User{
		ID:       DefaultUserID,
		Email:    "test@example.com",
		FullName: "Test User",
	}
	if err := db.SetPassword(user, "secret123"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := db.CreateUser(user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	client := Client()
	if err := db.SaveClient(ctx, client); err != nil {
		t.Fatalf("save client: %v", err)
	}

	inv := Invoice(
		WithInvoiceClient(client),
		WithInvoiceStatus(model.InvoiceStatusSent),
	)
	if err := db.InsertInvoice(ctx, inv); err != nil {
		t.Fatalf("insert invoice: %v", err)
	}

	payment := Payment(inv.ID)
	if err := db.SavePayment(ctx, payment); err != nil {
		t.Fatalf("save payment: %v", err)
	}

	return &TestData{User: user, Client: client, Invoice: inv, Payment: payment}
}

// ---- builders ----

type InvoiceOption func(*model.Invoice)

func WithInvoiceNumber(n string) InvoiceOption {
	return func(inv *model.Invoice) { inv.Number = n }
}

func WithInvoiceStatus(s model.InvoiceStatus) InvoiceOption {
	return func(inv *model.Invoice) { inv.Status = s }
}

func WithInvoiceNotes(n string) InvoiceOption {
	return func(inv *model.Invoice) { inv.Notes = n }
}

func WithInvoiceDates(issue, due time.Time) InvoiceOption {
	return func(inv *model.Invoice) {
		inv.IssueDate = issue
		inv.DueDate = due
	}
}

func WithInvoiceItems(items ...model.InvoiceItem) InvoiceOption {
	return func(inv *model.Invoice) { inv.Items = items }
}

func WithInvoiceTaxRate(pct float64) InvoiceOption {
	return func(inv *model.Invoice) { inv.TaxRate = decimal.NewFromFloat(pct) }
}

func WithInvoiceRecurring(freq model.RecurringFrequency) InvoiceOption {
	return func(inv *model.Invoice) {
		inv.IsRecurring = true
		inv.RecurringFrequency = freq
	}
}

func WithInvoiceClient(c *model.Client) InvoiceOption {
	return func(inv *model.Invoice) {
		inv.ClientID = &c.ID
		inv.ClientName = c.Name
		inv.ClientEmail = c.Email
	}
}

// Invoice builds a valid draft invoice owned by the default user, with
// two line items and all derived fields computed.
func Invoice(opts ...InvoiceOption) *model.Invoice {
	issue := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := &model.Invoice{
		UserID:      DefaultUserID,
		Number:      model.GenerateInvoiceNumber("INV"),
		Status:      model.InvoiceStatusDraft,
		IssueDate:   issue,
		DueDate:     issue.AddDate(0, 1, 0),
		ClientName:  "Acme Corp",
		ClientEmail: "billing@acme.example",
		Items: []model.InvoiceItem{
			Item("Consulting", 2, 500),
			Item("Travel", 1, 400),
		},
	}
	for _, opt := range opts {
		opt(inv)
	}
	model.ApplyTotals(inv)
	return inv
}

// Item builds one line item from a whole-unit price.
func Item(desc string, qty int64, price int64) model.InvoiceItem {
	return model.InvoiceItem{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   decimal.NewFromInt(price),
	}
}

type ClientOption func(*model.Client)

func WithClientName(n string) ClientOption {
	return func(c *model.Client) { c.Name = n }
}

func WithClientEmail(e string) ClientOption {
	return func(c *model.Client) { c.Email = e }
}

func WithClientCountry(alpha2 string) ClientOption {
	return func(c *model.Client) { c.Country = alpha2 }
}

func Client(opts ...ClientOption) *model.Client {
	c := &model.Client{
		UserID:      DefaultUserID,
		Name:        "Acme Corp",
		Email:       "billing@acme.example",
		CompanyName: "Acme Corp Ltd.",
		Country:     "DE",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type PaymentOption func(*model.Payment)

func WithPaymentAmount(amount int64) PaymentOption {
	return func(p *model.Payment) { p.Amount = decimal.NewFromInt(amount) }
}

func WithPaymentMethod(m model.PaymentMethod) PaymentOption {
	return func(p *model.Payment) { p.Method = m }
}

func Payment(invoiceID string, opts ...PaymentOption) *model.Payment {
	p := &model.Payment{
		InvoiceID:   invoiceID,
		Amount:      decimal.NewFromInt(700),
		PaymentDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Method:      model.PaymentBankTransfer,
		Reference:   "SEPA-2025-0315",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
