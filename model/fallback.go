package model

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed data/*.json
var fallbackFS embed.FS

// The fallback dataset is a static, locally bundled substitute for remote
// rows. It keeps the UI populated during development and demos when the
// backend is unreachable or the account is empty.

type fallbackItemRow struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	SortOrder   int             `json:"sort_order"`
}

type fallbackInvoiceRow struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	ClientID           *string           `json:"client_id"`
	Number             string            `json:"invoice_number"`
	Status             InvoiceStatus     `json:"status"`
	IssueDate          time.Time         `json:"issue_date"`
	DueDate            time.Time         `json:"due_date"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	TaxRate            decimal.Decimal   `json:"tax_rate"`
	TaxAmount          decimal.Decimal   `json:"tax_amount"`
	Total              decimal.Decimal   `json:"total"`
	Notes              string            `json:"notes"`
	IsRecurring        bool              `json:"is_recurring"`
	RecurringFrequency string            `json:"recurring_frequency"`
	ClientName         string            `json:"client_name"`
	ClientEmail        string            `json:"client_email"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Items              []fallbackItemRow `json:"items"`
}

type fallbackClientRow struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Country     string    `json:"country"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type fallbackPaymentRow struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      PaymentMethod   `json:"payment_method"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

var loadFallback = sync.OnceValues(func() (*fallbackData, error) {
	fd := &fallbackData{}
	if err := decodeFallback("data/invoices.json", &fd.invoices); err != nil {
		return nil, err
	}
	if err := decodeFallback("data/clients.json", &fd.clients); err != nil {
		return nil, err
	}
	if err := decodeFallback("data/payments.json", &fd.payments); err != nil {
		return nil, err
	}
	return fd, nil
})

type fallbackData struct {
	invoices []fallbackInvoiceRow
	clients  []fallbackClientRow
	payments []fallbackPaymentRow
}

func decodeFallback(name string, out any) error {
	raw, err := fallbackFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("fallback dataset %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fallback dataset %s: %w", name, err)
	}
	return nil
}

// FallbackInvoices returns a fresh copy of the bundled invoice dataset in
// file order (most recent first).
func FallbackInvoices() []Invoice {
	fd, err := loadFallback()
	if err != nil {
		// The dataset ships inside the binary; failing to parse it is a
		// build defect, not a runtime condition.
		panic(err)
	}
	out := make([]Invoice, 0, len(fd.invoices))
	for _, row := range fd.invoices {
		out = append(out, row.toInvoice())
	}
	return out
}

// FallbackInvoiceByID looks an invoice up in the bundled dataset. The
// second return value is false when the id is unknown.
func FallbackInvoiceByID(id string) (*Invoice, bool) {
	for _, inv := range FallbackInvoices() {
		if inv.ID == id {
			return &inv, true
		}
	}
	return nil, false
}

// FallbackClients returns a fresh copy of the bundled client dataset.
func FallbackClients() []Client {
	fd, err := loadFallback()
	if err != nil {
		panic(err)
	}
	out := make([]Client, 0, len(fd.clients))
	for _, row := range fd.clients {
		out = append(out, Client{
			ID:          row.ID,
			UserID:      row.UserID,
			Name:        row.Name,
			Email:       row.Email,
			CompanyName: row.CompanyName,
			Address:     row.Address,
			Phone:       row.Phone,
			Country:     row.Country,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out
}

// FallbackPayments returns the bundled payments for one invoice.
func FallbackPayments(invoiceID string) []Payment {
	fd, err := loadFallback()
	if err != nil {
		panic(err)
	}
	var out []Payment
	for _, row := range fd.payments {
		if row.InvoiceID != invoiceID {
			continue
		}
		out = append(out, Payment{
			ID:          row.ID,
			InvoiceID:   row.InvoiceID,
			Amount:      row.Amount,
			PaymentDate: row.PaymentDate,
			Method:      row.Method,
			Reference:   row.Reference,
			Notes:       row.Notes,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out
}

func (row fallbackInvoiceRow) toInvoice() Invoice {
	inv := Invoice{
		ID:                 row.ID,
		UserID:             row.UserID,
		ClientID:           row.ClientID,
		Number:             row.Number,
		Status:             row.Status,
		IssueDate:          row.IssueDate,
		DueDate:            row.DueDate,
		Subtotal:           row.Subtotal,
		TaxRate:            row.TaxRate,
		TaxAmount:          row.TaxAmount,
		Total:              row.Total,
		Notes:              row.Notes,
		IsRecurring:        row.IsRecurring,
		RecurringFrequency: RecurringFrequency(row.RecurringFrequency),
		ClientName:         row.ClientName,
		ClientEmail:        row.ClientEmail,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	for _, it := range row.Items {
		inv.Items = append(inv.Items, InvoiceItem{
			ID:          it.ID,
			InvoiceID:   it.InvoiceID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
			SortOrder:   it.SortOrder,
		})
	}
	return inv
}
