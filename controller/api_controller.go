package controller

import (
	"strings"
	"time"

	"github.com/quickbill/dashboard/model"

	"github.com/labstack/echo/v4"
)

type APIError struct {
	Code    string            `json:"code" xml:"code"`
	Message string            `json:"message" xml:"message"`
	Fields  []APIFieldError   `json:"fields,omitempty" xml:"field,omitempty"`
}

type APIFieldError struct {
	Field   string `json:"field" xml:"field"`
	Message string `json:"message" xml:"message"`
}

func apiError(code, msg string) *APIError { return &APIError{Code: code, Message: msg} }

// apiValidationError carries the full violation list, so a client can
// show every problem at once.
func apiValidationError(verrs model.ValidationErrors) *APIError {
	out := &APIError{Code: "validation_failed", Message: "the invoice is not valid"}
	out.Fields = make([]APIFieldError, len(verrs))
	for i, fe := range verrs {
		out.Fields[i] = APIFieldError{Field: fe.Field, Message: fe.Message}
	}
	return out
}

func wantsXML(c echo.Context) bool {
	if c.QueryParam("format") == "xml" {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, "application/xml") || strings.Contains(accept, "text/xml")
}

func respond(c echo.Context, status int, v any) error {
	if wantsXML(c) {
		return c.XML(status, v)
	}
	return c.JSON(status, v)
}

// ---- DTOs. Decimals render as strings. ----

type APIInvoiceItem struct {
	ID          string `json:"id,omitempty" xml:"id,omitempty"`
	Description string `json:"description" xml:"description"`
	Quantity    int64  `json:"quantity" xml:"quantity"`
	UnitPrice   string `json:"unit_price" xml:"unit_price"`
	Amount      string `json:"amount" xml:"amount"`
}

type APIInvoice struct {
	ID                 string           `json:"id" xml:"id"`
	Number             string           `json:"number" xml:"number"`
	Status             string           `json:"status" xml:"status"`
	ClientID           *string          `json:"client_id,omitempty" xml:"client_id,omitempty"`
	ClientName         string           `json:"client_name,omitempty" xml:"client_name,omitempty"`
	ClientEmail        string           `json:"client_email,omitempty" xml:"client_email,omitempty"`
	IssueDate          time.Time        `json:"issue_date" xml:"issue_date"`
	DueDate            time.Time        `json:"due_date" xml:"due_date"`
	Subtotal           string           `json:"subtotal" xml:"subtotal"`
	TaxRate            string           `json:"tax_rate" xml:"tax_rate"`
	TaxAmount          string           `json:"tax_amount" xml:"tax_amount"`
	Total              string           `json:"total" xml:"total"`
	Notes              string           `json:"notes,omitempty" xml:"notes,omitempty"`
	IsRecurring        bool             `json:"is_recurring" xml:"is_recurring"`
	RecurringFrequency string           `json:"recurring_frequency,omitempty" xml:"recurring_frequency,omitempty"`
	Items              []APIInvoiceItem `json:"items" xml:"item"`
	CreatedAt          time.Time        `json:"created_at" xml:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" xml:"updated_at"`
}

type APIInvoiceList struct {
	XMLName struct{}     `json:"-" xml:"invoices"`
	Items   []APIInvoice `json:"items" xml:"invoice"`
	Total   int          `json:"total" xml:"total"`
}

func toAPIInvoice(inv *model.Invoice) APIInvoice {
	items := make([]APIInvoiceItem, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = APIInvoiceItem{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.String(),
			Amount:      it.Amount.String(),
		}
	}
	return APIInvoice{
		ID:                 inv.ID,
		Number:             inv.Number,
		Status:             string(inv.Status),
		ClientID:           inv.ClientID,
		ClientName:         inv.ClientName,
		ClientEmail:        inv.ClientEmail,
		IssueDate:          inv.IssueDate,
		DueDate:            inv.DueDate,
		Subtotal:           inv.Subtotal.String(),
		TaxRate:            inv.TaxRate.String(),
		TaxAmount:          inv.TaxAmount.String(),
		Total:              inv.Total.String(),
		Notes:              inv.Notes,
		IsRecurring:        inv.IsRecurring,
		RecurringFrequency: string(inv.RecurringFrequency),
		Items:              items,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
	}
}
