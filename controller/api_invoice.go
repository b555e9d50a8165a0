package controller

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/quickbill/dashboard/model"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type invoiceListQuery struct {
	Status string `query:"status"`
	Query  string `query:"query"`
}

func (ctrl *controller) apiInvoiceList(c echo.Context) error {
	userID := apiUserID(c)
	var q invoiceListQuery
	if err := c.Bind(&q); err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_query", "invalid query params"))
	}

	rows, err := ctrl.model.SelectInvoices(c.Request().Context(), userID)
	if err != nil {
		return respond(c, http.StatusBadGateway, apiError("remote_error", "could not load invoices"))
	}

	filtered := model.FilteredInvoices(model.State{
		Invoices:     rows,
		FilterStatus: model.StatusFilter(strings.ToLower(q.Status)),
		SearchQuery:  q.Query,
	})

	items := make([]APIInvoice, len(filtered))
	for i := range filtered {
		items[i] = toAPIInvoice(&filtered[i])
	}
	return respond(c, http.StatusOK, APIInvoiceList{Items: items, Total: len(items)})
}

func (ctrl *controller) apiInvoiceGet(c echo.Context) error {
	userID := apiUserID(c)
	inv, err := ctrl.model.SelectInvoiceByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrRowNotFound) {
			return respond(c, http.StatusNotFound, apiError("not_found", "invoice not found"))
		}
		return respond(c, http.StatusBadGateway, apiError("remote_error", "could not load invoice"))
	}
	if inv.UserID != userID {
		return respond(c, http.StatusNotFound, apiError("not_found", "invoice not found"))
	}
	return respond(c, http.StatusOK, toAPIInvoice(inv))
}

type apiInvoiceItemReq struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type apiInvoiceReq struct {
	Number             string              `json:"number"`
	Status             string              `json:"status"`
	ClientID           *string             `json:"client_id"`
	ClientName         string              `json:"client_name"`
	ClientEmail        string              `json:"client_email"`
	IssueDate          time.Time           `json:"issue_date"`
	DueDate            time.Time           `json:"due_date"`
	TaxRate            string              `json:"tax_rate"`
	Notes              string              `json:"notes"`
	IsRecurring        bool                `json:"is_recurring"`
	RecurringFrequency string              `json:"recurring_frequency"`
	Items              []apiInvoiceItemReq `json:"items"`
}

func (req *apiInvoiceReq) toModel() (*model.Invoice, error) {
	status := model.InvoiceStatus(req.Status)
	if req.Status == "" {
		status = model.InvoiceStatusDraft
	}
	inv := &model.Invoice{
		Number:      strings.ToUpper(strings.TrimSpace(req.Number)),
		Status:      status,
		ClientID:    req.ClientID,
		ClientName:  req.ClientName,
		ClientEmail: model.NormalizeEmail(req.ClientEmail),
		IssueDate:   req.IssueDate,
		DueDate:     req.DueDate,
		Notes:       req.Notes,
		IsRecurring: req.IsRecurring,
	}
	if req.IsRecurring {
		inv.RecurringFrequency = model.RecurringFrequency(req.RecurringFrequency)
	}
	if req.TaxRate != "" {
		rate, err := decimal.NewFromString(req.TaxRate)
		if err != nil {
			return nil, err
		}
		inv.TaxRate = rate
	}
	for _, it := range req.Items {
		item := model.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
		}
		if it.UnitPrice != "" {
			price, err := decimal.NewFromString(it.UnitPrice)
			if err != nil {
				return nil, err
			}
			item.UnitPrice = price
		}
		inv.Items = append(inv.Items, item)
	}
	if inv.Number == "" {
		inv.Number = model.GenerateInvoiceNumber("INV")
	}
	model.ApplyTotals(inv)
	return inv, nil
}

func (ctrl *controller) apiInvoiceCreate(c echo.Context) error {
	userID := apiUserID(c)
	var req apiInvoiceReq
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_request", "invalid payload"))
	}
	inv, err := req.toModel()
	if err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_request", err.Error()))
	}

	err = ctrl.store.CreateInvoice(c.Request().Context(), userID, inv)
	var verrs model.ValidationErrors
	switch {
	case err == nil:
		return respond(c, http.StatusCreated, toAPIInvoice(inv))
	case errors.As(err, &verrs):
		return respond(c, http.StatusUnprocessableEntity, apiValidationError(verrs))
	case errors.Is(err, model.ErrNotAuthenticated):
		return respond(c, http.StatusUnauthorized, apiError("unauthorized", "Unauthorized"))
	default:
		return respond(c, http.StatusBadGateway, apiError("remote_error", "could not save the invoice"))
	}
}

type apiInvoicePatchReq struct {
	Status  *string    `json:"status"`
	Notes   *string    `json:"notes"`
	DueDate *time.Time `json:"due_date"`
}

func (ctrl *controller) apiInvoiceUpdate(c echo.Context) error {
	userID := apiUserID(c)
	id := c.Param("id")

	var req apiInvoicePatchReq
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_request", "invalid payload"))
	}

	patch := model.Patch{}
	if req.Status != nil {
		status := model.InvoiceStatus(strings.ToLower(*req.Status))
		if !status.Valid() {
			return respond(c, http.StatusUnprocessableEntity,
				apiValidationError(model.ValidationErrors{{Field: "status", Message: "unknown status"}}))
		}
		patch = patch.SetStatus(status)
	}
	if req.Notes != nil {
		patch = patch.SetNotes(*req.Notes)
	}
	if req.DueDate != nil {
		patch = patch.SetDueDate(*req.DueDate)
	}
	if len(patch) == 0 {
		return respond(c, http.StatusBadRequest, apiError("bad_request", "empty patch"))
	}

	if ok, err := ctrl.requireOwnedInvoice(c, userID, id); !ok {
		return err
	}

	if err := ctrl.store.UpdateInvoice(c.Request().Context(), userID, id, patch); err != nil {
		if errors.Is(err, model.ErrRowNotFound) {
			return respond(c, http.StatusNotFound, apiError("not_found", "invoice not found"))
		}
		return respond(c, http.StatusBadGateway, apiError("remote_error", "could not update the invoice"))
	}

	inv, err := ctrl.model.SelectInvoiceByID(c.Request().Context(), id)
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	return respond(c, http.StatusOK, toAPIInvoice(inv))
}

func (ctrl *controller) apiInvoiceDelete(c echo.Context) error {
	userID := apiUserID(c)
	id := c.Param("id")

	if ok, err := ctrl.requireOwnedInvoice(c, userID, id); !ok {
		return err
	}

	if err := ctrl.store.DeleteInvoice(c.Request().Context(), id); err != nil {
		return respond(c, http.StatusBadGateway, apiError("remote_error", "could not delete the invoice"))
	}
	return c.NoContent(http.StatusNoContent)
}

// requireOwnedInvoice verifies the invoice exists and belongs to the
// given user before a mutation. On failure it writes the response and
// returns ok=false. A foreign invoice answers 404, never 403, so the
// existence of other users' invoice ids does not leak.
func (ctrl *controller) requireOwnedInvoice(c echo.Context, userID, id string) (bool, error) {
	inv, err := ctrl.model.SelectInvoiceByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrRowNotFound) {
			return false, respond(c, http.StatusNotFound, apiError("not_found", "invoice not found"))
		}
		return false, respond(c, http.StatusBadGateway, apiError("remote_error", "could not load invoice"))
	}
	if inv.UserID != userID {
		return false, respond(c, http.StatusNotFound, apiError("not_found", "invoice not found"))
	}
	return true, nil
}
