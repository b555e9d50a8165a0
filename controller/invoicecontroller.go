package controller

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quickbill/dashboard/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

var commaperiod = strings.NewReplacer(",", ".")

func (ctrl *controller) invoiceInit(e *echo.Echo) {
	g := e.Group("/invoice")
	g.Use(ctrl.authMiddleware)
	g.POST("/new", ctrl.invoiceNew)
	g.GET("/detail/:id", ctrl.invoiceDetail)
	g.DELETE("/delete/:id", ctrl.invoiceDelete)
	g.POST("/status/:id", ctrl.invoiceStatusChange)
	lg := e.Group("/invoices", ctrl.authMiddleware)
	lg.GET("", ctrl.invoiceList)
	lg.GET("/export", ctrl.invoiceExport)
}

// invoiceitem is one line of the creation drawer form.
type invoiceitem struct {
	Description string `form:"description"`
	Quantity    string `form:"quantity"`
	UnitPrice   string `form:"unitprice"`
}

type invoiceform struct {
	Number      string        `form:"number"`
	Status      string        `form:"status"`
	IssueDate   time.Time     `form:"issuedate"`
	DueDate     time.Time     `form:"duedate"`
	TaxRate     string        `form:"taxrate"`
	Notes       string        `form:"notes"`
	IsRecurring bool          `form:"isrecurring"`
	Frequency   string        `form:"frequency"`
	ClientID    string        `form:"clientid"`
	ClientName  string        `form:"clientname"`
	ClientEmail string        `form:"clientemail"`
	Items       []invoiceitem `form:"items"`
}

// bindInvoice decodes the drawer form into a model invoice. Blank item
// rows are skipped; amounts and totals are recomputed server-side, the
// submitted values never count.
func bindInvoice(c echo.Context) (*model.Invoice, error) {
	f := invoiceform{}
	dec := form.NewDecoder()
	dec.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return time.Parse("2006-01-02", vals[0])
	}, time.Time{})
	if err := c.Request().ParseForm(); err != nil {
		return nil, err
	}
	if err := dec.Decode(&f, c.Request().Form); err != nil {
		return nil, err
	}

	status := model.InvoiceStatus(f.Status)
	if f.Status == "" {
		status = model.InvoiceStatusDraft
	}
	inv := &model.Invoice{
		Number:      strings.ToUpper(strings.TrimSpace(f.Number)),
		Status:      status,
		IssueDate:   f.IssueDate,
		DueDate:     f.DueDate,
		Notes:       f.Notes,
		IsRecurring: f.IsRecurring,
		ClientName:  strings.TrimSpace(f.ClientName),
		ClientEmail: model.NormalizeEmail(f.ClientEmail),
	}
	if f.ClientID != "" {
		inv.ClientID = &f.ClientID
	}
	if f.IsRecurring {
		inv.RecurringFrequency = model.RecurringFrequency(f.Frequency)
	}
	if f.TaxRate != "" {
		rate, err := decimal.NewFromString(commaperiod.Replace(f.TaxRate))
		if err != nil {
			return nil, fmt.Errorf("tax rate: %w", err)
		}
		inv.TaxRate = rate
	}

	for _, row := range f.Items {
		if strings.TrimSpace(row.Quantity) == "" && strings.TrimSpace(row.Description) == "" {
			continue
		}
		item := model.InvoiceItem{Description: strings.TrimSpace(row.Description)}
		qty, err := strconv.ParseInt(strings.TrimSpace(row.Quantity), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("quantity: %w", err)
		}
		item.Quantity = qty
		if item.UnitPrice, err = decimal.NewFromString(commaperiod.Replace(row.UnitPrice)); err != nil {
			return nil, fmt.Errorf("unit price: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}

	if inv.Number == "" {
		inv.Number = model.GenerateInvoiceNumber("INV")
	}
	model.ApplyTotals(inv)
	return inv, nil
}

// dashboard renders the stats cards, the most recent invoices and the
// QuickPay share card.
func (ctrl *controller) dashboard(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Dashboard")
	uid := currentUserID(c)

	ctrl.store.FetchInvoices(c.Request().Context(), uid)
	st := ctrl.store.State()

	recent := st.Invoices
	if len(recent) > 5 {
		recent = recent[:5]
	}

	m["stats"] = model.Stats(st)
	m["recent"] = recent
	m["fallback"] = st.FallbackActive
	return c.Render(http.StatusOK, "dashboard.html", m)
}

// invoiceList renders the list with status filter and search, plus the
// creation drawer.
func (ctrl *controller) invoiceList(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Invoices")
	uid := currentUserID(c)

	ctrl.store.SetFilterStatus(model.StatusFilter(strings.ToLower(c.QueryParam("status"))))
	ctrl.store.SetSearchQuery(c.QueryParam("query"))
	ctrl.store.FetchInvoices(c.Request().Context(), uid)

	st := ctrl.store.State()
	m["invoices"] = model.FilteredInvoices(st)
	m["filter"] = st.FilterStatus
	m["query"] = st.SearchQuery
	m["fallback"] = st.FallbackActive
	m["drawer"] = st.DrawerOpen || c.QueryParam("new") != ""
	m["storeError"] = st.Err
	return c.Render(http.StatusOK, "invoicelist.html", m)
}

// invoiceNew handles the drawer form submit. Validation failures
// re-render the list with the drawer open and every violation listed.
func (ctrl *controller) invoiceNew(c echo.Context) error {
	uid := currentUserID(c)
	inv, err := bindInvoice(c)
	if err != nil {
		return ErrInvalid(err, "could not read the invoice form")
	}

	err = ctrl.store.CreateInvoice(c.Request().Context(), uid, inv)
	if verrs, ok := err.(model.ValidationErrors); ok {
		st := ctrl.store.State()
		m := ctrl.defaultResponseMap(c, "Invoices")
		m["invoices"] = model.FilteredInvoices(st)
		m["filter"] = st.FilterStatus
		m["query"] = st.SearchQuery
		m["drawer"] = true
		m["form"] = inv
		m["errors"] = verrs
		return c.Render(http.StatusUnprocessableEntity, "invoicelist.html", m)
	}
	if err != nil {
		return err
	}

	_ = AddFlash(c, "success", "Invoice "+inv.Number+" created.")
	return c.Redirect(http.StatusSeeOther, "/invoices")
}

// invoiceDetail is the read-only detail surface with payments listed.
func (ctrl *controller) invoiceDetail(c echo.Context) error {
	m := ctrl.defaultResponseMap(c, "Invoice details")
	uid := currentUserID(c)
	ctx := c.Request().Context()

	ctrl.store.FetchInvoiceByID(ctx, c.Param("id"))
	st := ctrl.store.State()
	if st.Selected == nil {
		_ = AddFlash(c, "info", "This invoice does not exist (anymore).")
		return c.Redirect(http.StatusSeeOther, "/invoices")
	}
	inv := st.Selected
	if inv.UserID != "" && inv.UserID != uid {
		return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to view this invoice")
	}

	if inv.ClientID != nil {
		if client, err := ctrl.model.SelectClient(ctx, *inv.ClientID); err == nil {
			m["client"] = client
		}
	}
	payments, err := ctrl.model.SelectPayments(ctx, inv.ID)
	if err != nil {
		c.Get("logger").(*slog.Logger).Warn("cannot load payments", "invoice_id", inv.ID, "error", err)
	}

	m["title"] = "Invoice " + inv.Number
	m["invoice"] = *inv
	m["payments"] = payments
	m["transitions"] = allowedTransitions(inv.Status)
	return c.Render(http.StatusOK, "invoicedetail.html", m)
}

func allowedTransitions(from model.InvoiceStatus) []model.InvoiceStatus {
	all := []model.InvoiceStatus{
		model.InvoiceStatusDraft,
		model.InvoiceStatusSent,
		model.InvoiceStatusPaid,
		model.InvoiceStatusOverdue,
		model.InvoiceStatusCancelled,
	}
	out := make([]model.InvoiceStatus, 0, len(all))
	for _, to := range all {
		if model.CanTransition(from, to) {
			out = append(out, to)
		}
	}
	return out
}

func (ctrl *controller) invoiceDelete(c echo.Context) error {
	uid := currentUserID(c)
	ctx := c.Request().Context()
	id := c.Param("id")

	inv, err := ctrl.model.SelectInvoiceByID(ctx, id)
	if err == nil && inv.UserID != uid {
		return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to delete this invoice")
	}

	if err := ctrl.store.DeleteInvoice(ctx, id); err != nil {
		return ErrInvalid(err, "could not delete the invoice")
	}
	_ = AddFlash(c, "success", "Invoice deleted.")
	return c.Redirect(http.StatusSeeOther, "/invoices")
}

// invoiceStatusChange applies a manual status transition and answers
// JSON for the list page's inline controls.
func (ctrl *controller) invoiceStatusChange(c echo.Context) error {
	uid := currentUserID(c)
	ctx := c.Request().Context()
	id := c.Param("id")

	desired := strings.TrimSpace(c.FormValue("status"))
	if desired == "" {
		var payload struct {
			Status string `json:"status"`
		}
		if bindErr := c.Bind(&payload); bindErr == nil && payload.Status != "" {
			desired = payload.Status
		}
	}
	dest := model.InvoiceStatus(strings.ToLower(desired))
	if !dest.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status value")
	}

	inv, err := ctrl.model.SelectInvoiceByID(ctx, id)
	if err != nil {
		return ErrNotFound(err)
	}
	if inv.UserID != uid {
		return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to change this invoice")
	}
	if !model.CanTransition(inv.Status, dest) {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("cannot change a %s invoice to %s", inv.Status, dest))
	}

	if err := ctrl.store.UpdateInvoice(ctx, uid, id, model.Patch{}.SetStatus(dest)); err != nil {
		return ErrInvalid(err, "could not update the invoice")
	}

	if wantsHTML(c.Request()) {
		_ = AddFlash(c, "success", "Invoice marked "+string(dest)+".")
		return c.Redirect(http.StatusSeeOther, "/invoice/detail/"+id)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(dest)})
}

// quickPay is the public shareable payment page: an invoice summary and
// a presentational payment form. It never talks to a payment network.
func (ctrl *controller) quickPay(c echo.Context) error {
	user, err := ctrl.model.GetUserByID(c.Param("userid"))
	if err != nil {
		return ErrNotFound(err)
	}

	m := map[string]any{
		"title":    "Pay " + user.FullName,
		"fullname": user.FullName,
		"company":  user.CompanyName,
		"methods": []model.PaymentMethod{
			model.PaymentBankTransfer,
			model.PaymentCard,
			model.PaymentMpesa,
		},
	}
	if flashes, ok := c.Get("flashes").([]Flash); ok {
		m["flashes"] = flashes
	}
	return c.Render(http.StatusOK, "quickpay.html", m)
}
