package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/quickbill/dashboard/model"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

// invoiceExport streams the current (filtered) invoice list as an .xlsx
// workbook.
func (ctrl *controller) invoiceExport(c echo.Context) error {
	uid := currentUserID(c)

	ctrl.store.SetFilterStatus(model.StatusFilter(c.QueryParam("status")))
	ctrl.store.SetSearchQuery(c.QueryParam("query"))
	ctrl.store.FetchInvoices(c.Request().Context(), uid)
	rows := model.FilteredInvoices(ctrl.store.State())

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoices"
	f.SetSheetName("Sheet1", sheet)

	header := []string{"Number", "Client", "Email", "Issue date", "Due date", "Status", "Subtotal", "Tax", "Total"}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return ErrInternal(err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return ErrInternal(err)
		}
	}

	for r, inv := range rows {
		values := []any{
			inv.Number,
			inv.ClientName,
			inv.ClientEmail,
			inv.IssueDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			string(inv.Status),
			inv.Subtotal.Round(2).StringFixed(2),
			inv.TaxAmount.Round(2).StringFixed(2),
			inv.Total.Round(2).StringFixed(2),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return ErrInternal(err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return ErrInternal(err)
			}
		}
	}

	filename := "invoices_" + time.Now().Format("2006-01-02") + ".xlsx"
	res := c.Response()
	res.Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	res.WriteHeader(http.StatusOK)

	if _, err := f.WriteTo(res); err != nil {
		return ErrInternal(err)
	}
	return nil
}
