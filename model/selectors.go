package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DashboardStats are simple reductions over the unfiltered in-memory
// invoice list.
type DashboardStats struct {
	TotalReceived decimal.Decimal // sum of totals with status paid
	Pending       decimal.Decimal // sum with status sent or overdue
	Drafts        decimal.Decimal // sum with status draft
	TotalInvoices int             // count, unfiltered
}

// FilteredInvoices applies the state's status filter and search query.
// The filter matches the status exactly ("all" disables it); the query
// matches case-insensitively against invoice number, client name and
// client email. With filter "all" and an empty query the list is
// returned unchanged, in order.
func FilteredInvoices(st State) []Invoice {
	filtered := st.Invoices
	if st.FilterStatus != FilterAll && st.FilterStatus != "" {
		status := InvoiceStatus(st.FilterStatus)
		kept := make([]Invoice, 0, len(filtered))
		for _, inv := range filtered {
			if inv.Status == status {
				kept = append(kept, inv)
			}
		}
		filtered = kept
	}
	if q := strings.ToLower(strings.TrimSpace(st.SearchQuery)); q != "" {
		kept := make([]Invoice, 0, len(filtered))
		for _, inv := range filtered {
			if strings.Contains(strings.ToLower(inv.Number), q) ||
				strings.Contains(strings.ToLower(inv.ClientName), q) ||
				strings.Contains(strings.ToLower(inv.ClientEmail), q) {
				kept = append(kept, inv)
			}
		}
		filtered = kept
	}
	return filtered
}

// Stats computes the dashboard numbers from the unfiltered list.
func Stats(st State) DashboardStats {
	stats := DashboardStats{
		TotalReceived: decimal.Zero,
		Pending:       decimal.Zero,
		Drafts:        decimal.Zero,
		TotalInvoices: len(st.Invoices),
	}
	for _, inv := range st.Invoices {
		switch inv.Status {
		case InvoiceStatusPaid:
			stats.TotalReceived = stats.TotalReceived.Add(inv.Total)
		case InvoiceStatusSent, InvoiceStatusOverdue:
			stats.Pending = stats.Pending.Add(inv.Total)
		case InvoiceStatusDraft:
			stats.Drafts = stats.Drafts.Add(inv.Total)
		}
	}
	return stats
}
