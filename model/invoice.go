package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether no further status changes are expected.
func (s InvoiceStatus) IsFinal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

type RecurringFrequency string

const (
	RecurringWeekly    RecurringFrequency = "weekly"
	RecurringMonthly   RecurringFrequency = "monthly"
	RecurringQuarterly RecurringFrequency = "quarterly"
	RecurringYearly    RecurringFrequency = "yearly"
)

func (f RecurringFrequency) Valid() bool {
	switch f {
	case RecurringWeekly, RecurringMonthly, RecurringQuarterly, RecurringYearly:
		return true
	}
	return false
}

// Invoice is the central entity: a billing document owed by a client,
// composed of line items plus the derived tax and total fields.
type Invoice struct {
	ID        string  `gorm:"primaryKey;size:36"`
	UserID    string  `gorm:"size:36;index;index:idx_user_status"`
	ClientID  *string `gorm:"size:36;index"`
	Number    string  `gorm:"size:50;uniqueIndex"`
	Status    InvoiceStatus
	IssueDate time.Time
	DueDate   time.Time
	Subtotal  decimal.Decimal `gorm:"type:decimal(20,8)"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(20,8)"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(20,8)"`
	Total     decimal.Decimal `gorm:"type:decimal(20,8)"`
	Notes     string          `gorm:"size:1000"`

	IsRecurring        bool
	RecurringFrequency RecurringFrequency `gorm:"size:20"`

	// Denormalized convenience fields kept from the legacy schema so the
	// list view works without a client join.
	ClientName  string `gorm:"size:200"`
	ClientEmail string `gorm:"size:200"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceItem is one billable row on an invoice. Amount is always the
// product of Quantity and UnitPrice; it is never entered directly.
type InvoiceItem struct {
	ID          string `gorm:"primaryKey;size:36"`
	InvoiceID   string `gorm:"size:36;index"`
	Description string `gorm:"size:200"`
	Quantity    int64
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,8)"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,8)"`
	SortOrder   int
	CreatedAt   time.Time
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// statusTransitions lists the allowed manual status changes. Paid and
// cancelled are final.
var statusTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// CanTransition reports whether a manual change from -> to is allowed.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EffectiveStatus derives the display status for an invoice: sent invoices
// past their due date show as overdue without a stored transition.
func EffectiveStatus(inv *Invoice, now time.Time) InvoiceStatus {
	if inv.Status == InvoiceStatusSent && inv.DueDate.Before(now) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}
