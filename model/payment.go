package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
	PaymentMpesa        PaymentMethod = "mpesa"
	PaymentOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBankTransfer, PaymentCard, PaymentCash, PaymentMpesa, PaymentOther:
		return true
	}
	return false
}

// Payment is a recorded settlement against an invoice. This dashboard only
// reads payments; reconciliation happens elsewhere.
type Payment struct {
	ID          string `gorm:"primaryKey;size:36"`
	InvoiceID   string `gorm:"size:36;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,8)"`
	PaymentDate time.Time
	Method      PaymentMethod `gorm:"size:30"`
	Reference   string        `gorm:"size:200"`
	Notes       string        `gorm:"size:1000"`
	CreatedAt   time.Time
}

// ValidatePayment collects every violation in the payment record.
func ValidatePayment(p *Payment) ValidationErrors {
	var errs ValidationErrors
	if p.InvoiceID == "" {
		errs = errs.add("invoice_id", "invoice id is required")
	}
	if !p.Amount.IsPositive() {
		errs = errs.add("amount", "amount must be positive")
	}
	if !p.Method.Valid() {
		errs = errs.add("payment_method", "unknown payment method")
	}
	return errs
}
