package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Remote is the contract of the managed table backend as seen by the
// store: row-level select/insert/update/delete plus the reference reads
// used by the detail and QuickPay pages. Implementations must order
// invoice listings by creation time descending and return ErrRowNotFound
// (possibly wrapped) when a lookup matches nothing.
type Remote interface {
	SelectInvoices(ctx context.Context, userID string) ([]Invoice, error)
	SelectInvoiceByID(ctx context.Context, id string) (*Invoice, error)
	InsertInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoice(ctx context.Context, id string, patch Patch) error
	DeleteInvoice(ctx context.Context, id string) error

	SelectClient(ctx context.Context, id string) (*Client, error)
	SelectPayments(ctx context.Context, invoiceID string) ([]Payment, error)
}

// Patch is a partial field update keyed by column name. Mutation is
// last-write-wins at whole-field granularity.
type Patch map[string]any

func (p Patch) SetStatus(s InvoiceStatus) Patch { p["status"] = s; return p }
func (p Patch) SetNotes(n string) Patch         { p["notes"] = n; return p }
func (p Patch) SetDueDate(t time.Time) Patch    { p["due_date"] = t; return p }

var _ Remote = (*DB)(nil)

// SelectInvoices returns all invoices of the user, newest first, with
// their line items preloaded.
func (d *DB) SelectInvoices(ctx context.Context, userID string) ([]Invoice, error) {
	var invs []Invoice
	q := d.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order") }).
		Order("created_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&invs).Error; err != nil {
		return nil, remoteErr("select", err)
	}
	return invs, nil
}

func (d *DB) SelectInvoiceByID(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	err := d.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order") }).
		First(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, remoteErr("select", err)
	}
	return &inv, nil
}

// InsertInvoice stores the invoice and its items in one transaction.
// Missing ids are assigned here, matching how the managed backend does it.
func (d *DB) InsertInvoice(ctx context.Context, inv *Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	for i := range inv.Items {
		if inv.Items[i].ID == "" {
			inv.Items[i].ID = uuid.NewString()
		}
		inv.Items[i].InvoiceID = inv.ID
		if inv.Items[i].SortOrder == 0 {
			inv.Items[i].SortOrder = i + 1
		}
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(inv).Error; err != nil {
			return err
		}
		if len(inv.Items) > 0 {
			return tx.Create(&inv.Items).Error
		}
		return nil
	})
	return remoteErr("insert", err)
}

func (d *DB) UpdateInvoice(ctx context.Context, id string, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}
	res := d.db.WithContext(ctx).Model(&Invoice{}).Where("id = ?", id).Updates(map[string]any(patch))
	if res.Error != nil {
		return remoteErr("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return remoteErr("update", ErrRowNotFound)
	}
	return nil
}

// DeleteInvoice removes the invoice and its items. Deleting an id the
// backend does not know is not an error; delete is idempotent.
func (d *DB) DeleteInvoice(ctx context.Context, id string) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Invoice{}).Error
	})
	return remoteErr("delete", err)
}

func (d *DB) SelectClient(ctx context.Context, id string) (*Client, error) {
	var c Client
	err := d.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, remoteErr("select", err)
	}
	return &c, nil
}

func (d *DB) SelectPayments(ctx context.Context, invoiceID string) ([]Payment, error) {
	var ps []Payment
	err := d.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date DESC").
		Find(&ps).Error
	if err != nil {
		return nil, remoteErr("select", err)
	}
	return ps, nil
}

// SaveClient and SavePayment exist for seeding and the import paths; the
// dashboard itself never mutates these tables.
func (d *DB) SaveClient(ctx context.Context, c *Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Email = NormalizeEmail(c.Email)
	return remoteErr("insert", d.db.WithContext(ctx).Save(c).Error)
}

func (d *DB) SavePayment(ctx context.Context, p *Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return remoteErr("insert", d.db.WithContext(ctx).Save(p).Error)
}
