package model_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickbill/dashboard/fixtures"
	"github.com/quickbill/dashboard/model"
)

func TestSelectInvoicesNewestFirst(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)
	ctx := context.Background()

	// The seeded invoice is older than the two added here.
	time.Sleep(5 * time.Millisecond)
	second := fixtures.Invoice(fixtures.WithInvoiceNumber("INV-SECOND"))
	if err := db.InsertInvoice(ctx, second); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	third := fixtures.Invoice(fixtures.WithInvoiceNumber("INV-THIRD"))
	if err := db.InsertInvoice(ctx, third); err != nil {
		t.Fatal(err)
	}

	invs, err := db.SelectInvoices(ctx, fixtures.DefaultUserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(invs))
	}
	if invs[0].Number != "INV-THIRD" || invs[2].ID != data.Invoice.ID {
		t.Errorf("expected newest first, got %s, %s, %s",
			invs[0].Number, invs[1].Number, invs[2].Number)
	}
}

func TestSelectInvoicesScopedToUser(t *testing.T) {
	db := fixtures.NewTestStore(t)
	fixtures.SeedTestData(t, db)
	ctx := context.Background()

	invs, err := db.SelectInvoices(ctx, "some-other-user")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 0 {
		t.Errorf("expected no invoices for a foreign user, got %d", len(invs))
	}
}

func TestSelectInvoiceByIDLoadsItemsInOrder(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)

	inv, err := db.SelectInvoiceByID(context.Background(), data.Invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(inv.Items))
	}
	if inv.Items[0].SortOrder > inv.Items[1].SortOrder {
		t.Error("items not ordered by sort_order")
	}
	if !inv.Total.Equal(data.Invoice.Total) {
		t.Errorf("total mismatch: %s != %s", inv.Total, data.Invoice.Total)
	}
}

func TestSelectInvoiceByIDNotFound(t *testing.T) {
	db := fixtures.NewTestStore(t)

	_, err := db.SelectInvoiceByID(context.Background(), "no-such-id")
	if !errors.Is(err, model.ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
}

func TestInsertInvoiceAssignsIDs(t *testing.T) {
	db := fixtures.NewTestStore(t)
	fixtures.SeedTestData(t, db)

	inv := fixtures.Invoice(fixtures.WithInvoiceNumber("INV-IDS"))
	if err := db.InsertInvoice(context.Background(), inv); err != nil {
		t.Fatal(err)
	}
	if inv.ID == "" {
		t.Error("invoice id not assigned")
	}
	for i, it := range inv.Items {
		if it.ID == "" {
			t.Errorf("item %d id not assigned", i)
		}
		if it.InvoiceID != inv.ID {
			t.Errorf("item %d not linked to invoice", i)
		}
	}
}

func TestInsertInvoiceRejectsDuplicateNumber(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)

	dup := fixtures.Invoice(fixtures.WithInvoiceNumber(data.Invoice.Number))
	err := db.InsertInvoice(context.Background(), dup)
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
	var re *model.RemoteError
	if !errors.As(err, &re) {
		t.Errorf("expected RemoteError, got %T", err)
	}
}

func TestUpdateInvoicePatch(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)
	ctx := context.Background()

	patch := model.Patch{}.
		SetStatus(model.InvoiceStatusPaid).
		SetNotes("settled by bank transfer")
	if err := db.UpdateInvoice(ctx, data.Invoice.ID, patch); err != nil {
		t.Fatal(err)
	}

	inv, err := db.SelectInvoiceByID(ctx, data.Invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != model.InvoiceStatusPaid {
		t.Errorf("status not updated, got %s", inv.Status)
	}
	if inv.Notes != "settled by bank transfer" {
		t.Errorf("notes not updated, got %q", inv.Notes)
	}
	// Untouched fields survive a partial update.
	if inv.Number != data.Invoice.Number {
		t.Errorf("number changed by patch: %s", inv.Number)
	}
}

func TestUpdateInvoiceUnknownID(t *testing.T) {
	db := fixtures.NewTestStore(t)

	err := db.UpdateInvoice(context.Background(), "no-such-id",
		model.Patch{}.SetNotes("x"))
	if !errors.Is(err, model.ErrRowNotFound) {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
}

func TestDeleteInvoiceRemovesItems(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)
	ctx := context.Background()

	if err := db.DeleteInvoice(ctx, data.Invoice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SelectInvoiceByID(ctx, data.Invoice.ID); !errors.Is(err, model.ErrRowNotFound) {
		t.Errorf("invoice still present after delete: %v", err)
	}

	// Idempotent: deleting again succeeds.
	if err := db.DeleteInvoice(ctx, data.Invoice.ID); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestSelectPayments(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)

	ps, err := db.SelectPayments(context.Background(), data.Invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(ps))
	}
	if !ps[0].Amount.Equal(data.Payment.Amount) {
		t.Errorf("amount mismatch: %s", ps[0].Amount)
	}
}

func TestUserAuthentication(t *testing.T) {
	db := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, db)

	u, err := db.AuthenticateUser("Test@Example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != data.User.ID {
		t.Errorf("wrong user: %s", u.ID)
	}

	if _, err := db.AuthenticateUser(data.User.Email, "wrong"); !errors.Is(err, model.ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}
