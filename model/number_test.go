package model_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/quickbill/dashboard/model"
)

var numberFormat = regexp.MustCompile(`^[A-Z0-9]+-[0-9A-Z]+$`)

func TestGenerateInvoiceNumber(t *testing.T) {
	n := model.GenerateInvoiceNumber("")
	if !strings.HasPrefix(n, "INV-") {
		t.Errorf("default prefix missing: %q", n)
	}
	if !numberFormat.MatchString(n) {
		t.Errorf("number %q does not match PREFIX-<base36>", n)
	}

	n = model.GenerateInvoiceNumber("QB")
	if !strings.HasPrefix(n, "QB-") {
		t.Errorf("custom prefix missing: %q", n)
	}

	// Generated numbers must pass their own validation pattern.
	inv := validInvoice()
	inv.Number = model.GenerateInvoiceNumber("INV")
	if errs := model.Validate(inv); len(errs) != 0 {
		t.Errorf("generated number rejected: %v", errs)
	}
}

func TestGenerateInvoiceNumber_Varies(t *testing.T) {
	// Not a uniqueness guarantee, but the random suffix should make
	// immediate repeats vanishingly unlikely.
	seen := map[string]bool{}
	for range 100 {
		seen[model.GenerateInvoiceNumber("INV")] = true
	}
	if len(seen) < 95 {
		t.Errorf("only %d distinct numbers out of 100", len(seen))
	}
}
