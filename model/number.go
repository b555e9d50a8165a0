package model

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const base36Upper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateInvoiceNumber produces a human-readable invoice number from a
// time-based component plus a short random suffix, formatted as
// PREFIX-<base36 unix millis><4 random chars>. An empty prefix defaults
// to "INV". Numbers are not guaranteed globally unique under concurrent
// creation; the unique index on the invoices table catches the rare
// collision.
func GenerateInvoiceNumber(prefix string) string {
	if prefix == "" {
		prefix = "INV"
	}
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	buf := make([]byte, 4)
	suffix := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back
		// to a fixed suffix rather than panic in a UI path.
		copy(suffix, "0000")
	} else {
		for i, b := range buf {
			suffix[i] = base36Upper[int(b)%len(base36Upper)]
		}
	}
	return prefix + "-" + ts + string(suffix)
}
