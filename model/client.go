package model

import (
	"strings"
	"time"

	"github.com/biter777/countries"
)

// Client is the billing recipient of an invoice.
type Client struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"size:36;index"`
	Name        string `gorm:"size:200"`
	Email       string `gorm:"size:200"`
	CompanyName string `gorm:"size:200"`
	Address     string `gorm:"size:500"`
	Phone       string `gorm:"size:50"`
	// Country is stored as ISO 3166-1 alpha-2, empty if unknown.
	Country   string `gorm:"size:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lowercases and trims an email address so lookups and
// search are case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCountry resolves a country name or code to ISO alpha-2.
// Unknown input yields the empty string.
func NormalizeCountry(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	c := countries.ByName(s)
	if c == countries.Unknown {
		return ""
	}
	return c.Alpha2()
}

// ValidateClient collects every violation in the client record.
func ValidateClient(c *Client) ValidationErrors {
	var errs ValidationErrors
	if len(strings.TrimSpace(c.Name)) < 2 {
		errs = errs.add("name", "name must be at least 2 characters")
	}
	email := NormalizeEmail(c.Email)
	if !emailPattern.MatchString(email) {
		errs = errs.add("email", "email address is not valid")
	}
	if c.Phone != "" && !phonePattern.MatchString(c.Phone) {
		errs = errs.add("phone", "phone number is not valid")
	}
	if c.Country != "" && NormalizeCountry(c.Country) == "" {
		errs = errs.add("country", "unknown country")
	}
	return errs
}
