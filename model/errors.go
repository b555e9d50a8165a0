package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthenticated is returned when a mutation requires a signed-in
// user and none is present. No remote call is attempted in that case.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrRowNotFound is returned by the remote when a lookup matches nothing.
// Absence is a normal outcome for fetch-by-id and is not surfaced as a
// store error.
var ErrRowNotFound = errors.New("row not found")

// FieldError describes one validation violation, tagged with the field
// path it concerns (e.g. "due_date", "items[2].quantity").
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the ordered list of all violations found in a
// candidate. Validation never stops at the first failure so the UI can
// show everything at once.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) add(field, message string) ValidationErrors {
	return append(v, FieldError{Field: field, Message: message})
}

// Fields returns the field paths in order, mainly for tests and the API
// error envelope.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, e := range v {
		out[i] = e.Field
	}
	return out
}

// RemoteError wraps any failure surfaced by the remote table collaborator.
// The message is short and safe to show to a user.
type RemoteError struct {
	Op  string // "select", "insert", "update", "delete"
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("remote %s: %v", e.Op, e.Err) }
func (e *RemoteError) Unwrap() error { return e.Err }

// Message maps the failure to a short human-readable text.
func (e *RemoteError) Message() string {
	switch e.Op {
	case "insert":
		return "could not save the invoice"
	case "update":
		return "could not update the invoice"
	case "delete":
		return "could not delete the invoice"
	default:
		return "could not load invoices"
	}
}

func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
