// Package apperr defines the typed errors raised by the warehouse services.
// The HTTP layer maps each Kind to a status code; services never format
// transport responses themselves.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Kind string

const (
	Validation        Kind = "validation_error"
	NotFound          Kind = "not_found"
	InsufficientStock Kind = "insufficient_stock"
	Conflict          Kind = "conflict"
	Forbidden         Kind = "forbidden"
	Unauthorized      Kind = "unauthorized"
	Upstream          Kind = "upstream_failure"
)

// Error carries a Kind plus the details a caller needs to explain the failure.
type Error struct {
	Kind      Kind
	Message   string
	Field     string
	Available *int
	Requested *int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Details returns the structured fields worth exposing to API clients.
func (e *Error) Details() map[string]interface{} {
	d := make(map[string]interface{})
	if e.Field != "" {
		d["field"] = e.Field
	}
	if e.Available != nil {
		d["available"] = *e.Available
	}
	if e.Requested != nil {
		d["requested"] = *e.Requested
	}
	return d
}

func Validationf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: Validation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Required reports a missing field.
func Required(field string) *Error {
	return &Error{Kind: Validation, Field: field, Message: field + " is required"}
}

func NotFoundf(entity string, id interface{}) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Insufficient reports an ISSUE (or assignment) larger than the stock on hand.
func Insufficient(what string, available, requested int) *Error {
	return &Error{
		Kind:      InsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for %s: available %d, requested %d", what, available, requested),
		Available: &available,
		Requested: &requested,
	}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: Forbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorizedf(format string, args ...interface{}) *Error {
	return &Error{Kind: Unauthorized, Message: fmt.Sprintf(format, args...)}
}

func Upstreamf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: Upstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsDuplicate reports whether err is a unique-constraint violation. Drivers
// without gorm error translation are matched on their native message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

// FromGorm converts storage errors into typed errors for entity.
func FromGorm(err error, entity string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFoundf(entity, id)
	case IsDuplicate(err):
		return &Error{Kind: Conflict, Message: fmt.Sprintf("%s already exists", entity), Err: err}
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%s: %w", entity, err)
}
