// Package apperr defines the closed set of errors the services return to the
// presentation layer. Callers branch on Kind or Code, never on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the broad error category. Each kind maps to exactly one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Code identifies the precise failure within a Kind.
type Code string

const (
	CodeMissingField      Code = "missing_field"
	CodeInvalidCartLine   Code = "invalid_cart_line"
	CodeInvalidSize       Code = "invalid_size"
	CodeInvalidQuantity   Code = "invalid_quantity"
	CodeInvalidStatus     Code = "invalid_status"
	CodeInvalidTransition Code = "invalid_transition"
	CodeInvalidID         Code = "invalid_id"
	CodeInvalidInput      Code = "invalid_input"
	CodeInvalidQuery      Code = "invalid_query"
	CodeInvalidBody       Code = "invalid_body"
	CodeStoreNotFound     Code = "store_not_found"
	CodeProductNotFound   Code = "product_not_found"
	CodeOrderNotFound     Code = "order_not_found"
	CodeUserNotFound      Code = "user_not_found"
	CodeDuplicate         Code = "duplicate"
	CodeInUse             Code = "in_use"
	CodeUnauthorized      Code = "unauthorized"
	CodeForbidden         Code = "forbidden"
	CodeInternal          Code = "internal"
)

// Error is the tagged error carried from services to handlers.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	// Field names the offending input field, when there is one.
	Field string
	// Fields holds per-field messages for struct validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind and code.
func New(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error.
func Validation(code Code, format string, args ...any) *Error {
	return New(KindValidation, code, format, args...)
}

// MissingField reports the first absent required field.
func MissingField(field string) *Error {
	e := Validation(CodeMissingField, "%s is required", field)
	e.Field = field
	return e
}

// NotFound builds a KindNotFound error.
func NotFound(code Code, format string, args ...any) *Error {
	return New(KindNotFound, code, format, args...)
}

// Conflict builds a KindConflict error.
func Conflict(code Code, format string, args ...any) *Error {
	return New(KindConflict, code, format, args...)
}

// Unauthorized builds a KindAuth error.
func Unauthorized(format string, args ...any) *Error {
	return New(KindAuth, CodeUnauthorized, format, args...)
}

// Forbidden builds a KindForbidden error.
func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, CodeForbidden, format, args...)
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(err error, format string, args ...any) *Error {
	e := New(KindInternal, CodeInternal, format, args...)
	e.Err = err
	return e
}

// InvalidInput reports model-level rule violations, field by field.
func InvalidInput(fields map[string]string) *Error {
	e := Validation(CodeInvalidInput, "invalid data")
	e.Fields = fields
	return e
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
