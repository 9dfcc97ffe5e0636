// Package errors defines the error kinds surfaced by the search engine.
// Every error returned across a package boundary wraps one of the sentinels
// below, so callers branch with errors.Is and log with Kind.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrSchema         = errors.New("schema error")
	ErrUnknownField   = errors.New("unknown field")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrMalformedQuery = errors.New("malformed query")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("operation timed out")
	ErrInternal       = errors.New("internal error")
)

type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	base := fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	return base
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// SchemaError reports an invalid set of field definitions.
func SchemaError(format string, args ...any) *AppError {
	return Newf(ErrSchema, format, args...)
}

// UnknownField reports a query or sort referencing an undeclared field.
func UnknownField(field string) *AppError {
	return &AppError{Err: ErrUnknownField, Message: "field is not declared or not indexed", Field: field}
}

// TypeMismatch reports a value that disagrees with its declared type.
func TypeMismatch(field string, format string, args ...any) *AppError {
	return &AppError{Err: ErrTypeMismatch, Message: fmt.Sprintf(format, args...), Field: field}
}

// MalformedQuery reports unparseable query syntax or literals.
func MalformedQuery(format string, args ...any) *AppError {
	return Newf(ErrMalformedQuery, format, args...)
}

// Kind returns a short label for err suitable for log fields and metric
// labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrMalformedQuery):
		return "malformed_query"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
