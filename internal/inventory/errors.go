package inventory

import (
	"errors"
	"fmt"
)

// Validation failures.
var (
	ErrInvalidCharset   = errors.New("invalid characters")
	ErrTooLong          = errors.New("too long")
	ErrDuplicateName    = errors.New("name already in use")
	ErrMalformedIP      = errors.New("malformed IPv4 address")
	ErrReservedRange    = errors.New("address in reserved range")
	ErrDuplicateIP      = errors.New("address already in use")
	ErrUnknownService   = errors.New("unknown service")
	ErrDuplicateService = errors.New("service listed twice")
	ErrLayerNotAllowed  = errors.New("layer only applies to routers and switches")
)

// Decode failures.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrParse                = errors.New("parse error")
)

// Store failures.
var (
	ErrNotFound = errors.New("not found")
	ErrAborted  = errors.New("not confirmed")
)

// FieldError reports which field and value failed and why.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field, value string, err error) *FieldError {
	return &FieldError{Field: field, Value: value, Err: err}
}
