package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for rows that do not exist or that the acting
	// owner is not allowed to see. The two cases are never distinguished.
	ErrNotFound = errors.New("not found")

	// ErrReferenceConflict reports a uniqueness violation on a reference number.
	// Callers regenerate the number and retry.
	ErrReferenceConflict = errors.New("reference number already issued")

	// ErrConcurrentUpdate reports an invoice row that changed since it was read.
	ErrConcurrentUpdate = errors.New("invoice was modified concurrently")
)

// ValidationKind names a class of validation failure.
type ValidationKind string

const (
	InvalidTaxPercentage  ValidationKind = "InvalidTaxPercentage"
	InvalidQuantity       ValidationKind = "InvalidQuantity"
	InvalidUnitPrice      ValidationKind = "InvalidUnitPrice"
	InvalidTransitCharges ValidationKind = "InvalidTransitCharges"
	MissingField          ValidationKind = "MissingField"
	InvalidPhone          ValidationKind = "InvalidPhone"
	InvalidNTN            ValidationKind = "InvalidNTN"
	InvalidEmail          ValidationKind = "InvalidEmail"
	MalformedReference    ValidationKind = "MalformedReference"
)

// ValidationError is returned before any write when an aggregate is invalid.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

func newValidationError(kind ValidationKind, field, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: msg}
}

// IsValidationKind reports whether err carries a ValidationError of the given kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}
