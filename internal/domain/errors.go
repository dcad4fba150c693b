package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMixedFarmers      = errors.New("cart contains listings from more than one farmer")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports a single malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
