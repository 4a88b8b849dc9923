package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors used throughout the application
var (
	ErrNotFound           = errors.New("not found")
	ErrOrderNotFound      = fmt.Errorf("order %w", ErrNotFound)
	ErrFundraiserNotFound = fmt.Errorf("fundraiser %w", ErrNotFound)
	ErrVariationNotFound  = fmt.Errorf("fundraiser variation %w", ErrNotFound)
	ErrInventoryNotFound  = fmt.Errorf("inventory item %w", ErrNotFound)
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrFundraiserClosed   = errors.New("fundraiser is not accepting orders")
)

// ValidationError collects per-field messages so handlers can return them to
// the client in one response.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when no field failed so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
