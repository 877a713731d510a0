/*
errors.go - Centralized error types for the stock core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify failures with errors.Is against the sentinels and
  extract detail with errors.As against the structured types.

ERROR CATEGORIES:
  1. Caller errors - ValidationError, UnitMismatch (no state change)
  2. Business rejections - ProductNotFound, InsufficientStock, DuplicateSKU
  3. Storage errors - durability/transaction failure, never partially applied

RETRY:
  The core never retries. A StorageError means nothing was written; the
  caller may retry the whole operation.

SEE ALSO:
  - coordinator.go: Wraps escaping store errors as StorageError
  - api/errors.go: Maps these errors to HTTP statuses
*/
package stock

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrUnitMismatch is returned when a quantity is given for a weighable
	// product, or a weight for a countable one.
	ErrUnitMismatch = errors.New("unit type mismatch")

	// ErrInsufficientStock is returned when a deduction exceeds the balance.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateSKU is returned when another product already uses the SKU.
	ErrDuplicateSKU = errors.New("duplicate sku")

	// ErrStorage is returned when the store fails to persist or read.
	ErrStorage = errors.New("storage error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UnitMismatchError reports which measure was given for which unit type.
type UnitMismatchError struct {
	ProductID ProductID
	UnitType  UnitType
	Given     string
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit type mismatch: product %s is %s, got %s", e.ProductID, e.UnitType, e.Given)
}

func (e *UnitMismatchError) Unwrap() error { return ErrUnitMismatch }

// InsufficientStockError provides details about a stock shortage.
// Available and Requested are in the product's unit (pieces or weight).
type InsufficientStockError struct {
	ProductID ProductID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Shortfall is the amount missing to satisfy the request.
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// StorageError wraps a store failure. Both ErrStorage and the cause match errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input or a
// business-rule rejection. No state changed.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnitMismatch) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateSKU)
}

// IsNotFound returns true if the error indicates a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

// IsRetryable returns true if the whole operation may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}

// asStorageError leaves domain errors untouched and wraps everything else.
func asStorageError(op string, err error) error {
	if err == nil || IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
