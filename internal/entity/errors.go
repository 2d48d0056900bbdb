package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Booking errors
	ErrBookingNotFound   = errors.New("booking not found")
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrPaymentMismatch   = errors.New("payment does not reconcile")
	ErrTransactionExists = errors.New("transaction already recorded for booking")

	// Ledger and catalog errors
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrCashflowEntryNotFound = errors.New("cashflow entry not found")
	ErrCatalogItemNotFound   = errors.New("catalog item not found")

	// General errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// ValidationError is caller input that violates a precondition. Nothing is written.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewTransitionError reports an action that the booking's current status does not allow.
func NewTransitionError(action string, from BookingStatus) *ValidationError {
	return &ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("cannot %s a %s booking", action, from),
		Err:     ErrInvalidTransition,
	}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// PaymentMismatchError carries the figures the actor needs to resubmit a settlement.
type PaymentMismatchError struct {
	Expected     decimal.Decimal `json:"expected"`
	Actual       decimal.Decimal `json:"actual"`
	Downpayment  decimal.Decimal `json:"downpayment"`
	FinalPayment decimal.Decimal `json:"final_payment"`
	Reason       string          `json:"reason"`
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s (difference %s)",
		e.Reason, e.Expected.StringFixed(2), e.Actual.StringFixed(2), e.Difference().StringFixed(2))
}

// Difference is positive for a shortfall and negative for an excess.
func (e *PaymentMismatchError) Difference() decimal.Decimal {
	return e.Expected.Sub(e.Actual)
}

func (e *PaymentMismatchError) Unwrap() error { return ErrPaymentMismatch }

type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func NewNotFoundError(resource, id string, sentinel error) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id, Err: sentinel}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ConcurrencyConflictError means the snapshot a write was based on is stale.
type ConcurrencyConflictError struct {
	BookingID string
	Version   int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("booking %s was modified concurrently (expected version %d)", e.BookingID, e.Version)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrentUpdate }
