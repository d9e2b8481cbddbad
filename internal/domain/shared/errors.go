package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrScheduleExists      = NewDomainError("SCHEDULE_EXISTS", "Installment schedule already exists")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrPaymentExceeds      = NewDomainError("PAYMENT_EXCEEDS_REMAINING", "Payment exceeds remaining amount")
	ErrInvariantViolation  = NewDomainError("INVARIANT_VIOLATION", "Invariant violated")
)

// StateError is returned when an entity is not in the lifecycle state an
// operation requires. It is never retried automatically.
type StateError struct {
	Kind    *DomainError
	Entity  string
	ID      string
	Current string
}

// NewStateError creates a StateError of the given kind
func NewStateError(kind *DomainError, entity, id, current string) *StateError {
	return &StateError{Kind: kind, Entity: entity, ID: id, Current: current}
}

func (e *StateError) Error() string {
	if e.Current == "" {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Kind.Message)
	}
	return fmt.Sprintf("%s %s is %s: %s", e.Entity, e.ID, e.Current, e.Kind.Message)
}

// Unwrap exposes the sentinel so errors.Is and errors.As(*DomainError) work
func (e *StateError) Unwrap() error {
	return e.Kind
}

// InsufficientResourceError carries the available and required amounts of the
// resource that ran short (stock, treasury cash or a document's remaining amount).
type InsufficientResourceError struct {
	Kind      *DomainError
	Resource  string
	ID        string
	Available decimal.Decimal
	Required  decimal.Decimal
}

// NewInsufficientResourceError creates an InsufficientResourceError
func NewInsufficientResourceError(kind *DomainError, resource, id string, available, required decimal.Decimal) *InsufficientResourceError {
	return &InsufficientResourceError{
		Kind:      kind,
		Resource:  resource,
		ID:        id,
		Available: available,
		Required:  required,
	}
}

func (e *InsufficientResourceError) Error() string {
	return fmt.Sprintf("%s: %s %s has %s, requires %s",
		e.Kind.Message, e.Resource, e.ID, e.Available.String(), e.Required.String())
}

// Unwrap exposes the sentinel
func (e *InsufficientResourceError) Unwrap() error {
	return e.Kind
}

// InvariantViolationError rejects input before any write takes place
type InvariantViolationError struct {
	Field  string
	Detail string
}

// NewInvariantViolation creates an InvariantViolationError
func NewInvariantViolation(field, detail string) *InvariantViolationError {
	return &InvariantViolationError{Field: field, Detail: detail}
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvariantViolation.Message, e.Field, e.Detail)
}

// Unwrap exposes the sentinel
func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}
