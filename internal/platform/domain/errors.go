// Package domain holds the error taxonomy and small shared types used by every
// layer of the reservation service.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed or logically invalid input. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError creates a ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// InvalidRangeMessage is used for every check-out <= check-in rejection.
const InvalidRangeMessage = "invalid range: check-out must be after check-in"

// NewInvalidRangeError creates the validation error for an empty or inverted stay.
func NewInvalidRangeError() error {
	return &ValidationError{Message: InvalidRangeMessage}
}

// NotFoundError reports a missing or inactive entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// PricingUnavailableError lists stayed nights without an active seasonal price.
type PricingUnavailableError struct {
	MissingDates []string
}

func (e *PricingUnavailableError) Error() string {
	return "pricing not configured for dates: " + strings.Join(e.MissingDates, ", ")
}

// NewPricingUnavailableError creates a PricingUnavailableError.
func NewPricingUnavailableError(missingDates []string) error {
	return &PricingUnavailableError{MissingDates: missingDates}
}

// CapacityExceededError is raised when free rooms are below the requested
// quantity, either at pre-check (Date empty) or inside the commit transaction.
type CapacityExceededError struct {
	Date      string
	Requested int
	Available int
}

func (e *CapacityExceededError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("no rooms available on %s", e.Date)
	}
	return fmt.Sprintf("rooms not available for the selected dates: requested %d, available %d", e.Requested, e.Available)
}

// NewCapacityExceededError creates a CapacityExceededError.
func NewCapacityExceededError(date string, requested, available int) error {
	return &CapacityExceededError{Date: date, Requested: requested, Available: available}
}

// ConflictError signals a concurrent modification or serialization failure.
// The caller may resubmit the identical request. Timeout is set when the
// transaction ran out of time rather than losing a serialization race.
type ConflictError struct {
	Message string
	Timeout bool
}

func (e *ConflictError) Error() string { return e.Message }

// Retryable is always true for conflicts.
func (e *ConflictError) Retryable() bool { return true }

// NewConflictError creates a ConflictError.
func NewConflictError(message string) error {
	return &ConflictError{Message: message}
}

// NewTimeoutConflictError creates a ConflictError flagged as a timeout.
func NewTimeoutConflictError(message string) error {
	return &ConflictError{Message: message, Timeout: true}
}

// StateTransitionError reports a disallowed status change.
type StateTransitionError struct {
	From string
	To   string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// NewInvalidStateError creates a StateTransitionError.
func NewInvalidStateError(from, to string) error {
	return &StateTransitionError{From: from, To: to}
}

// ForbiddenError reports an authenticated caller lacking permission.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// NewForbiddenError creates a ForbiddenError.
func NewForbiddenError(message string) error {
	return &ForbiddenError{Message: message}
}

// IsRetryable reports whether err (or anything it wraps) is a ConflictError.
func IsRetryable(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsDomainError reports whether err wraps one of the typed errors above.
func IsDomainError(err error) bool {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		pricing    *PricingUnavailableError
		capacity   *CapacityExceededError
		conflict   *ConflictError
		transition *StateTransitionError
		forbidden  *ForbiddenError
	)
	return errors.As(err, &validation) || errors.As(err, &notFound) ||
		errors.As(err, &pricing) || errors.As(err, &capacity) ||
		errors.As(err, &conflict) || errors.As(err, &transition) ||
		errors.As(err, &forbidden)
}
