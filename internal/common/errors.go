package common

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Every operation reports failures synchronously
// through one of these types; callers discriminate with errors.As / errors.Is.

// ValidationError reports a constraint or enumeration violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateTransition reports an asset state machine violation. It names
// the current state, the attempted target, and the triggering event.
type InvalidStateTransition struct {
	Current string
	Target  string
	Event   string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s on %s", e.Current, e.Target, e.Event)
}

// InsufficientFunds reports a checkout_hold debit that would push an
// account balance negative.
type InsufficientFunds struct {
	AccountID    string
	BalanceCents int64
	DebitCents   int64
}

func (e *InsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: balance %d, debit %d",
		e.AccountID, e.BalanceCents, e.DebitCents)
}

// LedgerCorruption reports a broken reconciliation invariant: the stored
// balance diverges from the summed transaction history. This must never
// happen in correct operation; it is a fatal integrity fault requiring
// manual remediation, not a recoverable error.
type LedgerCorruption struct {
	AccountID    string
	BalanceCents int64
	LedgerCents  int64
}

func (e *LedgerCorruption) Error() string {
	return fmt.Sprintf("ledger corruption on account %s: stored balance %d, ledger sum %d",
		e.AccountID, e.BalanceCents, e.LedgerCents)
}

var (
	// ErrNotFound reports a referenced entity being absent.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOpenCheckout reports a second open checkout attempted on
	// an instance that already has one.
	ErrDuplicateOpenCheckout = errors.New("instance already has an open checkout")

	// ErrDuplicateReturn reports a second return attempting to close an
	// already-closed checkout.
	ErrDuplicateReturn = errors.New("checkout already closed by another return")

	// ErrCycleAlreadyClosed reports a double-complete on a wash cycle.
	ErrCycleAlreadyClosed = errors.New("wash cycle already closed")
)

// NotFoundf wraps ErrNotFound with the entity that was missing.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
