/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  Every business-rule violation is an explicit error value, never a panic.
  Callers (the HTTP layer, a mobile front-end) surface these verbatim.

ERROR CATEGORIES:
  1. Amount errors     - ErrInvalidAmount, ErrInvalidType, ErrInsufficientFloat
  2. Archiving errors  - ErrNonZeroBalance
  3. Client errors     - ErrDuplicateClient, ErrInvalidClient
  4. Lookup errors     - ErrClientNotFound, ErrTransactionNotFound, ...
  5. Method errors     - ErrMethodInactive, ErrDuplicateMethod, ErrInvalidMethod

USAGE:
  if errors.Is(err, ledger.ErrInsufficientFloat) {
      var fe *ledger.InsufficientFloatError
      errors.As(err, &fe) // fe.Available, fe.Requested
  }

SEE ALSO:
  - api/handlers.go: maps these to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for zero, negative or over-limit amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidType is returned for a transaction type other than Inflow/Outflow.
	ErrInvalidType = errors.New("invalid transaction type")

	// ErrInsufficientFloat is returned when an Outflow exceeds the float
	// currently held in the chosen payment method.
	ErrInsufficientFloat = errors.New("insufficient float")

	// ErrNonZeroBalance is returned when closing an account that still owes.
	ErrNonZeroBalance = errors.New("client balance must be zero to close the account")

	// ErrDuplicateClient is returned on a name or phone collision.
	ErrDuplicateClient = errors.New("duplicate client")

	// ErrInvalidClient is returned when a name or phone fails validation.
	ErrInvalidClient = errors.New("invalid client")

	ErrClientNotFound      = errors.New("client not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAccountNotFound     = errors.New("archived account not found")
	ErrMethodNotFound      = errors.New("payment method not found")

	// ErrMethodInactive is returned when recording against a deactivated rail.
	ErrMethodInactive = errors.New("payment method is inactive")

	ErrDuplicateMethod = errors.New("duplicate payment method")
	ErrInvalidMethod   = errors.New("invalid payment method")

	// ErrInvalidState is returned when an imported or loaded state is malformed.
	ErrInvalidState = errors.New("invalid ledger state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFloatError provides details about a float shortage.
type InsufficientFloatError struct {
	Method    MethodID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFloatError) Error() string {
	return fmt.Sprintf("insufficient float in %s: available %s, requested %s",
		e.Method, e.Available, e.Requested)
}

func (e *InsufficientFloatError) Unwrap() error {
	return ErrInsufficientFloat
}

// NonZeroBalanceError reports the outstanding debt that blocked a close.
type NonZeroBalanceError struct {
	ClientID ClientID
	Balance  decimal.Decimal
}

func (e *NonZeroBalanceError) Error() string {
	return fmt.Sprintf("cannot close account of client %s: balance is %s", e.ClientID, e.Balance)
}

func (e *NonZeroBalanceError) Unwrap() error {
	return ErrNonZeroBalance
}

// DuplicateClientError names the field that collided.
type DuplicateClientError struct {
	Field    string // "name" or "phone"
	Value    string
	Existing ClientID
}

func (e *DuplicateClientError) Error() string {
	return fmt.Sprintf("duplicate client: %s %q already used by %s", e.Field, e.Value, e.Existing)
}

func (e *DuplicateClientError) Unwrap() error {
	return ErrDuplicateClient
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrInsufficientFloat) ||
		errors.Is(err, ErrNonZeroBalance) ||
		errors.Is(err, ErrDuplicateClient) ||
		errors.Is(err, ErrInvalidClient) ||
		errors.Is(err, ErrMethodInactive) ||
		errors.Is(err, ErrDuplicateMethod) ||
		errors.Is(err, ErrInvalidMethod) ||
		errors.Is(err, ErrInvalidState)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrMethodNotFound)
}
