package escrow

import (
	"errors"
	"fmt"

	"github.com/xraph/escrow/ledger"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("escrow: not found")
	ErrAlreadyExists = errors.New("escrow: already exists")
	ErrInvalidInput  = errors.New("escrow: invalid input")
	ErrConflict      = errors.New("escrow: concurrent modification")

	// Authorization and state errors
	ErrUnauthorized = errors.New("escrow: caller is not authorized")
	ErrInvalidState = errors.New("escrow: invalid state for operation")
	ErrInactive     = errors.New("escrow: registry is inactive")
	ErrMathOverflow = errors.New("escrow: arithmetic overflow")

	// Record errors
	ErrRegistryNotFound = errors.New("escrow: registry not found")
	ErrShopNotFound     = errors.New("escrow: shop not found")
	ErrOrderNotFound    = errors.New("escrow: order not found")
	ErrDuplicateOrder   = errors.New("escrow: order id already in use")

	// Configuration errors
	ErrSweepNotConfigured = errors.New("escrow: sweep recipient not configured")

	// ErrStateNotCommitted means the ledger applied an effect but the
	// matching record update failed. The record needs reconciliation.
	ErrStateNotCommitted = errors.New("escrow: ledger effect applied but state not committed")

	// Store errors
	ErrStoreClosed     = errors.New("escrow: store is closed")
	ErrMigrationFailed = errors.New("escrow: migration failed")
)

// Ledger errors are surfaced unchanged; these aliases let callers match
// them without importing the ledger package.
var (
	ErrInsufficientFunds    = ledger.ErrInsufficientFunds
	ErrLedgerUnauthorized   = ledger.ErrUnauthorized
	ErrLedgerOverflow       = ledger.ErrOverflow
	ErrLedgerInvalidAccount = ledger.ErrInvalidAccount
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("escrow: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRegistryNotFound) ||
		errors.Is(err, ErrShopNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsAuthError returns true if the caller, or the authorizer passed to the
// ledger, lacked the required authority.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ledger.ErrUnauthorized)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
