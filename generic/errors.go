/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Configuration errors - Nothing to anchor a run on (fatal, before allocation)
  2. Reconciliation errors - Ledger does not balance (fatal, allocator bug)
  3. Store errors - Persistence failures
  4. Client errors - Malformed input rejected at the boundary

  Data-quality problems (duplicate transactions, missing bookings, no eligible
  worker) are NOT errors. They are warnings recorded by the tips package and
  never abort a run.

USAGE:
  if generic.IsFatal(err) {
      // do not publish payroll numbers
  }

SEE ALSO:
  - ledger.go: Returns ReconciliationError
  - tips/period.go: Returns ConfigurationError
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is the class of fatal errors raised before any
	// allocation runs, when there is nothing to anchor a pay period on.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoShifts is returned when the shift set is empty.
	ErrNoShifts = errors.New("no shifts: cannot determine pay period")

	// ErrReconciliation is returned when distributed + overpaid != processed.
	ErrReconciliation = errors.New("reconciliation invariant violated")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrRunNotFound is returned when a referenced distribution run doesn't exist.
	ErrRunNotFound = errors.New("distribution run not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned when a caller hands the engine unusable data.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError means a run cannot start.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// ReconciliationError reports the totals of a ledger that failed to balance.
// It always indicates a bug in allocation arithmetic, never bad data.
type ReconciliationError struct {
	Distributed Amount
	Overpaid    Amount
	Processed   Amount
	Difference  decimal.Decimal
	Epsilon     decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed: distributed %s + overpaid %s != processed %s (difference %s, epsilon %s)",
		e.Distributed.Value, e.Overpaid.Value, e.Processed.Value, e.Difference, e.Epsilon)
}

func (e *ReconciliationError) Unwrap() error {
	return ErrReconciliation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error must stop report generation.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrReconciliation)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrConfiguration)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
