/*
errors.go - Engine-wide error taxonomy

PURPOSE:
  All error categories in one place. Packages wrap these sentinels with
  structured types carrying context; callers branch with errors.Is/As.

ERROR CATEGORIES:
  1. Validation errors - malformed import files, bad reset password, broken
     restore protocol. Recoverable; no state change.
  2. Storage errors   - quota exceeded, store unavailable. Recoverable; the
     live dataset is never left partially written.
  3. Not-found errors - a backup id no longer in the retained list.
  4. Integrity errors - a grouped total disagrees with the flat total. These
     indicate a derivation bug and are surfaced, never silently corrected.
  5. Aborted          - the operator cancelled a destructive operation. This
     is a normal exit path, not a failure; nothing was changed.

USAGE:
    if errors.Is(err, domain.ErrAborted) {
        // user backed out; nothing to clean up
    }

SEE ALSO:
  - backup/restore.go: the only producer of ErrAborted
  - aggregate/reconcile.go: the only producer of IntegrityError
*/
package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input (import files missing
	// required fields, out-of-order restore acknowledgments, wrong reset
	// password). The caller can correct and retry; no state was changed.
	ErrValidation = errors.New("validation failed")

	// ErrStorage is returned when the snapshot store rejects a read or
	// write (quota exceeded, storage unavailable). Recoverable and surfaced
	// to the user; never fatal.
	ErrStorage = errors.New("storage failed")

	// ErrNotFound is returned when a referenced record is missing, e.g. a
	// backup id that has been evicted from the retained list.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity is returned when reconciliation finds a grouped total
	// that disagrees with the flat total beyond tolerance.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrAborted is returned when the operator cancels a confirmation step
	// of a destructive operation. Normal exit path; no side effects.
	ErrAborted = errors.New("destructive operation aborted")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports what was malformed and where.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a store failure with the operation that failed.
type StorageError struct {
	Op  string // e.g. "replace live data", "save backup list"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // e.g. "backup"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IntegrityError describes one reconciliation mismatch. Expected is the flat
// sum over all entries; Actual is the sum over the grouping's totals.
type IntegrityError struct {
	Dimension string
	Field     string
	Expected  decimal.Decimal
	Actual    decimal.Decimal
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("reconciliation mismatch on %s.%s: groups sum to %s, flat total is %s",
		e.Dimension, e.Field, e.Actual, e.Expected)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRecoverable reports whether the caller can fix the input or retry later.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAborted reports whether the operator backed out of a destructive
// operation. Callers should treat this as a clean no-op, not a failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
