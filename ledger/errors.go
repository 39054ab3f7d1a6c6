/*
errors.go - Error taxonomy for the ledger core

ERROR CATEGORIES:
 1. Validation errors - cross-field invariant violations, rejected before any write
 2. Not-found errors  - a referenced row does not exist
 3. State errors      - operating on a voided transaction, protected rows

USAGE:

	Callers match categories with errors.Is and inspect details with errors.As:

	  if errors.Is(err, ledger.ErrInvalidState) { ... }

	  var nf *ledger.NotFoundError
	  if errors.As(err, &nf) { log(nf.Kind, nf.ID) }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks input that violates a cross-field invariant.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation the row's lifecycle state forbids.
	ErrInvalidState = errors.New("invalid state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies the missing row.
type NotFoundError struct {
	Kind string // "account", "category", "transaction", "recurring", "budget"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateError reports a lifecycle violation on a specific row.
type StateError struct {
	ID      string
	Message string
}

func (e *StateError) Error() string { return e.Message }

func (e *StateError) Unwrap() error { return ErrInvalidState }

// errVoided builds the StateError returned for edits of a voided transaction.
func errVoided(id, verb string) *StateError {
	return &StateError{ID: id, Message: fmt.Sprintf("cannot %s voided transaction %s", verb, id)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether err was caused by caller input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState)
}

// IsNotFound reports whether err indicates a missing row.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
