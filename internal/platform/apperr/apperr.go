// Package apperr defines the error taxonomy shared by the ingestion, query, liveness and dispatch paths.
// Callers classify errors with errors.Is against the sentinels below.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors; wrapped with %w by the helpers in this package.
var (
	// ErrValidation means caller-supplied data was malformed and was rejected before reaching storage.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means no data for a range, no record for an id, or no eligible recipients.
	ErrNotFound = errors.New("not found")
	// ErrTransientChannel means a single notification channel failed. It never escapes the dispatcher on its own.
	ErrTransientChannel = errors.New("notification channel failed")
	// ErrStorage means a persistence or query failure; always propagated to the caller.
	ErrStorage = errors.New("storage failure")
	// ErrUnexpected means anything else (a bug, not a delivery failure).
	ErrUnexpected = errors.New("unexpected error")
)

// ValidationError lists every problem found in one input, in the form "field: message".
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Problems, ", ")
}

// Is reports true for ErrValidation so callers need not type-assert.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a *ValidationError for the given problems.
func Invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

// Storage wraps err as a storage failure for op (e.g. "insert reading").
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// NotFound returns an ErrNotFound describing what was missing.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Unexpected wraps err (or a recovered panic value) as ErrUnexpected.
func Unexpected(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	return fmt.Errorf("%w: %v", ErrUnexpected, v)
}
