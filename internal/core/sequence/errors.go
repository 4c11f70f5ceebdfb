package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures that may be retried safely (timeouts, lock conflicts, lost connections).
	ErrTransient = errors.New("transient store failure")

	// ErrInvalidInput is wrapped by argument validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCounterNotFound is returned by Store.Get for unknown counters.
	ErrCounterNotFound = errors.New("counter not found")
)

// TransientStoreError is a retryable store failure. The operation it describes was not applied.
type TransientStoreError struct {
	Op      string
	Counter string
	Err     error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error: %s %q: %v", e.Op, e.Counter, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// Is reports ErrTransient so callers can use errors.Is without knowing the concrete type.
func (e *TransientStoreError) Is(target error) bool { return target == ErrTransient }

// NewTransient wraps err as a TransientStoreError.
func NewTransient(op, counter string, err error) *TransientStoreError {
	return &TransientStoreError{Op: op, Counter: counter, Err: err}
}

// IsTransient checks if err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// AllocationFailedError is returned when a value could not be allocated,
// either because retries were exhausted or the store failed permanently.
type AllocationFailedError struct {
	Counter  string
	Attempts int
	Err      error
}

func (e *AllocationFailedError) Error() string {
	return fmt.Sprintf("allocate %q failed after %d attempt(s): %v", e.Counter, e.Attempts, e.Err)
}

func (e *AllocationFailedError) Unwrap() error { return e.Err }

// ScanFailedError is returned when the record collection could not be read.
type ScanFailedError struct {
	Collection string
	Field      string
	Err        error
}

func (e *ScanFailedError) Error() string {
	return fmt.Sprintf("scan %s.%s failed: %v", e.Collection, e.Field, e.Err)
}

func (e *ScanFailedError) Unwrap() error { return e.Err }

// IsAllocationFailed checks if err is an AllocationFailedError.
func IsAllocationFailed(err error) bool {
	var target *AllocationFailedError
	return errors.As(err, &target)
}

// IsScanFailed checks if err is a ScanFailedError.
func IsScanFailed(err error) bool {
	var target *ScanFailedError
	return errors.As(err, &target)
}
