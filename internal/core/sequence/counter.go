// Package sequence provides domain contracts for centrally-issued sequential identifiers.
// Implementations of Store and Scanner live in the infrastructure layer.
package sequence

import (
	"context"
	"time"
)

// Counter is a named, persisted integer that is the source of a sequence.
type Counter struct {
	Name      string    `db:"name" json:"name"`
	Value     int64     `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Store is the durable counter storage.
//
// IncrementAndGet must use the backend's native atomic read-modify-write so that
// concurrent callers on the same name never observe the same value.
// Failures that are safe to retry are returned as *TransientStoreError.
type Store interface {
	// IncrementAndGet adds 1 to the counter (creating it at 0 if absent) and returns the new value.
	IncrementAndGet(ctx context.Context, name string) (int64, error)

	// SetValue overwrites the counter value, creating the counter if absent.
	SetValue(ctx context.Context, name string, value int64) error

	// RaiseValue atomically sets the counter to max(current, floor) and returns the stored value.
	RaiseValue(ctx context.Context, name string, floor int64) (int64, error)

	// GetValue returns the current value without incrementing. Absent counters read as 0.
	GetValue(ctx context.Context, name string) (int64, error)

	// Get returns the full counter row or ErrCounterNotFound.
	Get(ctx context.Context, name string) (*Counter, error)

	// List returns all counters ordered by name.
	List(ctx context.Context) ([]Counter, error)
}

// Pinger is implemented by stores that can report connectivity for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
