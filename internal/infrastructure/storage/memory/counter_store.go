// Package memory provides in-process implementations of the sequence contracts.
// They serve tests, local development and dry runs; production deployments use
// the postgres or redis stores, whose atomicity spans processes.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	coreseq "medseq/internal/core/sequence"
)

// CounterStore is a mutex-guarded map of counters.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]*coreseq.Counter
	now      func() time.Time

	// failures queued per operation, consumed one per call
	failures map[string][]error
}

// Ensure compile-time interface compliance.
var _ coreseq.Store = (*CounterStore)(nil)

// NewCounterStore creates an empty store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		counters: make(map[string]*coreseq.Counter),
		failures: make(map[string][]error),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Operation names accepted by FailNext.
const (
	OpIncrement = "increment"
	OpSet       = "set"
	OpRaise     = "raise"
	OpGet       = "get"
	OpList      = "list"
)

// FailNext queues errs to be returned by the next calls of op, one per call.
// A queued failure leaves the stored counters untouched.
func (s *CounterStore) FailNext(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

func (s *CounterStore) popFailure(op string) error {
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

// contextErr reports a done context the way the database stores do:
// an expired deadline is transient, a cancellation is returned as is.
func contextErr(ctx context.Context, op, name string) error {
	err := ctx.Err()
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return coreseq.NewTransient(op, name, err)
}

func (s *CounterStore) upsert(name string) *coreseq.Counter {
	c, ok := s.counters[name]
	if !ok {
		now := s.now()
		c = &coreseq.Counter{Name: name, CreatedAt: now, UpdatedAt: now}
		s.counters[name] = c
	}
	return c
}

// IncrementAndGet implements coreseq.Store.
func (s *CounterStore) IncrementAndGet(ctx context.Context, name string) (int64, error) {
	if err := contextErr(ctx, OpIncrement, name); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(OpIncrement); err != nil {
		return 0, err
	}
	c := s.upsert(name)
	c.Value++
	c.UpdatedAt = s.now()
	return c.Value, nil
}

// SetValue implements coreseq.Store.
func (s *CounterStore) SetValue(ctx context.Context, name string, value int64) error {
	if err := contextErr(ctx, OpSet, name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(OpSet); err != nil {
		return err
	}
	c := s.upsert(name)
	c.Value = value
	c.UpdatedAt = s.now()
	return nil
}

// RaiseValue implements coreseq.Store.
func (s *CounterStore) RaiseValue(ctx context.Context, name string, floor int64) (int64, error) {
	if err := contextErr(ctx, OpRaise, name); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(OpRaise); err != nil {
		return 0, err
	}
	c := s.upsert(name)
	if floor > c.Value {
		c.Value = floor
	}
	c.UpdatedAt = s.now()
	return c.Value, nil
}

// GetValue implements coreseq.Store.
func (s *CounterStore) GetValue(ctx context.Context, name string) (int64, error) {
	c, err := s.Get(ctx, name)
	if errors.Is(err, coreseq.ErrCounterNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

// Get implements coreseq.Store.
func (s *CounterStore) Get(ctx context.Context, name string) (*coreseq.Counter, error) {
	if err := contextErr(ctx, OpGet, name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(OpGet); err != nil {
		return nil, err
	}
	c, ok := s.counters[name]
	if !ok {
		return nil, coreseq.ErrCounterNotFound
	}
	cp := *c
	return &cp, nil
}

// List implements coreseq.Store.
func (s *CounterStore) List(ctx context.Context) ([]coreseq.Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(OpList); err != nil {
		return nil, err
	}
	out := make([]coreseq.Counter, 0, len(s.counters))
	for _, c := range s.counters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ping implements coreseq.Pinger.
func (s *CounterStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
