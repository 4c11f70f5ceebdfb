package sequence

import (
	"context"
	"fmt"
	"time"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// Config holds service dependencies and policies.
type Config struct {
	Retry    RetryPolicy
	Mappings []coreseq.Mapping
	Metrics  Metrics
	// Now is used to resolve year-scoped counter names. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default retry policy and mapping registry.
func DefaultConfig() Config {
	return Config{
		Retry:    DefaultRetryPolicy(),
		Mappings: coreseq.DefaultMappings(),
	}
}

// Service is the entry point used by record-creation code and operator tooling.
type Service struct {
	store      coreseq.Store
	allocator  *Allocator
	reconciler *Reconciler
	job        *Job
	now        func() time.Time
}

// NewService wires allocator, reconciler and the registry job over store and scanner.
func NewService(store coreseq.Store, scanner coreseq.Scanner, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	reconciler := NewReconciler(store, scanner, cfg.Metrics)
	return &Service{
		store:      store,
		allocator:  NewAllocator(store, cfg.Retry, cfg.Metrics),
		reconciler: reconciler,
		job:        NewJob(reconciler, cfg.Mappings, coreseq.ModeOverwrite, cfg.Now),
		now:        cfg.Now,
	}
}

// GetNextValue allocates the next value of counterName.
// Returns *coreseq.AllocationFailedError after exhausting retries.
func (s *Service) GetNextValue(ctx context.Context, counterName string, format coreseq.Format) (coreseq.Allocation, error) {
	return s.allocator.Allocate(ctx, counterName, format)
}

// GetCurrentValue returns the counter value for display and diagnostics.
// Any error is logged and reported as 0.
func (s *Service) GetCurrentValue(ctx context.Context, counterName string) int64 {
	value, err := s.store.GetValue(ctx, counterName)
	if err != nil {
		logger.Warn(ctx, "read counter failed", "counter", counterName, "error", err)
		return 0
	}
	return value
}

// ResetCounter sets counterName to value, creating it if absent.
func (s *Service) ResetCounter(ctx context.Context, counterName string, value int64) (int64, error) {
	if counterName == "" {
		return 0, fmt.Errorf("%w: counter name is required", coreseq.ErrInvalidInput)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: counter value must be non-negative, got %d", coreseq.ErrInvalidInput, value)
	}
	if err := s.store.SetValue(ctx, counterName, value); err != nil {
		return 0, fmt.Errorf("reset %q: %w", counterName, err)
	}
	logger.Info(ctx, "counter reset", "counter", counterName, "value", value)
	return value, nil
}

// SyncWithCollection overwrites counterName with the highest identifier found in collection.field.
func (s *Service) SyncWithCollection(ctx context.Context, counterName, collection, field, prefix string) (int64, error) {
	target := coreseq.Target{Collection: collection, Field: field, Prefix: prefix}
	return s.reconciler.Sync(ctx, counterName, target, coreseq.ModeOverwrite)
}

// FixAllCounters reconciles every registered mapping by overwrite. It never fails as a whole.
func (s *Service) FixAllCounters(ctx context.Context) []coreseq.Outcome {
	return s.job.Run(ctx)
}

// FixAllCountersWithMode reconciles every registered mapping with the given mode.
func (s *Service) FixAllCountersWithMode(ctx context.Context, mode coreseq.ReconcileMode) []coreseq.Outcome {
	if mode == s.job.Mode() {
		return s.job.Run(ctx)
	}
	return NewJob(s.reconciler, s.job.mappings, mode, s.now).Run(ctx)
}

// Mappings returns the registry resolved for the current instant.
func (s *Service) Mappings() []coreseq.Mapping {
	return s.job.Mappings()
}

// GetCounter returns the stored counter row, or an error wrapping
// coreseq.ErrCounterNotFound when it was never created.
func (s *Service) GetCounter(ctx context.Context, counterName string) (*coreseq.Counter, error) {
	if counterName == "" {
		return nil, fmt.Errorf("%w: counter name is required", coreseq.ErrInvalidInput)
	}
	counter, err := s.store.Get(ctx, counterName)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", counterName, err)
	}
	return counter, nil
}

// ListCounters returns every stored counter.
func (s *Service) ListCounters(ctx context.Context) ([]coreseq.Counter, error) {
	counters, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return counters, nil
}
