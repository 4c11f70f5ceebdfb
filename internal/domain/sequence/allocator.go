// Package sequence provides the allocation and drift-reconciliation services
// built on the core/sequence store and scanner contracts.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

var tracer = otel.Tracer("medseq/sequence")

// Allocator hands out the next value of a counter.
// It holds no counter state; the store is the single source of truth.
type Allocator struct {
	store   coreseq.Store
	policy  RetryPolicy
	metrics Metrics
}

// NewAllocator creates an allocator. A nil metrics sink disables metrics.
func NewAllocator(store coreseq.Store, policy RetryPolicy, metrics Metrics) *Allocator {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Allocator{
		store:   store,
		policy:  policy.normalized(),
		metrics: metrics,
	}
}

// Allocate increments the counter and renders the new value with format.
//
// Transient store failures are retried under the retry policy. When retries are
// exhausted, or the store fails permanently, *coreseq.AllocationFailedError is
// returned. A failed or cancelled call may still have consumed a value.
func (a *Allocator) Allocate(ctx context.Context, name string, format coreseq.Format) (coreseq.Allocation, error) {
	if name == "" {
		return coreseq.Allocation{}, fmt.Errorf("%w: counter name is required", coreseq.ErrInvalidInput)
	}
	if err := format.Validate(); err != nil {
		return coreseq.Allocation{}, err
	}

	ctx, span := tracer.Start(ctx, "sequence.allocate",
		trace.WithAttributes(attribute.String("sequence.counter", name)))
	defer span.End()

	start := time.Now()
	attempts := 0
	var value int64

	op := func() error {
		attempts++
		v, err := a.store.IncrementAndGet(ctx, name)
		if err != nil {
			if coreseq.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		value = v
		return nil
	}

	notify := func(err error, wait time.Duration) {
		a.metrics.ObserveRetry(name)
		logger.Warn(ctx, "counter increment failed, retrying",
			"counter", name,
			"attempt", attempts,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(op, a.policy.backOff(ctx), notify, a.policy.timer())
	a.metrics.ObserveAllocation(name, attempts, time.Since(start), err)
	span.SetAttributes(attribute.Int("sequence.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		logger.Error(ctx, "counter allocation failed", "counter", name, "attempts", attempts, "error", err)
		return coreseq.Allocation{}, &coreseq.AllocationFailedError{Counter: name, Attempts: attempts, Err: err}
	}

	span.SetAttributes(attribute.Int64("sequence.value", value))
	return coreseq.Allocation{
		Value:       value,
		FormattedID: format.Render(value),
	}, nil
}
