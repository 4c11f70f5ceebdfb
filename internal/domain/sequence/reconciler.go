package sequence

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// Reconciler forces a counter to match the highest identifier present in its collection.
type Reconciler struct {
	store   coreseq.Store
	scanner coreseq.Scanner
	metrics Metrics
}

// NewReconciler creates a reconciler. A nil metrics sink disables metrics.
func NewReconciler(store coreseq.Store, scanner coreseq.Scanner, metrics Metrics) *Reconciler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Reconciler{
		store:   store,
		scanner: scanner,
		metrics: metrics,
	}
}

// Sync scans target and writes the maximum found into the counter.
//
// ModeOverwrite stores the scanned maximum unconditionally and may move the
// counter backward; run it only while allocation for name is paused.
// ModeRatchet stores max(current, scanned). The stored value is returned.
func (r *Reconciler) Sync(ctx context.Context, name string, target coreseq.Target, mode coreseq.ReconcileMode) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: counter name is required", coreseq.ErrInvalidInput)
	}
	if err := target.Validate(); err != nil {
		return 0, err
	}

	ctx, span := tracer.Start(ctx, "sequence.sync",
		trace.WithAttributes(
			attribute.String("sequence.counter", name),
			attribute.String("sequence.collection", target.Collection),
			attribute.String("sequence.mode", mode.String()),
		))
	defer span.End()

	value, err := r.sync(ctx, name, target, mode)
	r.metrics.ObserveReconcile(name, mode, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		return 0, err
	}

	span.SetAttributes(attribute.Int64("sequence.value", value))
	return value, nil
}

func (r *Reconciler) sync(ctx context.Context, name string, target coreseq.Target, mode coreseq.ReconcileMode) (int64, error) {
	maxFound, err := r.scanner.Scan(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("sync %q: %w", name, err)
	}

	switch mode {
	case coreseq.ModeRatchet:
		stored, err := r.store.RaiseValue(ctx, name, maxFound)
		if err != nil {
			return 0, fmt.Errorf("sync %q: raise to %d: %w", name, maxFound, err)
		}
		logger.Info(ctx, "counter reconciled",
			"counter", name, "mode", mode.String(), "scanned", maxFound, "value", stored)
		return stored, nil
	default:
		if err := r.store.SetValue(ctx, name, maxFound); err != nil {
			return 0, fmt.Errorf("sync %q: set to %d: %w", name, maxFound, err)
		}
		logger.Info(ctx, "counter reconciled",
			"counter", name, "mode", mode.String(), "value", maxFound)
		return maxFound, nil
	}
}
