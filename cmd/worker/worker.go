package main

import (
	"context"
	"time"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// Reconciler is the part of sequence.Service the worker drives.
type Reconciler interface {
	FixAllCountersWithMode(ctx context.Context, mode coreseq.ReconcileMode) []coreseq.Outcome
}

// Worker periodically reconciles all registered counters.
// Ratchet mode is used so a running worker never moves a counter backwards
// underneath concurrent allocations.
type Worker struct {
	service  Reconciler
	interval time.Duration
	log      *logger.Logger

	// AfterRun is called after every reconciliation pass, if set.
	AfterRun func(ctx context.Context)
}

func NewWorker(service Reconciler, interval time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		service:  service,
		interval: interval,
		log:      log.WithComponent("worker"),
	}
}

// Run reconciles once at startup, then on every tick and every trigger until ctx is done.
// A non-positive interval disables the ticker.
func (w *Worker) Run(ctx context.Context, trigger <-chan struct{}) {
	ctx = logger.WithLogger(ctx, w.log)
	w.runOnce(ctx, "startup")

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			w.runOnce(ctx, "interval")
		case <-trigger:
			w.runOnce(ctx, "signal")
		}
	}
}

func (w *Worker) runOnce(ctx context.Context, reason string) {
	start := time.Now()
	outcomes := w.service.FixAllCountersWithMode(ctx, coreseq.ModeRatchet)

	failed := 0
	for _, o := range outcomes {
		if o.Status != coreseq.OutcomeSuccess {
			failed++
			w.log.Warnw("counter not reconciled", "counter", o.CounterName, "error", o.Error)
			continue
		}
		w.log.Debugw("counter reconciled", "counter", o.CounterName, "synced_to", *o.SyncedTo)
	}

	w.log.Infow("reconciliation finished",
		"reason", reason,
		"counters", len(outcomes),
		"failed", failed,
		"duration", time.Since(start),
	)

	if w.AfterRun != nil {
		w.AfterRun(ctx)
	}
}
