package sequence

import (
	"context"
	"time"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// Job reconciles every counter in a registry of mappings.
type Job struct {
	reconciler *Reconciler
	mappings   []coreseq.Mapping
	mode       coreseq.ReconcileMode
	now        func() time.Time
}

// NewJob creates a reconciliation job over mappings.
// Counter names containing {year} are resolved with now at every run.
func NewJob(reconciler *Reconciler, mappings []coreseq.Mapping, mode coreseq.ReconcileMode, now func() time.Time) *Job {
	if now == nil {
		now = time.Now
	}
	registry := make([]coreseq.Mapping, len(mappings))
	copy(registry, mappings)
	return &Job{
		reconciler: reconciler,
		mappings:   registry,
		mode:       mode,
		now:        now,
	}
}

// Mappings returns the registry resolved for the current instant.
func (j *Job) Mappings() []coreseq.Mapping {
	at := j.now()
	resolved := make([]coreseq.Mapping, 0, len(j.mappings))
	for _, m := range j.mappings {
		resolved = append(resolved, m.Resolve(at))
	}
	return resolved
}

// Mode returns the reconcile mode used by Run.
func (j *Job) Mode() coreseq.ReconcileMode {
	return j.mode
}

// Run syncs each mapping in order. A failed mapping is recorded and the run continues,
// so the result always holds one outcome per mapping.
func (j *Job) Run(ctx context.Context) []coreseq.Outcome {
	mappings := j.Mappings()
	outcomes := make([]coreseq.Outcome, 0, len(mappings))

	for _, m := range mappings {
		value, err := j.reconciler.Sync(ctx, m.CounterName, m.Target, j.mode)
		if err != nil {
			logger.Warn(ctx, "counter reconciliation failed",
				"counter", m.CounterName, "collection", m.Collection, "error", err)
			outcomes = append(outcomes, coreseq.Outcome{
				CounterName: m.CounterName,
				Status:      coreseq.OutcomeFailed,
				Error:       err.Error(),
			})
			continue
		}

		synced := value
		outcomes = append(outcomes, coreseq.Outcome{
			CounterName: m.CounterName,
			Status:      coreseq.OutcomeSuccess,
			SyncedTo:    &synced,
		})
	}

	failed := 0
	for _, o := range outcomes {
		if o.Status == coreseq.OutcomeFailed {
			failed++
		}
	}
	logger.Info(ctx, "reconciliation run finished",
		"mode", j.mode.String(), "total", len(outcomes), "failed", failed)

	return outcomes
}
