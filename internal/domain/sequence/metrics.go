package sequence

import (
	"time"

	coreseq "medseq/internal/core/sequence"
)

// Metrics receives allocation and reconciliation events.
// The Prometheus implementation lives in internal/infrastructure/metrics.
type Metrics interface {
	ObserveAllocation(counter string, attempts int, elapsed time.Duration, err error)
	ObserveRetry(counter string)
	ObserveReconcile(counter string, mode coreseq.ReconcileMode, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAllocation(string, int, time.Duration, error)   {}
func (nopMetrics) ObserveRetry(string)                                   {}
func (nopMetrics) ObserveReconcile(string, coreseq.ReconcileMode, error) {}
