package sequence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how allocation retries transient store failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number: 1×, 2×, 3× ...
	BaseDelay time.Duration
	// NewTimer creates the timer used to wait between attempts. Nil uses a real timer.
	// A fresh timer is requested for every allocation.
	NewTimer func() backoff.Timer
}

// DefaultRetryPolicy returns 5 attempts with 100ms, 200ms, 300ms, 400ms delays.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// backOff builds a fresh backoff.BackOff for one allocation.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &linearBackOff{base: p.BaseDelay}
	b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	return backoff.WithContext(b, ctx)
}

func (p RetryPolicy) timer() backoff.Timer {
	if p.NewTimer == nil {
		return nil
	}
	return p.NewTimer()
}

// linearBackOff waits base×n before the n-th retry.
type linearBackOff struct {
	base    time.Duration
	retries int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.base * time.Duration(b.retries)
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}
