package sequence

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// fakeTimer fires immediately and records requested waits.
type fakeTimer struct {
	mu    sync.Mutex
	ch    chan time.Time
	waits []time.Duration
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{ch: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.ch <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

// instantPolicy returns the default policy with a shared recording timer.
func instantPolicy(timer *fakeTimer) RetryPolicy {
	p := DefaultRetryPolicy()
	p.NewTimer = func() backoff.Timer { return timer }
	return p
}
