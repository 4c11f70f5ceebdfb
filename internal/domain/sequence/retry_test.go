package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_LinearDelays(t *testing.T) {
	b := DefaultRetryPolicy().backOff(context.Background())
	b.Reset()

	var got []time.Duration
	for {
		next := b.NextBackOff()
		if next == backoff.Stop {
			break
		}
		got = append(got, next)
	}

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		400 * time.Millisecond,
	}, got)
}

func TestRetryPolicy_SingleAttempt(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 0, BaseDelay: time.Second}.normalized()
	assert.Equal(t, 1, p.MaxAttempts)

	b := p.backOff(context.Background())
	b.Reset()
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
