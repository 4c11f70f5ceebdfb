package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreseq "medseq/internal/core/sequence"
)

func TestCounterStore_IncrementAndGet_Concurrent(t *testing.T) {
	store := NewCounterStore()
	ctx := context.Background()
	const n = 200

	var wg sync.WaitGroup
	values := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := store.IncrementAndGet(ctx, "patientId_2025")
			assert.NoError(t, err)
			values[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		require.Equal(t, int64(i+1), v)
	}
}

func TestCounterStore_NamesAreIndependent(t *testing.T) {
	store := NewCounterStore()
	ctx := context.Background()

	_, _ = store.IncrementAndGet(ctx, "a")
	_, _ = store.IncrementAndGet(ctx, "a")
	v, err := store.IncrementAndGet(ctx, "b")

	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCounterStore_SetAndRaise(t *testing.T) {
	store := NewCounterStore()
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "x", 100))
	v, err := store.GetValue(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)

	raised, err := store.RaiseValue(ctx, "x", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(100), raised, "raise never lowers")

	raised, err = store.RaiseValue(ctx, "x", 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), raised)

	// set may move backward
	require.NoError(t, store.SetValue(ctx, "x", 3))
	next, err := store.IncrementAndGet(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
}

func TestCounterStore_GetMissing(t *testing.T) {
	store := NewCounterStore()
	ctx := context.Background()

	v, err := store.GetValue(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, coreseq.ErrCounterNotFound)
}

func TestCounterStore_FailNext(t *testing.T) {
	store := NewCounterStore()
	ctx := context.Background()
	boom := coreseq.NewTransient(OpIncrement, "x", errors.New("lock timeout"))

	store.FailNext(OpIncrement, boom)

	_, err := store.IncrementAndGet(ctx, "x")
	assert.True(t, coreseq.IsTransient(err))

	v, err := store.IncrementAndGet(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "failed call must not consume a value")
}

func TestCounterStore_List(t *testing.T) {
	store := NewCounterStore()
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "b", 2))
	require.NoError(t, store.SetValue(ctx, "a", 1))

	counters, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, counters, 2)
	assert.Equal(t, "a", counters[0].Name)
	assert.Equal(t, "b", counters[1].Name)
	assert.False(t, counters[0].CreatedAt.IsZero())
}

func TestCounterStore_DoneContext(t *testing.T) {
	store := NewCounterStore()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.IncrementAndGet(cancelled, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, coreseq.IsTransient(err), "cancellation is not retried")

	err = store.SetValue(cancelled, "x", 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, coreseq.IsTransient(err))

	expired, cancelExpired := context.WithTimeout(context.Background(), -time.Second)
	defer cancelExpired()

	_, err = store.RaiseValue(expired, "x", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, coreseq.IsTransient(err))

	v, err := store.GetValue(context.Background(), "x")
	require.NoError(t, err)
	assert.Zero(t, v, "no write happened on a done context")
}
