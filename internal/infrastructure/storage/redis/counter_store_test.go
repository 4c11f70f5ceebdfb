package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreseq "medseq/internal/core/sequence"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*CounterStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := NewCounterStore(client, "test:")
	store.now = func() time.Time { return fixedNow }
	return store, mr
}

func TestCounterStore_IncrementAndGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrementAndGet(ctx, "patientId_2025")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, "3", mr.HGet("test:patientId_2025", "value"))
	assert.Equal(t, fixedNow.Format(time.RFC3339Nano), mr.HGet("test:patientId_2025", "created_at"))
}

func TestCounterStore_ConcurrentIncrementsAreUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.IncrementAndGet(ctx, "c")
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	v, err := store.GetValue(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), v)
}

func TestCounterStore_SetValueThenIncrement(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "pharmacySupplier", 100))

	v, err := store.GetValue(ctx, "pharmacySupplier")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)

	next, err := store.IncrementAndGet(ctx, "pharmacySupplier")
	require.NoError(t, err)
	assert.Equal(t, int64(101), next)

	// overwrite may move backward
	require.NoError(t, store.SetValue(ctx, "pharmacySupplier", 5))
	v, err = store.GetValue(ctx, "pharmacySupplier")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestCounterStore_SetValue_RejectsNegative(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.SetValue(context.Background(), "c", -3)
	assert.ErrorIs(t, err, coreseq.ErrInvalidInput)
}

func TestCounterStore_RaiseValue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	v, err := store.RaiseValue(ctx, "c", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), v, "absent counter takes the floor")

	v, err = store.RaiseValue(ctx, "c", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(40), v)

	v, err = store.RaiseValue(ctx, "c", 41)
	require.NoError(t, err)
	assert.Equal(t, int64(41), v)
}

func TestCounterStore_GetAndList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, coreseq.ErrCounterNotFound)

	v, err := store.GetValue(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, store.SetValue(ctx, "b", 2))
	require.NoError(t, store.SetValue(ctx, "a", 1))

	c, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Value)
	assert.True(t, c.CreatedAt.Equal(fixedNow))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)
}

func TestCounterStore_List_PrefixWithGlobCharacters(t *testing.T) {
	_, mr := newTestStore(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store := NewCounterStore(client, "medseq:[prod]:")
	_, err := store.IncrementAndGet(ctx, "patientId_2025")
	require.NoError(t, err)

	// matched by the unescaped pattern medseq:[prod]:*
	mr.HSet("medseq:p:other", "value", "9")

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "patientId_2025", list[0].Name)
	assert.Equal(t, int64(1), list[0].Value)
}

func TestCounterStore_List_SkipsNonHashKeys(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "a", 1))
	require.NoError(t, mr.Set("test:lock", "held"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Name)
}

func TestEscapeGlob(t *testing.T) {
	tests := map[string]string{
		"medseq:counter:": "medseq:counter:",
		"medseq:[prod]:":  `medseq:\[prod\]:`,
		"a*b?c":           `a\*b\?c`,
		`back\slash`:      `back\\slash`,
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeGlob(in), in)
	}
}

func TestCounterStore_TransientErrors(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.SetError("LOADING Redis is loading the dataset in memory")
	_, err := store.GetValue(ctx, "c")
	require.Error(t, err)
	assert.True(t, coreseq.IsTransient(err))

	mr.SetError("")
	v, err := store.IncrementAndGet(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCounterStore_ConnectionLossIsTransient(t *testing.T) {
	// nothing listens on the discard port
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:9", MaxRetries: -1, DialTimeout: time.Second})
	t.Cleanup(func() { _ = client.Close() })
	store := NewCounterStore(client, "")

	_, err := store.IncrementAndGet(context.Background(), "c")
	require.Error(t, err)
	assert.True(t, coreseq.IsTransient(err))
}

func TestCounterStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
