package postgres

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreseq "medseq/internal/core/sequence"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

// mockQuerier simulates a single counter row for the upsert statements.
type mockQuerier struct {
	mu     sync.Mutex
	value  int64
	exists bool
	err    error
	calls  []call
}

func (m *mockQuerier) record(sql string, args []any) {
	m.calls = append(m.calls, call{sql: sql, args: args})
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(sql, args)
	if m.err != nil {
		return pgconn.CommandTag{}, m.err
	}
	m.value = args[1].(int64)
	m.exists = true
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported by mock")
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(sql, args)
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	switch {
	case strings.Contains(sql, "GREATEST"):
		floor := args[1].(int64)
		if !m.exists || floor > m.value {
			m.value = floor
		}
		m.exists = true
	case strings.HasPrefix(sql, "INSERT"):
		if m.exists {
			m.value++
		} else {
			m.value = 1
			m.exists = true
		}
	case strings.HasPrefix(sql, "SELECT"):
		if !m.exists {
			return &mockRow{err: pgx.ErrNoRows}
		}
	}
	return &mockRow{val: m.value}
}

type staticSource struct{ q Querier }

func (s staticSource) GetQuerier(context.Context) Querier { return s.q }

func newTestStore() (*CounterStore, *mockQuerier) {
	q := &mockQuerier{}
	return NewCounterStore(staticSource{q: q}), q
}

func TestCounterStore_IncrementAndGet(t *testing.T) {
	store, q := newTestStore()
	ctx := context.Background()

	v1, err := store.IncrementAndGet(ctx, "patientId_2025")
	require.NoError(t, err)
	v2, err := store.IncrementAndGet(ctx, "patientId_2025")
	require.NoError(t, err)

	assert.Equal(t, int64(1), v1)
	assert.Equal(t, int64(2), v2)

	require.Len(t, q.calls, 2)
	assert.Equal(t,
		"INSERT INTO sys_counters (name,value) VALUES ($1,$2) "+
			"ON CONFLICT (name) DO UPDATE SET value = sys_counters.value + 1, updated_at = NOW() RETURNING value",
		q.calls[0].sql)
	assert.Equal(t, []any{"patientId_2025", int64(1)}, q.calls[0].args)
}

func TestCounterStore_SetValue(t *testing.T) {
	store, q := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "pharmacySupplier", 100))
	assert.Contains(t, q.calls[0].sql, "DO UPDATE SET value = EXCLUDED.value")

	v, err := store.GetValue(ctx, "pharmacySupplier")
	require.NoError(t, err)
	assert.Equal(t, int64(100), v)

	next, err := store.IncrementAndGet(ctx, "pharmacySupplier")
	require.NoError(t, err)
	assert.Equal(t, int64(101), next)
}

func TestCounterStore_SetValue_RejectsNegative(t *testing.T) {
	store, q := newTestStore()

	err := store.SetValue(context.Background(), "x", -1)
	assert.ErrorIs(t, err, coreseq.ErrInvalidInput)
	assert.Empty(t, q.calls)
}

func TestCounterStore_RaiseValue(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.SetValue(ctx, "c", 50))

	v, err := store.RaiseValue(ctx, "c", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(50), v, "lower floor must not move the counter backward")

	v, err = store.RaiseValue(ctx, "c", 80)
	require.NoError(t, err)
	assert.Equal(t, int64(80), v)
}

func TestCounterStore_GetValue_Absent(t *testing.T) {
	store, _ := newTestStore()

	v, err := store.GetValue(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestCounterStore_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, q := newTestStore()
			q.err = tt.err

			_, err := store.IncrementAndGet(context.Background(), "c")
			require.Error(t, err)
			assert.Equal(t, tt.transient, coreseq.IsTransient(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCounterStore_Ping(t *testing.T) {
	store, _ := newTestStore()
	assert.NoError(t, store.Ping(context.Background()))
}
