package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	coreseq "medseq/internal/core/sequence"
)

// TableCounters holds one row per named counter.
const TableCounters = "sys_counters"

// QuerierSource yields the querier bound to ctx (a transaction or the pool).
// *TxManager implements it.
type QuerierSource interface {
	GetQuerier(ctx context.Context) Querier
}

// CounterStore implements coreseq.Store on PostgreSQL.
//
// Increments are a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING
// statement, so the row lock taken by the upsert serializes concurrent callers
// and no two of them can read the same value.
type CounterStore struct {
	source  QuerierSource
	builder squirrel.StatementBuilderType
}

var (
	_ coreseq.Store  = (*CounterStore)(nil)
	_ coreseq.Pinger = (*CounterStore)(nil)
)

// NewCounterStore creates a store reading queriers from source.
func NewCounterStore(source QuerierSource) *CounterStore {
	return &CounterStore{
		source:  source,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (s *CounterStore) upsert(name string, value int64, onConflict string) squirrel.InsertBuilder {
	return s.builder.Insert(TableCounters).
		Columns("name", "value").
		Values(name, value).
		Suffix("ON CONFLICT (name) DO UPDATE SET " + onConflict + ", updated_at = NOW()")
}

// IncrementAndGet implements coreseq.Store.
func (s *CounterStore) IncrementAndGet(ctx context.Context, name string) (int64, error) {
	sql, args, err := s.upsert(name, 1, "value = "+TableCounters+".value + 1").
		Suffix("RETURNING value").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var value int64
	if err := s.source.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return 0, classify("increment", name, err)
	}
	return value, nil
}

// SetValue implements coreseq.Store.
func (s *CounterStore) SetValue(ctx context.Context, name string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: counter value must be non-negative, got %d", coreseq.ErrInvalidInput, value)
	}
	sql, args, err := s.upsert(name, value, "value = EXCLUDED.value").ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.source.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return classify("set", name, err)
	}
	return nil
}

// RaiseValue implements coreseq.Store.
func (s *CounterStore) RaiseValue(ctx context.Context, name string, floor int64) (int64, error) {
	if floor < 0 {
		floor = 0
	}
	sql, args, err := s.upsert(name, floor, "value = GREATEST("+TableCounters+".value, EXCLUDED.value)").
		Suffix("RETURNING value").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var value int64
	if err := s.source.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return 0, classify("raise", name, err)
	}
	return value, nil
}

// GetValue implements coreseq.Store.
func (s *CounterStore) GetValue(ctx context.Context, name string) (int64, error) {
	sql, args, err := s.builder.Select("value").
		From(TableCounters).
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var value int64
	if err := s.source.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, classify("get", name, err)
	}
	return value, nil
}

func (s *CounterStore) selectCounters() squirrel.SelectBuilder {
	return s.builder.Select("name", "value", "created_at", "updated_at").From(TableCounters)
}

// Get implements coreseq.Store.
func (s *CounterStore) Get(ctx context.Context, name string) (*coreseq.Counter, error) {
	sql, args, err := s.selectCounters().Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c coreseq.Counter
	if err := pgxscan.Get(ctx, s.source.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("%w: %s", coreseq.ErrCounterNotFound, name)
		}
		return nil, classify("get", name, err)
	}
	return &c, nil
}

// List implements coreseq.Store.
func (s *CounterStore) List(ctx context.Context) ([]coreseq.Counter, error) {
	sql, args, err := s.selectCounters().OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	counters := make([]coreseq.Counter, 0)
	if err := pgxscan.Select(ctx, s.source.GetQuerier(ctx), &counters, sql, args...); err != nil {
		return nil, classify("list", "*", err)
	}
	return counters, nil
}

// Ping implements coreseq.Pinger when the querier source can reach the database.
func (s *CounterStore) Ping(ctx context.Context) error {
	if p, ok := s.source.(coreseq.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
