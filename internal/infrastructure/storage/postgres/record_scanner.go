package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	coreseq "medseq/internal/core/sequence"
	"medseq/pkg/logger"
)

// DefaultScanTimeout bounds a single reconciliation scan.
const DefaultScanTimeout = 30 * time.Second

// RecordScanner implements coreseq.Scanner over application tables.
//
// The highest identifier is computed inside PostgreSQL so that only one row
// crosses the wire regardless of table size. Suffixes longer than 18 digits
// are ignored since they cannot be stored in a BIGINT counter.
type RecordScanner struct {
	txm     TxRunner
	timeout time.Duration
	builder squirrel.StatementBuilderType
}

var _ coreseq.Scanner = (*RecordScanner)(nil)

// TxRunner runs fn in a transaction and hands out the querier bound to it.
// *TxManager implements it.
type TxRunner interface {
	QuerierSource
	RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error
}

var _ TxRunner = (*TxManager)(nil)

// NewRecordScanner creates a scanner running each scan in a read-only transaction.
func NewRecordScanner(txm TxRunner, timeout time.Duration) *RecordScanner {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	return &RecordScanner{
		txm:     txm,
		timeout: timeout,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Scan implements coreseq.Scanner.
func (s *RecordScanner) Scan(ctx context.Context, target coreseq.Target) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	sql, args, err := s.buildQuery(target)
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var result int64
	err = s.txm.RunInTransactionWithOptions(ctx, ReadOnlyTxOptions(s.timeout), func(ctx context.Context) error {
		querier := s.txm.GetQuerier(ctx)
		if target.Prefix != "" {
			return pgxscan.Get(ctx, querier, &result, sql, args...)
		}

		var raw string
		if err := pgxscan.Get(ctx, querier, &raw, sql, args...); err != nil {
			if pgxscan.NotFound(err) {
				return nil
			}
			return err
		}
		result = coreseq.ParseNumeric(raw)
		return nil
	})
	if err != nil {
		return 0, &coreseq.ScanFailedError{Collection: target.Collection, Field: target.Field, Err: err}
	}

	logger.Debug(ctx, "collection scanned",
		"collection", target.Collection,
		"field", target.Field,
		"prefix", target.Prefix,
		"max", result)
	return result, nil
}

// buildQuery returns the statement computing the highest identifier for target.
//
// Prefixed targets aggregate over the numeric suffix of matching values.
// Unprefixed targets take the greatest non-null value as text.
func (s *RecordScanner) buildQuery(target coreseq.Target) (string, []any, error) {
	table := pgx.Identifier(strings.Split(target.Collection, ".")).Sanitize()
	col := pgx.Identifier{target.Field}.Sanitize()

	if target.Prefix == "" {
		return s.builder.
			Select(fmt.Sprintf("CAST(%s AS TEXT)", col)).
			From(table).
			Where(col + " IS NOT NULL").
			OrderBy(col + " DESC").
			Limit(1).
			ToSql()
	}

	// SUBSTRING positions are 1-based and count characters.
	offset := utf8.RuneCountInString(target.Prefix) + 1
	pattern := "^" + regexp.QuoteMeta(target.Prefix) + "[0-9]{1,18}$"
	return s.builder.
		Select(fmt.Sprintf("COALESCE(MAX(CAST(SUBSTRING(%s FROM %d) AS BIGINT)), 0)", col, offset)).
		From(table).
		Where(squirrel.Expr(col+" ~ ?", pattern)).
		ToSql()
}
