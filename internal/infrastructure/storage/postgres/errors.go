package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	coreseq "medseq/internal/core/sequence"
)

// SQLSTATE codes that indicate the statement did not take effect and may be retried.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeTooManyConnections   = "53300"
	codeAdminShutdown        = "57P01"
	classConnectionException = "08"
)

// isTransient reports whether err is a failure that is safe to retry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable,
			codeQueryCanceled, codeTooManyConnections, codeAdminShutdown:
			return true
		}
		return strings.HasPrefix(pgErr.Code, classConnectionException)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify wraps store errors so the allocator can tell retryable failures apart.
func classify(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return coreseq.NewTransient(op, name, err)
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}
