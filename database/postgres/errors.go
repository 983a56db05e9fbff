package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dbglass/dbglass/provider"
)

// retryableStates are the SQLSTATE codes worth retrying from scratch:
// serialization failure, deadlock, lock timeout, statement cancellation, and
// connection slot exhaustion. Class 08 (connection exceptions) is matched by
// prefix.
var retryableStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled
	"53300": true, // too_many_connections
}

// isRetryable reports whether err is a transient failure a retried
// transaction could survive.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableStates[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08")
	}
	return false
}

// classifyError maps a driver error onto the shared error taxonomy,
// preserving the server message and SQLSTATE detail. Non-driver errors pass
// through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.ProviderError{
			Code:    provider.CodeQueryTimeout,
			Message: "query timed out",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	code := provider.CodeQueryFailed
	switch {
	case pgErr.Code == "23505":
		code = provider.CodeDuplicateKey
	case pgErr.Code == "23503":
		code = provider.CodeForeignKeyViolation
	case pgErr.Code == "23502":
		code = provider.CodeNotNullViolation
	case strings.HasPrefix(pgErr.Code, "23"):
		code = provider.CodeConstraintViolation
	case pgErr.Code == "42601":
		code = provider.CodeSyntaxError
	case pgErr.Code == "42501":
		code = provider.CodePermissionDenied
	case strings.HasPrefix(pgErr.Code, "28"):
		code = provider.CodeAuthenticationFailed
	case strings.HasPrefix(pgErr.Code, "08"):
		code = provider.CodeConnectionFailed
	case pgErr.Code == "57014":
		code = provider.CodeQueryTimeout
	case pgErr.Code == "40001":
		code = provider.CodeSerializationFailure
	case pgErr.Code == "40P01":
		code = provider.CodeDeadlockDetected
	}

	return &provider.ProviderError{
		Code:    code,
		Message: pgErr.Message,
		Detail:  "SQLSTATE " + pgErr.Code,
		Cause:   err,
	}
}
