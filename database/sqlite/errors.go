package sqlite

import (
	"context"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"

	"github.com/dbglass/dbglass/provider"
)

// SQLite result codes the adapter cares about. Extended codes carry the base
// code in their low byte.
const (
	codeBusy       = 5
	codeLocked     = 6
	codeConstraint = 19

	extConstraintForeignKey = 787
	extConstraintNotNull    = 1299
	extConstraintPrimaryKey = 1555
	extConstraintUnique     = 2067
)

// isRetryable reports whether err is a busy or locked condition a retried
// transaction could survive.
func isRetryable(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	base := se.Code() & 0xff
	return base == codeBusy || base == codeLocked
}

// classifyError maps a driver error onto the shared error taxonomy,
// preserving the engine message and result code. Non-driver errors pass
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

	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}

	code := provider.CodeQueryFailed
	switch se.Code() {
	case extConstraintUnique, extConstraintPrimaryKey:
		code = provider.CodeDuplicateKey
	case extConstraintForeignKey:
		code = provider.CodeForeignKeyViolation
	case extConstraintNotNull:
		code = provider.CodeNotNullViolation
	default:
		switch se.Code() & 0xff {
		case codeConstraint:
			code = provider.CodeConstraintViolation
		case codeBusy, codeLocked:
			code = provider.CodeQueryTimeout
		}
	}

	return &provider.ProviderError{
		Code:    code,
		Message: se.Error(),
		Detail:  fmt.Sprintf("sqlite result code %d", se.Code()),
		Cause:   err,
	}
}
