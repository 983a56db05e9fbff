package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeInvariant(t *testing.T) {
	t.Run("success has empty error list and non-nil data", func(t *testing.T) {
		env := Success(42, "postgres", "1.0.0", 5*time.Millisecond)

		assert.True(t, env.IsSuccess())
		assert.False(t, env.IsError())
		assert.Empty(t, env.Errors)
		require.NotNil(t, env.Data)
		assert.Equal(t, 42, *env.Data)
		assert.Nil(t, env.FirstError())
	})

	t.Run("failure has nil data and at least one error", func(t *testing.T) {
		env := Failure[int](errors.New("boom"), "postgres", "1.0.0", 0)

		assert.False(t, env.IsSuccess())
		assert.True(t, env.IsError())
		assert.Nil(t, env.Data)
		require.NotNil(t, env.FirstError())
		assert.Equal(t, CodeProviderError, env.FirstError().Code)
		assert.Equal(t, "boom", env.FirstError().Message)
	})
}

func TestEnvelopeUnwrapRoundTrip(t *testing.T) {
	t.Run("success unwraps to original value", func(t *testing.T) {
		value, err := Success("hello", "sqlite", "1.0.0", 0).Unwrap()
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
	})

	t.Run("failure unwraps to an error carrying the original code and message", func(t *testing.T) {
		cause := NewProviderError(CodeDuplicateKey, "duplicate key value violates unique constraint")
		_, err := Failure[string](cause, "postgres", "1.0.0", 0).Unwrap()

		require.Error(t, err)
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, CodeDuplicateKey, pe.Code)
		assert.Equal(t, cause.Message, pe.Message)
	})
}

func TestFailureClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"provider error keeps its code", NewProviderError(CodeQueryTimeout, "canceled"), CodeQueryTimeout},
		{"unsupported operation", NewUnsupportedOperationError("sqlite", "rename database", ""), CodeCapabilityNotSupported},
		{"connection error", NewConnectionError("postgres", "localhost:5432", errors.New("refused")), CodeConnectionFailed},
		{"configuration error", NewConfigurationError("postgres", "port", "must be positive"), CodeInvalidConfiguration},
		{"not connected sentinel", ErrNotConnected, CodeConnectionFailed},
		{"empty where sentinel", ErrEmptyWhere, CodeValidationError},
		{"unclassified defaults to provider error", errors.New("weird"), CodeProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Failure[struct{}](tt.err, "postgres", "1.0.0", 0)
			require.NotNil(t, env.FirstError())
			assert.Equal(t, tt.code, env.FirstError().Code)
		})
	}
}

func TestFailureStackTraceOnlyInDevelopment(t *testing.T) {
	SetDevelopmentMode(false)
	env := Failure[int](errors.New("boom"), "postgres", "1.0.0", 0)
	assert.Empty(t, env.FirstError().Stack)

	SetDevelopmentMode(true)
	defer SetDevelopmentMode(false)
	env = Failure[int](errors.New("boom"), "postgres", "1.0.0", 0)
	assert.NotEmpty(t, env.FirstError().Stack)
}

func TestRun(t *testing.T) {
	t.Run("wraps returned value with timing", func(t *testing.T) {
		env := Run(context.Background(), "sqlite", "1.0.0", func(ctx context.Context) (int, error) {
			time.Sleep(time.Millisecond)
			return 7, nil
		})

		require.True(t, env.IsSuccess())
		assert.Equal(t, 7, *env.Data)
		assert.Equal(t, "sqlite", env.Meta.Provider)
		assert.Equal(t, "1.0.0", env.Meta.Version)
		assert.Positive(t, env.Meta.Duration)
		assert.False(t, env.Meta.Timestamp.IsZero())
	})

	t.Run("converts an error into an error envelope", func(t *testing.T) {
		env := Run(context.Background(), "sqlite", "1.0.0", func(ctx context.Context) (int, error) {
			return 0, NewProviderError(CodeSyntaxError, `near "FROM": syntax error`)
		})

		require.True(t, env.IsError())
		assert.Nil(t, env.Data)
		assert.Equal(t, CodeSyntaxError, env.FirstError().Code)
	})
}

func TestWrapProviderError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, WrapProviderError(CodeQueryFailed, nil))
	})

	t.Run("existing classification is preserved", func(t *testing.T) {
		inner := NewProviderError(CodeDeadlockDetected, "deadlock detected")
		wrapped := WrapProviderError(CodeQueryFailed, inner)
		assert.Equal(t, CodeDeadlockDetected, wrapped.Code)
	})

	t.Run("plain error gets the given code and keeps its message", func(t *testing.T) {
		wrapped := WrapProviderError(CodeQueryFailed, errors.New("driver said no"))
		assert.Equal(t, CodeQueryFailed, wrapped.Code)
		assert.Equal(t, "driver said no", wrapped.Message)
	})
}
