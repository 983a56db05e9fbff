package provider

import (
	"context"
	"errors"
	"os"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// developmentMode controls whether error envelopes carry stack traces.
var developmentMode atomic.Bool

func init() {
	if os.Getenv("DBGLASS_ENV") == "development" {
		developmentMode.Store(true)
	}
}

// SetDevelopmentMode toggles stack trace capture on error envelopes.
func SetDevelopmentMode(enabled bool) {
	developmentMode.Store(enabled)
}

// ResponseError is the structured error shape carried inside envelopes.
type ResponseError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	Stack   string    `json:"stack,omitempty"`
}

// Meta carries timing and origin metadata for an envelope.
type Meta struct {
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
	Provider  string        `json:"provider"`
	Version   string        `json:"version"`
}

// Envelope is the uniform response wrapper around every provider operation's
// result. An envelope is successful iff Errors is empty; Data is non-nil only
// on success.
type Envelope[T any] struct {
	Data   *T              `json:"data"`
	Meta   Meta            `json:"meta"`
	Errors []ResponseError `json:"errors"`
}

// Success creates a successful envelope with an empty error list.
func Success[T any](data T, providerType, version string, duration time.Duration) *Envelope[T] {
	return &Envelope[T]{
		Data: &data,
		Meta: Meta{
			Timestamp: time.Now(),
			Duration:  duration,
			Provider:  providerType,
			Version:   version,
		},
		Errors: []ResponseError{},
	}
}

// Failure creates an error envelope from a native error. The error's code is
// classified through the typed error family, defaulting to the generic
// provider-error code, and the original message is preserved. In development
// mode a stack trace is attached.
func Failure[T any](err error, providerType, version string, duration time.Duration) *Envelope[T] {
	return FailureFromResponse[T](responseError(err), providerType, version, duration)
}

// FailureFromResponse creates an error envelope from an already-structured
// error, passed through as-is.
func FailureFromResponse[T any](re ResponseError, providerType, version string, duration time.Duration) *Envelope[T] {
	return &Envelope[T]{
		Data: nil,
		Meta: Meta{
			Timestamp: time.Now(),
			Duration:  duration,
			Provider:  providerType,
			Version:   version,
		},
		Errors: []ResponseError{re},
	}
}

// responseError classifies err into a ResponseError, preserving the original
// message and attaching a stack trace in development mode.
func responseError(err error) ResponseError {
	re := ResponseError{Code: CodeProviderError, Message: err.Error()}

	var pe *ProviderError
	var unsupported *UnsupportedOperationError
	var connErr *ConnectionError
	var cfgErr *ConfigurationError
	switch {
	case errors.As(err, &pe):
		re.Code = pe.Code
		re.Message = pe.Message
		re.Detail = pe.Detail
	case errors.As(err, &unsupported):
		re.Code = CodeCapabilityNotSupported
	case errors.As(err, &connErr):
		re.Code = CodeConnectionFailed
	case errors.As(err, &cfgErr):
		re.Code = CodeInvalidConfiguration
	case errors.Is(err, ErrNotConnected):
		re.Code = CodeConnectionFailed
	case errors.Is(err, ErrEmptyWhere):
		re.Code = CodeValidationError
	case errors.Is(err, ErrProviderNotRegistered):
		re.Code = CodeProviderNotFound
	}

	if developmentMode.Load() {
		re.Stack = string(debug.Stack())
	}
	return re
}

// Run executes fn, measures elapsed wall-clock time, and converts the returned
// value or error into the corresponding envelope. This is the standard adapter
// boundary wrapper: every public adapter method returns a consistent shape
// without duplicating error handling.
func Run[T any](ctx context.Context, providerType, version string, fn func(ctx context.Context) (T, error)) *Envelope[T] {
	start := time.Now()
	data, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return Failure[T](err, providerType, version, elapsed)
	}
	return Success(data, providerType, version, elapsed)
}

// IsSuccess reports whether the operation succeeded.
func (e *Envelope[T]) IsSuccess() bool {
	return len(e.Errors) == 0
}

// IsError reports whether the operation failed.
func (e *Envelope[T]) IsError() bool {
	return len(e.Errors) > 0
}

// FirstError returns the first error, or nil if the envelope is successful.
// The list may contain more.
func (e *Envelope[T]) FirstError() *ResponseError {
	if len(e.Errors) == 0 {
		return nil
	}
	return &e.Errors[0]
}

// Unwrap returns the payload, or re-raises the first error as a ProviderError
// carrying the original code, for call sites that prefer errors over
// inspecting envelopes.
func (e *Envelope[T]) Unwrap() (T, error) {
	if re := e.FirstError(); re != nil {
		var zero T
		return zero, &ProviderError{Code: re.Code, Message: re.Message, Detail: re.Detail}
	}
	if e.Data == nil {
		var zero T
		return zero, nil
	}
	return *e.Data, nil
}
