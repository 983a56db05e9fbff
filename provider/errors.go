package provider

import (
	"errors"
	"fmt"

	"github.com/dbglass/dbglass/dbcapabilities"
)

// ErrorCode classifies a failure by phase. Adapters and callers should prefer
// these over ad hoc strings; external layers may branch on them.
type ErrorCode string

const (
	// Connection phase
	CodeConnectionFailed     ErrorCode = "CONNECTION_FAILED"
	CodeConnectionTimeout    ErrorCode = "CONNECTION_TIMEOUT"
	CodeConnectionRefused    ErrorCode = "CONNECTION_REFUSED"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"

	// Query phase
	CodeQueryFailed      ErrorCode = "QUERY_FAILED"
	CodeQueryTimeout     ErrorCode = "QUERY_TIMEOUT"
	CodeSyntaxError      ErrorCode = "SYNTAX_ERROR"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Data integrity
	CodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
	CodeDuplicateKey        ErrorCode = "DUPLICATE_KEY"
	CodeForeignKeyViolation ErrorCode = "FOREIGN_KEY_VIOLATION"
	CodeNotNullViolation    ErrorCode = "NOT_NULL_VIOLATION"

	// Provider level
	CodeProviderError          ErrorCode = "PROVIDER_ERROR"
	CodeCapabilityNotSupported ErrorCode = "CAPABILITY_NOT_SUPPORTED"
	CodeProviderNotFound       ErrorCode = "PROVIDER_NOT_FOUND"

	// Transaction
	CodeTransactionFailed    ErrorCode = "TRANSACTION_FAILED"
	CodeDeadlockDetected     ErrorCode = "DEADLOCK_DETECTED"
	CodeSerializationFailure ErrorCode = "SERIALIZATION_FAILURE"

	// Validation
	CodeValidationError      ErrorCode = "VALIDATION_ERROR"
	CodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
)

// Standard provider errors
var (
	// ErrNotConnected is returned when a data operation is attempted on a
	// provider that has not been connected or was disconnected.
	ErrNotConnected = errors.New("provider is not connected")

	// ErrOperationNotSupported is returned when an operation is not supported
	// by the engine behind a provider.
	ErrOperationNotSupported = errors.New("operation not supported by this provider")

	// ErrProviderNotRegistered is returned when a provider type has no registration.
	ErrProviderNotRegistered = errors.New("provider type not registered")

	// ErrEmptyWhere is returned when a destructive operation is issued without
	// any WHERE filter.
	ErrEmptyWhere = errors.New("refusing unconditional destructive operation: WHERE filters are required")

	// ErrInvalidConfiguration is returned when a configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ProviderError is the structured error carried inside error envelopes and
// re-raised by Envelope.Unwrap. Code is a best-effort classification; the
// original driver message is preserved, never masked.
type ProviderError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Cause   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError with the given classification.
func NewProviderError(code ErrorCode, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// WrapProviderError classifies an existing error, preserving its message.
// A ProviderError passes through unchanged so classifications applied close
// to the driver are not overwritten.
func WrapProviderError(code ErrorCode, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Code: code, Message: err.Error(), Cause: err}
}

// CodeOf extracts the error code carried by err, defaulting to the generic
// provider-error code when no more specific classification applies.
func CodeOf(err error) ErrorCode {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeProviderError
}

// UnsupportedOperationError is returned when an operation is not supported by
// an engine. It maps onto CodeCapabilityNotSupported at the envelope boundary.
type UnsupportedOperationError struct {
	ProviderType dbcapabilities.DatabaseID
	Operation    string
	Reason       string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.ProviderType, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.ProviderType, e.Operation)
}

// Is checks if the error is ErrOperationNotSupported.
func (e *UnsupportedOperationError) Is(target error) bool {
	return errors.Is(target, ErrOperationNotSupported)
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError.
func NewUnsupportedOperationError(providerType dbcapabilities.DatabaseID, operation, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		ProviderType: providerType,
		Operation:    operation,
		Reason:       reason,
	}
}

// ConnectionError is returned when establishing or using a connection fails.
type ConnectionError struct {
	ProviderType dbcapabilities.DatabaseID
	Target       string
	Cause        error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s: %v", e.ProviderType, e.Target, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new ConnectionError. Target is a host:port pair
// for network engines or a file path for SQLite.
func NewConnectionError(providerType dbcapabilities.DatabaseID, target string, cause error) *ConnectionError {
	return &ConnectionError{
		ProviderType: providerType,
		Target:       target,
		Cause:        cause,
	}
}

// ConfigurationError is returned when a configuration field is invalid.
type ConfigurationError struct {
	ProviderType dbcapabilities.DatabaseID
	Field        string
	Reason       string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: field '%s': %s", e.ProviderType, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.ProviderType, e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(target, ErrInvalidConfiguration)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(providerType dbcapabilities.DatabaseID, field, reason string) *ConfigurationError {
	return &ConfigurationError{
		ProviderType: providerType,
		Field:        field,
		Reason:       reason,
	}
}

// IsUnsupported checks if an error indicates an unsupported operation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrOperationNotSupported)
}

// IsNotConnected checks if an error indicates a missing connection.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
