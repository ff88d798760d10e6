package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatConfig     ErrorCategory = "config"     // Invalid or missing configuration
	ErrCatProvider   ErrorCategory = "provider"   // Provider-reported failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Call exceeded its deadline
	ErrCatStage      ErrorCategory = "stage"      // Every provider in a stage failed
	ErrCatValidation ErrorCategory = "validation" // Output shape violation
	ErrCatCircuit    ErrorCategory = "circuit"    // Circuit breaker open
	ErrCatNetwork    ErrorCategory = "network"    // Network connectivity
	ErrCatAuth       ErrorCategory = "auth"       // Authentication failure
	ErrCatRecovery   ErrorCategory = "recovery"   // Recovery itself failed
	ErrCatState      ErrorCategory = "state"      // Checkpoint store corruption/conflict
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the pipeline layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrConfig creates a configuration error. Never retried.
func ErrConfig(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfig,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNoProviders indicates a stage has no providers configured.
func ErrNoProviders(stage Stage) *DomainError {
	return &DomainError{
		Category:  ErrCatConfig,
		Code:      CodeNoProviders,
		Message:   fmt.Sprintf("no providers configured for stage %s", stage),
		Retryable: false,
		Details:   map[string]interface{}{"stage": string(stage)},
	}
}

// ErrProvider creates a provider-reported error.
func ErrProvider(provider, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatProvider,
		Code:      CodeProviderFailed,
		Message:   message,
		Retryable: true,
		Details:   map[string]interface{}{"provider": provider},
	}
}

// ErrTimeout creates a deadline-exceeded error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrStageFailed indicates every provider in a stage failed.
// Retryable: the recovery orchestrator may re-run the remaining pipeline.
func ErrStageFailed(stage Stage, providerErrors map[string]string) *DomainError {
	details := make(map[string]interface{}, len(providerErrors)+1)
	details["stage"] = string(stage)
	for name, msg := range providerErrors {
		details["provider_"+name] = msg
	}
	return &DomainError{
		Category:  ErrCatStage,
		Code:      CodeStageFailed,
		Message:   fmt.Sprintf("all providers failed in stage %s", stage),
		Retryable: true,
		Details:   details,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrCircuitOpen indicates the breaker rejected a call without attempting it.
// Treated as transient: the provider may recover before the next retry.
func ErrCircuitOpen(operation string) *DomainError {
	return &DomainError{
		Category:  ErrCatCircuit,
		Code:      CodeCircuitOpen,
		Message:   fmt.Sprintf("circuit open for operation %s", operation),
		Retryable: true,
		Details:   map[string]interface{}{"operation": operation},
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      "AUTH_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// ErrNetwork creates a network connectivity error.
func ErrNetwork(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      "NETWORK",
		Message:   message,
		Retryable: true,
	}
}

// ErrImageUnavailable indicates the screenshot could not be fetched.
func ErrImageUnavailable(ref string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      CodeImageUnavailable,
		Message:   fmt.Sprintf("image %s could not be fetched", ref),
		Retryable: true,
		Cause:     cause,
		Details:   map[string]interface{}{"ref": ref},
	}
}

// ErrState creates a checkpoint store error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrRecoveryExhausted indicates neither partial nor degraded recovery was
// possible. This is the only path on which the caller sees a bare failure.
func ErrRecoveryExhausted(message string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatRecovery,
		Code:      CodeRecoveryExhausted,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsTransient reports whether an error should be treated as a temporary
// condition. Timeouts, network failures, open circuits and whole-stage
// failures qualify; auth, parse and validation failures do not.
func IsTransient(err error) bool {
	switch GetCategory(err) {
	case ErrCatTimeout, ErrCatNetwork, ErrCatCircuit, ErrCatStage, ErrCatProvider:
		return true
	default:
		return false
	}
}

// Predefined error codes
const (
	CodeNoProviders       = "NO_PROVIDERS"
	CodeProviderFailed    = "PROVIDER_FAILED"
	CodeStageFailed       = "STAGE_FAILED"
	CodeCircuitOpen       = "CIRCUIT_OPEN"
	CodeRecoveryExhausted = "RECOVERY_EXHAUSTED"
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeParseFailed       = "PARSE_FAILED"
	CodeNullResult        = "NULL_RESULT"
	CodeCheckpointStale   = "CHECKPOINT_STALE"
	CodeStoreCorrupted    = "STORE_CORRUPTED"
	CodeImageUnavailable  = "IMAGE_UNAVAILABLE"
)
