// Package errors provides error types and handling for shipway.
// It models the reconciliation failure taxonomy: configuration and secret
// format problems that fail before any network call, not-found conditions
// that are normal branches for idempotent operations, transient provider
// faults the pipeline may retry, and partial-provisioning states that the
// next EnsureRole call can heal.
package errors

import (
	"errors"
	"fmt"
)

// ReconcileError represents an engine error with enough context for an
// operator to decide whether to retry, inspect, or roll back manually.
type ReconcileError struct {
	// Code is an error code string for programmatic handling
	Code string
	// Step names the reconciliation step that failed (e.g. "ensure-role")
	Step string
	// Message is a user-friendly error message
	Message string
	// State is the last known state when the step failed, if any
	State string
	// Cause is the underlying error (for error wrapping)
	Cause error
}

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("%s: %s", e.Step, msg)
	}
	if e.State != "" {
		msg = fmt.Sprintf("%s (last state: %s)", msg, e.State)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to work with ReconcileError, matching by code.
func (e *ReconcileError) Is(target error) bool {
	if t, ok := target.(*ReconcileError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// Predefined error codes.
const (
	ErrCodeConfiguration       = "CONFIGURATION"
	ErrCodeSecretFormat        = "SECRET_FORMAT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeTransientProvider   = "TRANSIENT_PROVIDER"
	ErrCodePartialProvisioning = "PARTIAL_PROVISIONING"
	ErrCodeConvergenceTimeout  = "CONVERGENCE_TIMEOUT"
	ErrCodeCancelled           = "CANCELLED"
)

// NewConfiguration creates a configuration error. These fail before any
// network call and are never retried.
func NewConfiguration(message string, cause error) *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodeConfiguration,
		Step:    "configuration",
		Message: message,
		Cause:   cause,
	}
}

// NewSecretFormat creates a secret format error for the named variable.
// The offending value is deliberately absent: it must never be echoed.
func NewSecretFormat(key string) *ReconcileError {
	return &ReconcileError{
		Code: ErrCodeSecretFormat,
		Step: "secret-validation",
		Message: fmt.Sprintf(
			"value of %s looks like raw PEM key material; provide the base64-encoded form", key),
	}
}

// NewNotFound creates a not-found error for a role or service. Idempotent
// operations treat this as a normal branch, not a failure.
func NewNotFound(resource string) *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewTransient wraps a throttling, timeout, or momentary 5xx provider error.
// The engine surfaces these without retrying; retry policy belongs to the
// invoking pipeline.
func NewTransient(step string, cause error) *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodeTransientProvider,
		Step:    step,
		Message: "transient provider error",
		Cause:   cause,
	}
}

// NewPartialProvisioning reports a role that was created but whose policy
// attachment failed. The message names the role and policy so the next
// EnsureRole call is self-healing.
func NewPartialProvisioning(role, policy string, cause error) *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodePartialProvisioning,
		Step:    "ensure-role",
		Message: fmt.Sprintf("role %s created but policy %s not attached; retry to finish attachment", role, policy),
		State:   "role-created",
		Cause:   cause,
	}
}

// NewConvergenceTimeout reports polling exhaustion without reaching the
// target state. Callers decide whether this is fatal.
func NewConvergenceTimeout(target, lastStatus string, attempts int) *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodeConvergenceTimeout,
		Step:    "await-state",
		Message: fmt.Sprintf("did not reach %s after %d attempts", target, attempts),
		State:   lastStatus,
	}
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, &ReconcileError{Code: ErrCodeNotFound})
}

// IsTransient reports whether err is a transient provider error.
func IsTransient(err error) bool {
	return errors.Is(err, &ReconcileError{Code: ErrCodeTransientProvider})
}

// CodeOf extracts the error code from an error.
// Returns empty string if the error is not a ReconcileError.
func CodeOf(err error) string {
	var rerr *ReconcileError
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return ""
}

// StepOf extracts the failed step from an error.
func StepOf(err error) string {
	var rerr *ReconcileError
	if errors.As(err, &rerr) {
		return rerr.Step
	}
	return ""
}
