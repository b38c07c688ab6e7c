package models

import (
	"errors"
	"fmt"
)

// WorkflowErrorCode classifies why a workflow action was rejected.
type WorkflowErrorCode string

const (
	// ErrCodeValidation: malformed input, rejected before touching state.
	ErrCodeValidation WorkflowErrorCode = "validation"
	// ErrCodeIllegalTransition: right shape, wrong current state or actor role.
	ErrCodeIllegalTransition WorkflowErrorCode = "illegal_transition"
	// ErrCodePreconditionFailed: incomplete handover evidence, empty item
	// list, amount mismatch and the like.
	ErrCodePreconditionFailed WorkflowErrorCode = "precondition_failed"
	// ErrCodeExternalDependency: payment processor or storage
	// unreachable/timed out. The only retryable class.
	ErrCodeExternalDependency WorkflowErrorCode = "external_dependency"
	// ErrCodeTerminalState: action attempted on a CANCELLED/COMPLETED booking.
	ErrCodeTerminalState WorkflowErrorCode = "terminal_state"
)

// WorkflowError is the typed rejection returned by every workflow operation.
// The message always names the precondition that failed; support triage and
// the tests depend on that.
type WorkflowError struct {
	Code    WorkflowErrorCode
	Message string
	Err     error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the same request with
// backoff. Only external dependency failures qualify.
func (e *WorkflowError) Retryable() bool {
	return e.Code == ErrCodeExternalDependency
}

func NewValidationError(format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewIllegalTransitionError(format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Code: ErrCodeIllegalTransition, Message: fmt.Sprintf(format, args...)}
}

func NewPreconditionError(format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Code: ErrCodePreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func NewExternalError(msg string, err error) *WorkflowError {
	return &WorkflowError{Code: ErrCodeExternalDependency, Message: msg, Err: err}
}

func NewTerminalStateError(status BookingStatus) *WorkflowError {
	return &WorkflowError{
		Code:    ErrCodeTerminalState,
		Message: fmt.Sprintf("booking is in terminal state %s and accepts no further actions", status),
	}
}

// WorkflowCode extracts the error code, or empty string for untyped errors.
func WorkflowCode(err error) WorkflowErrorCode {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

func IsValidation(err error) bool        { return WorkflowCode(err) == ErrCodeValidation }
func IsIllegalTransition(err error) bool { return WorkflowCode(err) == ErrCodeIllegalTransition }
func IsPrecondition(err error) bool      { return WorkflowCode(err) == ErrCodePreconditionFailed }
func IsExternal(err error) bool          { return WorkflowCode(err) == ErrCodeExternalDependency }
func IsTerminalState(err error) bool     { return WorkflowCode(err) == ErrCodeTerminalState }
