// Package errors provides standardized error handling for the request pipeline.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Pipeline stage errors, in stage order.
const (
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeInjectionRejected ErrorCode = "INJECTION_REJECTED"

	ErrCodeClassificationFailed  ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeClassificationTimeout ErrorCode = "CLASSIFICATION_TIMEOUT"

	ErrCodeDecompositionFailed ErrorCode = "DECOMPOSITION_FAILED"
	ErrCodePlanCycleDetected   ErrorCode = "PLAN_CYCLE_DETECTED"

	ErrCodeToolCallFailed   ErrorCode = "TOOL_CALL_FAILED"
	ErrCodeExecutionTimeout ErrorCode = "EXECUTION_TIMEOUT"

	ErrCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"

	ErrCodeConfidentialityViolation ErrorCode = "CONFIDENTIALITY_VIOLATION"

	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeAuditWriteFailed ErrorCode = "AUDIT_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidInputError creates a non-retryable sanitization error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Input is empty or not processable",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInjectionRejectedError creates a non-retryable strict-mode sanitization error.
func NewInjectionRejectedError(patterns []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInjectionRejected,
		Message:   "Input rejected because it contains a prompt-injection attempt",
		Details:   fmt.Sprintf("patterns: %s", strings.Join(patterns, ", ")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassificationFailedError creates a non-retryable classification error.
// Classification is fail-closed: a provider failure halts the pipeline.
func NewClassificationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Intent classification provider error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassificationTimeoutError creates a retryable classification timeout error.
func NewClassificationTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationTimeout,
		Message:   "Intent classification timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDecompositionFailedError creates a non-retryable decomposition error.
func NewDecompositionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecompositionFailed,
		Message:   "Could not build an execution plan for the request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanCycleDetectedError creates a non-retryable cycle error.
func NewPlanCycleDetectedError(taskID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanCycleDetected,
		Message:   "Task dependency graph contains a cycle",
		Details:   fmt.Sprintf("taskId: %s", taskID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolCallFailedError creates a tool execution error; retryability follows
// the underlying provider error.
func NewToolCallFailedError(toolName string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolCallFailed,
		Message:   "Capability provider call failed",
		Details:   fmt.Sprintf("tool: %s, error: %s", toolName, err.Error()),
		Retryable: retryable,
		Metadata:  map[string]interface{}{"tool": toolName},
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionTimeoutError creates the step-level timeout error for the executor.
func NewExecutionTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionTimeout,
		Message:   "Plan execution exceeded the overall deadline",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisFailedError creates an internal synthesis error. It is always
// recovered by the deterministic fallback and never surfaced to the caller.
func NewSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Structured generation provider error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfidentialityViolationError creates the strict-mode validator error.
func NewConfidentialityViolationError(count int) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfidentialityViolation,
		Message:   "Response contains confidential data and strict mode is enabled",
		Details:   fmt.Sprintf("violations: %d", count),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable session lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found or expired",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError creates a retryable audit sink error. It is logged
// and never surfaced to the caller.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Audit record could not be written",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// transient signatures seen in provider error text when the error is not a
// typed StandardError: network hiccups, deadlines, 5xx statuses.
var retryableTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btimeout\b`),
	regexp.MustCompile(`(?i)\btimed out\b`),
	regexp.MustCompile(`(?i)connection (refused|reset)`),
	regexp.MustCompile(`(?i)temporarily unavailable`),
	regexp.MustCompile(`(?i)\bunavailable\b`),
	regexp.MustCompile(`(?i)\bEOF\b`),
	regexp.MustCompile(`(?i)too many requests`),
	regexp.MustCompile(`status 5\d\d`),
}

// IsRetryable reports whether an error is worth retrying. Typed errors carry
// their own flag; plain errors are matched against transient text signatures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}

	return MatchesRetryableText(err.Error())
}

// MatchesRetryableText applies the text-signature classifier on its own so it
// can be tested independently of the typed path.
func MatchesRetryableText(msg string) bool {
	for _, p := range retryableTextPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}
