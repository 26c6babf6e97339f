package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_Format(t *testing.T) {
	err := NewInvalidInputError("empty message")
	assert.Equal(t, "StandardError[INVALID_INPUT]: Input is empty or not processable", err.Error())
	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.False(t, err.Retryable)
	assert.False(t, err.Timestamp.IsZero())
}

func TestConstructors_RetryableFlags(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{"injection rejected", NewInjectionRejectedError([]string{"ignore_previous_instructions"}), ErrCodeInjectionRejected, false},
		{"classification failed", NewClassificationFailedError(errors.New("provider down")), ErrCodeClassificationFailed, true},
		{"classification timeout", NewClassificationTimeoutError(), ErrCodeClassificationTimeout, true},
		{"decomposition failed", NewDecompositionFailedError("no tool matches intent"), ErrCodeDecompositionFailed, false},
		{"plan cycle", NewPlanCycleDetectedError("task-2"), ErrCodePlanCycleDetected, false},
		{"tool call transient", NewToolCallFailedError("createBooking", errors.New("status 503"), true), ErrCodeToolCallFailed, true},
		{"tool call permanent", NewToolCallFailedError("createBooking", errors.New("status 400"), false), ErrCodeToolCallFailed, false},
		{"execution timeout", NewExecutionTimeoutError(0), ErrCodeExecutionTimeout, true},
		{"confidentiality violation", NewConfidentialityViolationError(2), ErrCodeConfidentialityViolation, false},
		{"session not found", NewSessionNotFoundError("sess-1"), ErrCodeSessionNotFound, false},
		{"audit write failed", NewAuditWriteFailedError(errors.New("index closed")), ErrCodeAuditWriteFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_TypedFlagWinsOverText(t *testing.T) {
	// The message mentions a timeout but the typed flag says permanent.
	err := NewToolCallFailedError("getBookingStatus", errors.New("timeout while validating"), false)
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable_WrappedStandardError(t *testing.T) {
	inner := NewClassificationTimeoutError()
	wrapped := fmt.Errorf("classify stage: %w", inner)
	assert.True(t, IsRetryable(wrapped))
}

func TestMatchesRetryableText(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"dial tcp: connection refused", true},
		{"connection reset by peer", true},
		{"request timed out", true},
		{"context deadline exceeded: timeout", true},
		{"unexpected EOF", true},
		{"429 too many requests", true},
		{"provider returned status 503", true},
		{"service temporarily unavailable", true},
		{"provider returned status 404", false},
		{"invalid argument: terminalId required", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesRetryableText(tt.msg))
		})
	}
}

func TestNormalize(t *testing.T) {
	std := NewSessionNotFoundError("sess-9")
	assert.Same(t, std, Normalize(std))
	assert.Same(t, std, Normalize(fmt.Errorf("lookup: %w", std)))

	plain := Normalize(errors.New("boom"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestIsRetryable_Nil(t *testing.T) {
	assert.False(t, IsRetryable(nil))
}
