package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewTimeoutError("guide request timed out", cause)

	assert.Equal(t, "guide request timed out: context deadline exceeded", err.Error())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "TIMEOUT", err.Code)
	assert.True(t, IsTimeoutError(err))
	assert.False(t, IsProviderError(err))
}

func TestTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  string
	}{
		{"validation", NewValidationError("bad", nil), IsValidationError, "VALIDATION_ERROR"},
		{"not found", NewNotFoundError("missing", nil), IsNotFoundError, "NOT_FOUND"},
		{"configuration", NewConfigurationError("no key", nil), IsConfigurationError, "CONFIGURATION_ERROR"},
		{"provider", NewProviderError("upstream", nil), IsProviderError, "PROVIDER_ERROR"},
		{"input rejected", NewInputRejectedError("empty", nil), IsInputRejectedError, "INPUT_REJECTED"},
		{"conflict", NewConflictError("busy", nil), IsConflictError, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			var appErr *AppError
			assert.True(t, errors.As(tt.err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestWrapErrorKeepsType(t *testing.T) {
	inner := NewProviderError("gemini returned 500", nil)
	wrapped := WrapError(inner, "guide reply", ErrorTypeValidation)

	assert.True(t, IsProviderError(wrapped))
	assert.Equal(t, "guide reply: gemini returned 500", wrapped.Error())

	plain := WrapError(errors.New("dial tcp"), "guide reply", ErrorTypeProvider)
	assert.True(t, IsProviderError(plain))

	assert.Nil(t, WrapError(nil, "x", ErrorTypeProvider))
}
