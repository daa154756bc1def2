package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetriableDefaultsByKind(t *testing.T) {
	assert.False(t, NewError(ErrInvalidInput, "bad input").Retriable())
	assert.True(t, NewError(ErrTimeout, "timed out").Retriable())
}

func TestWithRetriableOverridesDefault(t *testing.T) {
	err := NewError(ErrInvalidInput, "bad input").WithRetriable(true)
	assert.True(t, err.Retriable())
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(ErrExecution, cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestWithDetailsAttachesStructuredDetail(t *testing.T) {
	err := NewError(ErrSandboxSetup, "setup failed").WithDetails(map[string]string{"stage": "cordon"})
	assert.Equal(t, map[string]string{"stage": "cordon"}, err.Details)
}
