package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"ErrUserNotFound", ErrUserNotFound, true},
		{"wrapped ErrTaskNotFound", fmt.Errorf("loading task: %w", ErrTaskNotFound), true},
		{"ErrStrategyNotFound", ErrStrategyNotFound, true},
		{"store error around not found", NewStoreError("task", "get", "lookup", ErrTaskNotFound), true},
		{"duplicate is not not-found", ErrNameExists, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDuplicateError(ErrNameExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("register: %w", ErrNameExists)))
	assert.False(t, IsDuplicateError(ErrUserNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewStoreError("task", "create", "insert items", cause)

	assert.Equal(t, "create task failed: insert items: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewStoreError("user", "get", "no rows", nil)
	assert.Equal(t, "get user failed: no rows", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
