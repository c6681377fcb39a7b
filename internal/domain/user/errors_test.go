package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsError(t *testing.T) {
	notFound := NewNotFoundError("1")

	tests := []struct {
		name     string
		err      error
		expected Error
	}{
		{name: "nil", err: nil, expected: nil},
		{name: "domain error passes through", err: notFound, expected: notFound},
		{name: "wrapped domain error", err: fmt.Errorf("remove: %w", notFound), expected: notFound},
		{
			name:     "validation errors",
			err:      ValidationErrors{TooShortFirstName},
			expected: NewValidationFailedError(ValidationErrors{TooShortFirstName}),
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: NewNetworkError(context.DeadlineExceeded),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AsError(tt.err))
		})
	}

	boom := errors.New("boom")
	got := AsError(boom)
	assert.IsType(t, &UnexpectedError{}, got)
	assert.ErrorIs(t, got, boom)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("1"), "1"))
	assert.False(t, IsNotFound(NewNotFoundError("1"), "2"))
	assert.False(t, IsNotFound(NewNetworkError(nil), "1"))
}
