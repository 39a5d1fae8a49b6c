package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefactorError_Error(t *testing.T) {
	testCases := []struct {
		name     string
		err      *RefactorError
		expected string
	}{
		{
			name: "With file location",
			err: &RefactorError{
				Type:    ParseError,
				Message: "failed to parse",
				File:    "/test/file.go",
				Line:    15,
				Column:  10,
			},
			expected: "/test/file.go:15:10: failed to parse",
		},
		{
			name: "File without line",
			err: &RefactorError{
				Type:    FileSystemError,
				Message: "permission denied",
				File:    "/test/file.go",
			},
			expected: "/test/file.go: permission denied",
		},
		{
			name:     "Without file location",
			err:      &RefactorError{Type: InvalidOperation, Message: "too many values to return"},
			expected: "too many values to return",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestRefactorError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &RefactorError{Type: WalkError, Message: "walk failed", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestRefactorError_IsByType(t *testing.T) {
	err := fmt.Errorf("run: %w", &RefactorError{Type: WalkError, Message: "boom", File: "/x"})

	assert.ErrorIs(t, err, &RefactorError{Type: WalkError})
	assert.NotErrorIs(t, err, &RefactorError{Type: ParseError})
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "parse", ParseError.String())
	assert.Equal(t, "unsupported-declaration", UnsupportedDeclaration.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}
