package mypermobil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeClient, Message: "not authenticated"}
	assert.Equal(t, "Client: not authenticated", err.Error())

	withStatus := &Error{Type: ErrorTypeAPI, Message: "incorrect code", StatusCode: 403}
	assert.Equal(t, "API: 403: incorrect code", withStatus.Error())

	withCause := &Error{Type: ErrorTypeConnection, Message: "connection timeout", Cause: errors.New("deadline")}
	assert.Equal(t, "Connection: connection timeout (deadline)", withCause.Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &Error{Type: ErrorTypeClient, Message: "m", Cause: cause}

	assert.Same(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestErrorIsByType(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
		want  bool
	}{
		{clientError("x"), IsClientError, true},
		{clientError("x"), IsAPIError, false},
		{apiError(500, "x"), IsAPIError, true},
		{&Error{Type: ErrorTypeConnection}, IsConnectionError, true},
		{&Error{Type: ErrorTypeEula}, IsEulaError, true},
		{&Error{Type: ErrorTypeEula}, IsAPIError, false},
		{fmt.Errorf("wrapped: %w", apiError(401, "x")), IsAPIError, true},
		{errors.New("plain"), IsClientError, false},
	}

	for i, tt := range tests {
		assert.Equal(t, tt.want, tt.check(tt.err), "case %d: %v", i, tt.err)
	}
}

func TestInvalidInputWrapsSentinel(t *testing.T) {
	err := invalidInput("missing email", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, IsClientError(err))

	expired := invalidInput("expired token", ErrExpired)
	assert.ErrorIs(t, expired, ErrExpired)
}

func TestErrorDebugInfo(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeAPI,
		Message:    "boom",
		StatusCode: 500,
		Method:     "GET",
		URL:        "https://example.com/api",
		Cause:      errors.New("cause"),
	}
	info := err.DebugInfo()

	for _, want := range []string{"Error Type: API", "Message: boom", "Method: GET", "URL: https://example.com/api", "Status Code: 500", "Cause: cause"} {
		assert.Contains(t, info, want)
	}

	var nilErr *Error
	assert.Equal(t, "Error: <nil>", nilErr.DebugInfo())
}
