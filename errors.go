package mypermobil

import (
	"errors"
	"fmt"
	"time"
)

// Error types reported in Error.Type.
const (
	// ErrorTypeClient marks caller misuse: bad input, invalid state transitions,
	// unknown items or endpoints. Never worth retrying.
	ErrorTypeClient = "Client"
	// ErrorTypeAPI marks an error status or body returned by the backend.
	ErrorTypeAPI = "API"
	// ErrorTypeConnection marks a transport that could not reach the backend.
	ErrorTypeConnection = "Connection"
	// ErrorTypeEula marks the backend asking for the EULA to be accepted.
	ErrorTypeEula = "Eula"
)

// Sentinel errors for common failure scenarios
var (
	// ErrClient matches any *Error of type Client via errors.Is.
	ErrClient = &Error{Type: ErrorTypeClient}
	// ErrAPI matches any *Error of type API via errors.Is.
	ErrAPI = &Error{Type: ErrorTypeAPI}
	// ErrConnection matches any *Error of type Connection via errors.Is.
	ErrConnection = &Error{Type: ErrorTypeConnection}
	// ErrEula matches any *Error of type Eula via errors.Is.
	ErrEula = &Error{Type: ErrorTypeEula}

	// ErrInvalidInput is wrapped by every validator failure.
	ErrInvalidInput = errors.New("mypermobil: invalid input")
	// ErrExpired is wrapped when an expiration date is not in the future.
	ErrExpired = errors.New("mypermobil: expired")

	// ErrConnectionFailed is wrapped when the backend could not be reached.
	ErrConnectionFailed = errors.New("mypermobil: connection failed")
	// ErrTimeout is wrapped when a request exceeded its deadline.
	ErrTimeout = errors.New("mypermobil: timed out")
	// ErrProtocol is wrapped for any other transport fault.
	ErrProtocol = errors.New("mypermobil: protocol error")
)

// Error is the single error type returned by the client.
type Error struct {
	Type       string
	Message    string
	Cause      error
	StatusCode int
	Method     string
	URL        string
	Timestamp  time.Time
}

// Error implements error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s: %d: %s", e.Type, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*Error); ok {
		return e.Type == targetErr.Type
	}
	return false
}

func clientError(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeClient, Message: fmt.Sprintf(format, args...), Timestamp: time.Now()}
}

func invalidInput(message string, cause error) *Error {
	if cause == nil {
		cause = ErrInvalidInput
	}
	return &Error{Type: ErrorTypeClient, Message: message, Cause: cause, Timestamp: time.Now()}
}

func apiError(status int, message string) *Error {
	return &Error{Type: ErrorTypeAPI, Message: message, StatusCode: status, Timestamp: time.Now()}
}

// IsClientError reports whether err is caller misuse.
func IsClientError(err error) bool { return errors.Is(err, ErrClient) }

// IsAPIError reports whether err originated from a backend error response.
func IsAPIError(err error) bool { return errors.Is(err, ErrAPI) }

// IsConnectionError reports whether err means the backend was unreachable.
func IsConnectionError(err error) bool { return errors.Is(err, ErrConnection) }

// IsEulaError reports whether the backend is waiting for EULA acceptance.
func IsEulaError(err error) bool { return errors.Is(err, ErrEula) }

// DebugInfo renders a multi-line string with diagnostic context.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
