package mypermobil

import (
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Logger receives debug output as a message plus alternating key/value pairs.
// hclog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// DebugConfig selects which events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	RequestIDGen func() string
}

// DefaultDebugConfig logs requests and cache decisions once enabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogCache:     true,
		RequestIDGen: uuid.NewString,
	}
}

// NewSimpleLogger returns a debug level hclog logger writing to stderr.
func NewSimpleLogger() Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "mypermobil",
		Level:  hclog.Debug,
		Output: os.Stderr,
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
