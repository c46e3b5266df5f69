package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExhaustedRetries is returned once the retry budget of a completion call is spent.
var ErrExhaustedRetries = errors.New("exhausted retries")

// ModelError reports that the requested model is unavailable or unknown.
// It is retryable and may trigger the switch to the fallback model.
type ModelError struct {
	Model string
	Cause error
}

func (e *ModelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model %s unavailable: %v", e.Model, e.Cause)
	}
	return fmt.Sprintf("model %s unavailable", e.Model)
}

func (e *ModelError) Unwrap() error {
	return e.Cause
}

// ServerError reports a transport-level failure (connection refused, timeout).
// It is retryable.
type ServerError struct {
	Message string
	Cause   error
}

func (e *ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("server error: %s", e.Message)
}

func (e *ServerError) Unwrap() error {
	return e.Cause
}

// ErrorClass is the retry classification of a generator failure.
type ErrorClass int

const (
	// ClassFatal errors are returned to the caller without retrying.
	ClassFatal ErrorClass = iota
	// ClassModel errors are retried and can move the call to the fallback model.
	ClassModel
	// ClassServer errors are retried on the same model.
	ClassServer
)

func (c ErrorClass) String() string {
	switch c {
	case ClassModel:
		return "model"
	case ClassServer:
		return "server"
	default:
		return "fatal"
	}
}

// Classify decides whether a generator error is retryable.
// Typed errors win; otherwise the message is inspected the way providers
// phrase these failures ("model ... not found", "connection refused", "i/o timeout").
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}

	var modelErr *ModelError
	if errors.As(err, &modelErr) {
		return ClassModel
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return ClassServer
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "model") || strings.Contains(msg, "not found"):
		return ClassModel
	case strings.Contains(msg, "connection") || strings.Contains(msg, "timeout"):
		return ClassServer
	default:
		return ClassFatal
	}
}
