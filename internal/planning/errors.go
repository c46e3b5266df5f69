package planning

import "fmt"

// ParseError represents generated text that could not be decoded as JSON
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ShapeError represents decoded JSON that lacks the required steps array
type ShapeError struct {
	Message string
	Cause   error
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid plan shape: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid plan shape: %s", e.Message)
}

func (e *ShapeError) Unwrap() error {
	return e.Cause
}
