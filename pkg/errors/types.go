package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType int

const (
	// ErrorTypeTransport indicates a transport layer error
	ErrorTypeTransport ErrorType = iota
	// ErrorTypeProtocol indicates a frame that does not follow the wire protocol
	ErrorTypeProtocol
	// ErrorTypeValidation indicates a structurally valid frame with invalid fields
	ErrorTypeValidation
	// ErrorTypeNotFound indicates a not found error
	ErrorTypeNotFound
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal
)

// Error codes
const (
	CodeMalformedPayload = "MALFORMED_PAYLOAD"
	CodeUnsupportedEvent = "UNSUPPORTED_EVENT"
	CodeSendBufferFull   = "SEND_BUFFER_FULL"
	CodeEncode           = "ENCODE_ERROR"
	CodeNoHandler        = "NO_HANDLER"
	CodeDial             = "DIAL_ERROR"
)

// Sentinels for errors.Is; matching uses Type and Code only.
var (
	ErrMalformedPayload = New(ErrorTypeProtocol, CodeMalformedPayload, "malformed payload")
	ErrUnsupportedEvent = New(ErrorTypeInternal, CodeUnsupportedEvent, "event cannot be encoded")
	ErrNoHandler        = New(ErrorTypeNotFound, CodeNoHandler, "no handler for event kind")
)

// Error represents a structured error with metadata
type Error struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Details != "" {
			return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Message, e.Details, e.Cause)
		}
		return fmt.Sprintf("[%s] %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// New creates a new error
func New(errorType ErrorType, code, message string) *Error {
	return &Error{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, errorType ErrorType, code, message string) *Error {
	return &Error{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
	}
}

// Malformed builds a MALFORMED_PAYLOAD error with the given details
func Malformed(details string, cause error) *Error {
	return Wrap(cause, ErrorTypeProtocol, CodeMalformedPayload, "malformed payload").WithDetails(details)
}

// WithDetails adds details to an error
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}
