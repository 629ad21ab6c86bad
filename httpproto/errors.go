// File: httpproto/errors.go
// Author: momentics <momentics@gmail.com>
//
// Structured error type for the HTTP layer, modeled on the library-wide
// api.Error shape: a stable code, a human message, and free-form context
// for logging. Router exception dispatch matches on Code, never on a type
// hierarchy.

package httpproto

import "fmt"

// ErrorCode enumerates the conditions the server can raise while parsing
// a request or routing it to a handler.
type ErrorCode int

const (
	ErrCodeBadRequest ErrorCode = iota
	ErrCodeForbidden
	ErrCodeNotFound
	ErrCodeMethodNotAllowed
	ErrCodePayloadTooLarge
	ErrCodeUnsupportedMediaType
	ErrCodeInternal
)

// Status returns the HTTP status code conventionally associated with code.
// This is the logical status, used for logging and for context that wants
// the "true" classification; it is not necessarily what goes on the wire —
// see WireStatus.
func (c ErrorCode) Status() int {
	switch c {
	case ErrCodeBadRequest:
		return 400
	case ErrCodeForbidden:
		return 403
	case ErrCodeNotFound:
		return 404
	case ErrCodeMethodNotAllowed:
		return 405
	case ErrCodePayloadTooLarge:
		return 413
	case ErrCodeUnsupportedMediaType:
		return 415
	default:
		return 500
	}
}

// WireStatus returns the HTTP status code that should actually be written
// to the response line for code. It matches Status() except for
// ErrCodePayloadTooLarge, which is surfaced as 400 rather than 413.
func (c ErrorCode) WireStatus() int {
	if c == ErrCodePayloadTooLarge {
		return 400
	}
	return c.Status()
}

// Error is the structured error type returned by parsing and routing
// code. It carries enough to both log and render a response without the
// caller needing to inspect a class hierarchy.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError builds an Error with an empty context map.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Context: make(map[string]any)}
}

// WithContext attaches a key/value pair and returns the same error for
// chaining at the call site.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func BadRequest(msg string) *Error          { return NewError(ErrCodeBadRequest, msg) }
func Forbidden(msg string) *Error           { return NewError(ErrCodeForbidden, msg) }
func NotFound(msg string) *Error            { return NewError(ErrCodeNotFound, msg) }
func MethodNotAllowed(msg string) *Error    { return NewError(ErrCodeMethodNotAllowed, msg) }
func PayloadTooLarge(msg string) *Error     { return NewError(ErrCodePayloadTooLarge, msg) }
func UnsupportedMediaType(msg string) *Error { return NewError(ErrCodeUnsupportedMediaType, msg) }
func Internal(msg string) *Error            { return NewError(ErrCodeInternal, msg) }
