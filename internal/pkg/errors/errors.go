// Package errors defines the coded error taxonomy used across the render
// pipeline. Every failure that can surface on the HTTP API or in a job's
// error field carries a Code, and wrapping preserves the innermost code so
// classification survives annotation.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code classifies an error for HTTP mapping and log filtering.
type Code string

const (
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeDecode          Code = "DECODE_ERROR"
	CodeIO              Code = "IO_ERROR"
	CodeEncodeFailed    Code = "ENCODE_FAILED"
	CodeArtifactInvalid Code = "ARTIFACT_INVALID"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTimeout         Code = "TIMEOUT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeResourceExhaust Code = "RESOURCE_EXHAUSTED"
)

// httpStatus maps codes to response statuses. Codes absent here are server
// faults and map to 500.
var httpStatus = map[Code]int{
	CodeValidation:      400,
	CodeDecode:          400,
	CodeNotFound:        404,
	CodeResourceExhaust: 429,
	CodeUnavailable:     503,
	CodeTimeout:         504,
}

// Error is the pipeline's error value: a code, a message safe to show
// callers, the failing operation, optional structured fields, and the stack
// captured at creation.
type Error struct {
	Code    Code
	Message string
	Op      string
	Err     error
	Fields  map[string]any
	Stack   []Frame
}

// Frame is one captured stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op+":")
	}
	if e.Code != "" {
		parts = append(parts, "["+string(e.Code)+"]")
	}
	parts = append(parts, e.Message)
	if e.Err != nil {
		parts = append(parts, "("+e.Err.Error()+")")
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code, so errors.Is can test classification without
// comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithField attaches a structured context field and returns the error for
// chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = map[string]any{key: value}
		return e
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus returns the response status this error maps to.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return 500
}

// StackTrace renders the captured frames, one per line.
func (e *Error) StackTrace() string {
	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Stack: callers()}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap annotates err with an operation and message. If err already carries
// a code it is preserved, along with its fields, so the outermost wrapper
// still classifies correctly.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := &Error{
		Code:    CodeInternal,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   callers(),
	}
	var inner *Error
	if errors.As(err, &inner) {
		wrapped.Code = inner.Code
		wrapped.Fields = inner.Fields
	}
	return wrapped
}

// WrapWithCode annotates err and forces a specific code, overriding
// whatever the inner error carried.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Op: op, Err: err, Stack: callers()}
}

// Internalf creates an internal error with a formatted message.
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// NotFound creates a not-found error for a resource id.
func NotFound(resource string, id string) *Error {
	return Newf(CodeNotFound, "%s not found: %s", resource, id).
		WithField("resource", resource).
		WithField("id", id)
}

// ValidationField creates a validation error tied to one request field.
func ValidationField(field string, message string) *Error {
	return New(CodeValidation, message).WithField("field", field)
}

// Decode creates a decode error for an undecodable payload field.
func Decode(field string, message string) *Error {
	return New(CodeDecode, message).WithField("field", field)
}

// IO wraps a filesystem failure.
func IO(err error, op string, message string) *Error {
	return WrapWithCode(err, CodeIO, op, message)
}

// EncodeFailed creates an encoder failure error.
func EncodeFailed(message string) *Error {
	return New(CodeEncodeFailed, message)
}

// ArtifactInvalid creates an error for an output that exists but cannot be
// trusted.
func ArtifactInvalid(message string) *Error {
	return New(CodeArtifactInvalid, message)
}

// Timeout creates a timeout error for an operation.
func Timeout(operation string) *Error {
	return Newf(CodeTimeout, "operation timed out: %s", operation).
		WithField("operation", operation)
}

// GetCode extracts the code from any error in the chain; plain errors
// classify as internal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus extracts the HTTP status for any error.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return 500
}

// GetFields extracts structured fields from any error in the chain.
func GetFields(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsCode reports whether err classifies as code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

func IsNotFound(err error) bool   { return IsCode(err, CodeNotFound) }
func IsValidation(err error) bool { return IsCode(err, CodeValidation) }
func IsTimeout(err error) bool    { return IsCode(err, CodeTimeout) }

// As is a convenience alias for errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// Is is a convenience alias for errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// callers captures up to ten non-runtime frames above the constructor.
func callers() []Frame {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	iter := runtime.CallersFrames(pcs[:n])

	frames := make([]Frame, 0, 10)
	for {
		f, more := iter.Next()
		if !strings.Contains(f.File, "runtime/") {
			frames = append(frames, Frame{File: f.File, Line: f.Line, Function: f.Function})
		}
		if !more || len(frames) == cap(frames) {
			return frames
		}
	}
}
