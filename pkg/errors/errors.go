// Package errors provides an enriched application error used at the edges
// of this module — the admin HTTP surface and the cmd/ entrypoints — where
// an error needs a stable code, an HTTP status and a place to hang context
// for logging. The dispatch core itself uses plain sentinel errors (see
// internal/wlm/domain); this package is for the surrounding service shell.
package errors

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Type classifies an AppError for metrics and routing purposes.
type Type string

const (
	ValidationError  Type = "validation"
	NotFoundError    Type = "not_found"
	CapacityError    Type = "capacity"
	InternalError    Type = "internal"
	UnavailableError Type = "unavailable"
)

// AppError is an enriched error carrying the context a handler or operator
// needs beyond a bare message.
type AppError struct {
	Err        error          `json:"-"`
	Message    string         `json:"message"`
	Code       string         `json:"code,omitempty"`
	Type       Type           `json:"type"`
	StatusCode int            `json:"status_code,omitempty"`
	Stack      string         `json:"stack,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is compares AppErrors by type and code, so callers can use errors.Is
// against a sentinel AppError without matching the wrapped cause too.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext attaches a key/value pair for structured logging.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCode sets a stable machine-readable error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithStatusCode sets the HTTP status an API handler should respond with.
func (e *AppError) WithStatusCode(statusCode int) *AppError {
	e.StatusCode = statusCode
	return e
}

// ToJSON renders the error for an API response body.
func (e *AppError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// New creates a bare AppError of the given type.
func New(errType Type, message string) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     callStack(),
	}
}

// Wrap attaches message and errType to an existing error, preserving the
// original as the unwrap target.
func Wrap(err error, errType Type, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Err:       appErr,
			Type:      errType,
			Message:   fmt.Sprintf("%s: %s", message, appErr.Message),
			Timestamp: time.Now(),
		}
	}
	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     callStack(),
	}
}

func callStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "pkg/errors/errors.go") {
			sb.WriteString(fmt.Sprintf("%s:%d %s\n", filepath.Base(frame.File), frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// IsTimeout reports whether err indicates a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if t, ok := err.(interface{ Timeout() bool }); ok {
		return t.Timeout()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}
