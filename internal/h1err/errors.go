// Package h1err defines the single error kind the protocol engine raises.
// It lives in its own internal package so that both the wire codec and the
// root package can construct and inspect it without an import cycle.
package h1err

import "github.com/pkg/errors"

// ProtocolError is raised whenever a peer, or the caller, does something
// that the HTTP/1.1 protocol engine cannot reconcile with RFC 7230 or with
// its own state machine (spec.md §7). StatusHint, when non-zero, suggests
// an HTTP status code the embedder may want to send back (e.g. 431 for an
// oversized header block).
type ProtocolError struct {
	Msg        string
	StatusHint int
	cause      error
}

// New constructs a ProtocolError with no status hint.
func New(msg string) *ProtocolError {
	return &ProtocolError{Msg: msg, cause: errors.New(msg)}
}

// Newf constructs a ProtocolError with a formatted message.
func Newf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: errors.Errorf(format, args...).Error(), cause: errors.Errorf(format, args...)}
}

// WithHint constructs a ProtocolError carrying an HTTP status hint.
func WithHint(hint int, msg string) *ProtocolError {
	return &ProtocolError{Msg: msg, StatusHint: hint, cause: errors.New(msg)}
}

// Wrap attaches msg as context to an underlying cause, preserving a stack
// trace via github.com/pkg/errors.
func Wrap(cause error, msg string) *ProtocolError {
	return &ProtocolError{Msg: msg, cause: errors.Wrap(cause, msg)}
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

// Unwrap exposes the wrapped cause (with its pkg/errors stack trace) for
// errors.Is/errors.As and the %+v format verb.
func (e *ProtocolError) Unwrap() error {
	return e.cause
}
