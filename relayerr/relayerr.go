// Package relayerr defines the error kinds surfaced to callers across the
// relay module, per the error handling design: every failure a client can
// produce carries context but never a stack, and callers distinguish kinds
// with errors.As rather than string matching.
package relayerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the failure categories a relay client can surface.
type Kind int

const (
	// KindUnknown is the zero value; never returned intentionally.
	KindUnknown Kind = iota
	// KindSerialize means a request could not be rendered, or a response
	// could not be parsed.
	KindSerialize
	// KindTransport means a socket error, closed connection, or a
	// reconnect in progress.
	KindTransport
	// KindTimeout means no response arrived within the per-call budget.
	KindTimeout
	// KindServerError means a well-formed JSON-RPC error object came back.
	KindServerError
	// KindSubscribeTimeout means the rendezvous timer expired without the
	// leader's SUBSCRIBE completing.
	KindSubscribeTimeout
	// KindConfirmationTimeout means a signature subscription expired
	// without a notification.
	KindConfirmationTimeout
	// KindInvalidData means wire data violated an expected invariant, e.g.
	// a token-mint account with the wrong byte length.
	KindInvalidData
	// KindAuth means the exchange rejected login.
	KindAuth
	// KindRejected means the exchange refused an order outright.
	KindRejected
	// KindVenueError means the venue accepted the request but reported a
	// failure processing it.
	KindVenueError
	// KindShutdown means the client is being torn down.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindSerialize:
		return "serialize"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	case KindSubscribeTimeout:
		return "subscribe_timeout"
	case KindConfirmationTimeout:
		return "confirmation_timeout"
	case KindInvalidData:
		return "invalid_data"
	case KindAuth:
		return "auth"
	case KindRejected:
		return "rejected"
	case KindVenueError:
		return "venue_error"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the Kind a caller should branch on.
type Error struct {
	Kind Kind
	// Code is set only for KindServerError, carrying the JSON-RPC error code.
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindServerError {
		return fmt.Sprintf("%s: code=%d: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds an Error of the given kind from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// ServerError builds a KindServerError carrying a JSON-RPC error code.
func ServerError(code int, message string) *Error {
	return &Error{Kind: KindServerError, Code: code, Err: errors.New(message)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ErrAborted is delivered to a timer's waiter when the timer was cancelled
// by a sibling rather than having naturally expired — the strand package's
// analogue of operation_aborted.
var ErrAborted = errors.New("operation aborted")
