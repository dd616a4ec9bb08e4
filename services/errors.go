package services

import "errors"

// Kind classifies a service failure. Kind implements error so callers can
// test with errors.Is(err, services.NotFound).
type Kind string

const (
	Unauthorized       Kind = "unauthorized"
	InvalidCredentials Kind = "invalid credentials"
	Conflict           Kind = "conflict"
	NotFound           Kind = "not found"
	Forbidden          Kind = "forbidden"
	ValidationError    Kind = "validation error"
	InvalidTarget      Kind = "invalid target"
	AlreadyFriends     Kind = "already friends"
	AlreadyRequested   Kind = "already requested"
	MissingFields      Kind = "missing fields"
	ServerError        Kind = "server error"
)

func (k Kind) Error() string { return string(k) }

// Error is a failure with a message that is safe to show to the caller
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, never shown to the caller
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// serverError wraps an unexpected store failure
func serverError(message string, err error) error {
	return &Error{Kind: ServerError, Message: message, Err: err}
}

// KindOf returns the kind of err, ServerError when err carries none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ServerError
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
