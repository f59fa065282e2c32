package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	InputError           Kind = "input_error"
	NumericDegenerate    Kind = "numeric_degenerate"
	ResourceUnavailable  Kind = "resource_unavailable"
	ExternalServiceError Kind = "external_service_error"
)

// Error carries a Kind so callers can decide between rejecting, recovering and failing fast.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Input(op, message string) *Error {
	return New(InputError, op, message, nil)
}

func Degenerate(op, message string) *Error {
	return New(NumericDegenerate, op, message, nil)
}

func Unavailable(op, message string, err error) *Error {
	return New(ResourceUnavailable, op, message, err)
}

func External(op, message string, err error) *Error {
	return New(ExternalServiceError, op, message, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RetryHinter is implemented by errors that know whether retrying can help.
type RetryHinter interface {
	IsRetryable() bool
}

// Retryable reports whether a caller may reasonably try the same request again. A RetryHinter in
// err's chain takes precedence over the Kind.
func Retryable(err error) bool {
	var hint RetryHinter
	if errors.As(err, &hint) {
		return hint.IsRetryable()
	}
	switch KindOf(err) {
	case ResourceUnavailable, ExternalServiceError:
		return true
	default:
		return false
	}
}
