// Package failure defines the error taxonomy shared by every layer of the
// command engine. Lower layers return *Error values; the dispatcher never lets
// anything else reach the operator.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation.
type Kind int

const (
	// KindUnhandled is anything that escaped a handler unclassified.
	KindUnhandled Kind = iota
	// KindNetwork is a transport-level failure (DNS, connect, timeout, read).
	KindNetwork
	// KindHTTPStatus is a non-success HTTP status from the legacy server.
	KindHTTPStatus
	// KindNotFound means the record is absent from a listing.
	KindNotFound
	// KindUnconfirmed means a write was accepted but could not be verified.
	KindUnconfirmed
	// KindMissingArgument means a required nickname or description is absent.
	KindMissingArgument
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindNotFound:
		return "not_found"
	case KindUnconfirmed:
		return "unconfirmed"
	case KindMissingArgument:
		return "missing_argument"
	default:
		return "unhandled"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the step that failed (e.g. "notes.list").
	Op string
	// Status is the HTTP status for KindHTTPStatus.
	Status int
	// Detail is an operator-safe explanation.
	Detail string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	switch {
	case e.Kind == KindHTTPStatus:
		msg = fmt.Sprintf("%s %d", msg, e.Status)
	case e.Detail != "":
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so errors.Is(err, failure.NotFound) works
// with the bare sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Detail == "" && t.Err == nil && t.Status == 0 && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	Network         = &Error{Kind: KindNetwork}
	HTTPStatus      = &Error{Kind: KindHTTPStatus}
	NotFound        = &Error{Kind: KindNotFound}
	Unconfirmed     = &Error{Kind: KindUnconfirmed}
	MissingArgument = &Error{Kind: KindMissingArgument}
	Unhandled       = &Error{Kind: KindUnhandled}
)

// NewNetwork wraps a transport error.
func NewNetwork(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// NewHTTPStatus records a non-success status.
func NewHTTPStatus(op string, status int) *Error {
	return &Error{Kind: KindHTTPStatus, Op: op, Status: status}
}

// NewNotFound records an absent record.
func NewNotFound(op, detail string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Detail: detail}
}

// NewUnconfirmed records a write that could not be verified.
func NewUnconfirmed(op, detail string) *Error {
	return &Error{Kind: KindUnconfirmed, Op: op, Detail: detail}
}

// NewMissingArgument records an absent required argument ("nick", "reason").
func NewMissingArgument(op, arg string) *Error {
	return &Error{Kind: KindMissingArgument, Op: op, Detail: arg}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnhandled when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnhandled
}

// As returns the first *Error in err's chain, classifying unknown errors as
// KindUnhandled.
func As(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return &Error{Kind: KindUnhandled, Err: err}
}
