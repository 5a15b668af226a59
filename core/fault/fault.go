// Package fault defines the gateway error taxonomy. Every error that reaches
// the dispatch engine is classified by Kind, and the Kind decides the HTTP
// status and how much of the message the client may see.
package fault

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind int

const (
	Internal Kind = iota
	// Configuration means the gateway or the backend is not set up for the
	// operation. Server side.
	Configuration
	// Connection means a socket level failure talking to the backend:
	// refused connection, protocol desync, timeout, malformed reply.
	Connection
	// Backend means the backend answered with one or more exceptions in an
	// otherwise well formed reply.
	Backend
	// InvalidParameter is a request parameter failing local validation.
	InvalidParameter
	// DispatchMiss means no handler claimed the request.
	DispatchMiss
	// Forbidden means the request is understood but access policy denies it.
	Forbidden
	// ClientAbort means the client went away while the response was written.
	ClientAbort
)

var kindNames = [...]string{
	Internal:         "internal",
	Configuration:    "configuration",
	Connection:       "connection",
	Backend:          "backend",
	InvalidParameter: "invalid-parameter",
	DispatchMiss:     "dispatch-miss",
	Forbidden:        "forbidden",
	ClientAbort:      "client-abort",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status is the default HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case Configuration:
		return http.StatusInternalServerError
	case Connection:
		return http.StatusBadGateway
	case Backend:
		return http.StatusInternalServerError
	case InvalidParameter:
		return http.StatusBadRequest
	case DispatchMiss:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case ClientAbort:
		// Nothing reaches the client anyway. Matches the nginx convention.
		return 499
	}
	return http.StatusInternalServerError
}

// Fault is a classified error. Msg is safe to show to the client; Err is
// logged only.
type Fault struct {
	Kind Kind
	Msg  string
	// Locator names the offending request parameter, if any.
	Locator string
	// Status overrides Kind.Status() when non zero.
	Status int
	Err    error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return f.Msg
	}
	return f.Msg + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

// Cause lets errors.Cause walk through the fault. It is nil for faults made
// by New, so use As to get at those.
func (f *Fault) Cause() error { return f.Err }

func (f *Fault) HTTPStatus() int {
	if f.Status != 0 {
		return f.Status
	}
	return f.Kind.Status()
}

func New(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The client visible message is msg, err is kept as the
// cause for logs. Wrap of nil is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: kind, Msg: msg, Err: errors.WithStack(err)}
}

func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// InvalidParam returns an InvalidParameter fault located at param.
func InvalidParam(param string, format string, args ...interface{}) *Fault {
	f := New(InvalidParameter, format, args...)
	f.Locator = param
	return f
}

func NotFound(format string, args ...interface{}) *Fault {
	return New(DispatchMiss, format, args...)
}

// As returns the outermost Fault in the err chain.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost Fault in the chain, or Internal.
func KindOf(err error) Kind {
	if f, ok := As(err); ok {
		return f.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status returns the HTTP status that err maps to.
func Status(err error) int {
	if f, ok := As(err); ok {
		return f.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Public returns the part of err that may be shown to the client.
func Public(err error) string {
	if f, ok := As(err); ok {
		return f.Msg
	}
	return "Internal server error."
}
