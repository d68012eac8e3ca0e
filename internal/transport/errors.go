package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Markers for errors.Is checks against an *Error.
var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrServer     = errors.New("server error")
	ErrUnknown    = errors.New("unknown error")
)

func (k Kind) marker() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindServer:
		return ErrServer
	default:
		return ErrUnknown
	}
}

// Error is the classified failure returned by every Client request.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	// Detail holds the decoded response body for KindValidation.
	Detail any
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Kind.marker())
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind marker so callers can write errors.Is(err, ErrForbidden).
func (e *Error) Is(target error) bool {
	return target == e.Kind.marker()
}

// KindOf returns the Kind of a transport failure anywhere in err's chain.
// Errors that did not come from the transport report KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// Classify maps an HTTP status code to its Kind. 200 is not a failure and has
// no Kind; callers must not pass it.
func Classify(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknown
	}
}
