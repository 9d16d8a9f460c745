// Package apierr classifies failures so that every HTTP surface renders them the same way.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthorized
	KindNotFound
	KindNotReady
	KindRateLimited
	KindNotImplemented
	KindMisconfigured
	KindUpstream
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindNotReady:
		return "not_ready"
	case KindRateLimited:
		return "rate_limited"
	case KindNotImplemented:
		return "not_implemented"
	case KindMisconfigured:
		return "misconfigured"
	case KindUpstream:
		return "upstream"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified failure. UpstreamStatus and UpstreamBody are only set for KindUpstream.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int
	UpstreamBody   string
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apierr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalid        = &Error{Kind: KindInvalid}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrNotReady       = &Error{Kind: KindNotReady}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrMisconfigured  = &Error{Kind: KindMisconfigured}
	ErrUpstream       = &Error{Kind: KindUpstream}
	ErrUnavailable    = &Error{Kind: KindUnavailable}
	ErrNotImplemented = &Error{Kind: KindNotImplemented}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Misconfigured(format string, args ...any) *Error {
	return &Error{Kind: KindMisconfigured, Message: "Server misconfiguration: " + fmt.Sprintf(format, args...)}
}

// Upstream reports a non-success answer from a collaborator, keeping its status and body.
func Upstream(status int, body string) *Error {
	return &Error{
		Kind:           KindUpstream,
		Message:        fmt.Sprintf("Worker error %d: %s", status, body),
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

// KindOf returns the kind of err, KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindNotReady:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotImplemented:
		return http.StatusNotImplemented
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show to a caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
