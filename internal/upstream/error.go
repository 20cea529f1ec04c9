// Package upstream classifies failures returned by external APIs into a small taxonomy that the command surface maps to replies.
package upstream

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind is the classification of an upstream failure.
type Kind string

const (
	RateLimited      Kind = "rate_limited"
	PermissionDenied Kind = "permission_denied"
	NotFound         Kind = "not_found"
	AlreadyExists    Kind = "already_exists"
	Unauthorized     Kind = "unauthorized"
	Invalid          Kind = "invalid"
	Unavailable      Kind = "unavailable"
)

// Error is a classified failure from an external service.
type Error struct {
	Service string
	Kind    Kind
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (%d): %v", e.Service, e.Kind, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusForbidden:
		return PermissionDenied
	case http.StatusNotFound:
		return NotFound
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return AlreadyExists
	case http.StatusUnauthorized:
		return Unauthorized
	case http.StatusBadRequest:
		return Invalid
	default:
		return Unavailable
	}
}

// Classify wraps cause into an *Error for the given service and status.
// A nil cause yields nil; an existing *Error is returned untouched.
func Classify(service string, status int, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	return &Error{Service: service, Kind: KindForStatus(status), Status: status, Cause: cause}
}

// IsKind reports whether err is an upstream failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
