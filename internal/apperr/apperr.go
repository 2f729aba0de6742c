// Package apperr defines the domain failure kinds shared by the stores,
// services, the websocket gateway and the HTTP handlers.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	Unauthenticated
	Validation
	NotFound
	Conflict
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case Unauthenticated:
		return ErrUnauthenticated
	case Validation:
		return ErrValidation
	case NotFound:
		return ErrNotFound
	case Conflict:
		return ErrConflict
	}
	return nil
}

// Error is a failure of a known kind carrying a client-safe message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Unauthorized(msg string) *Error { return New(Unauthenticated, msg) }
func Invalid(msg string) *Error      { return New(Validation, msg) }
func Missing(msg string) *Error      { return New(NotFound, msg) }
func Conflicting(msg string) *Error  { return New(Conflict, msg) }

// KindOf reports the kind of err, or Unknown for errors outside the domain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return Unauthenticated
	case errors.Is(err, ErrValidation):
		return Validation
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrConflict):
		return Conflict
	}
	return Unknown
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if k := KindOf(err); k != Unknown {
		return k.sentinel().Error()
	}
	return "internal server error"
}
