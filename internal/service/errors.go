package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service either unwraps to one of these
// or is an unexpected store failure.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error carries a caller-facing message and unwraps to its kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func NewError(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func badRequestf(format string, args ...any) error {
	return NewError(ErrBadRequest, format, args...)
}

func conflictf(format string, args ...any) error {
	return NewError(ErrConflict, format, args...)
}

func notFoundf(format string, args ...any) error {
	return NewError(ErrNotFound, format, args...)
}
