package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("authorization error")
	ErrNotFound     = errors.New("not found")
	ErrConnectivity = errors.New("connectivity error")
	ErrConsistency  = errors.New("consistency error")
	ErrUnauthorized = errors.New("unauthenticated")
)

// Error carries a kind, a short user-facing message and an optional cause.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func validationErr(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }
func forbiddenErr(msg string) error  { return &Error{Kind: ErrForbidden, Msg: msg} }
func notFoundErr(msg string) error   { return &Error{Kind: ErrNotFound, Msg: msg} }

func connectivityErr(cause error) error {
	return &Error{Kind: ErrConnectivity, Msg: "Không thể kết nối cơ sở dữ liệu", Cause: cause}
}

func consistencyErr(msg string, cause error) error {
	return &Error{Kind: ErrConsistency, Msg: msg, Cause: cause}
}

// Message returns the user-facing message of a service error, or "" when err
// is not one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

// lookupErr turns a repository miss into NotFound and wraps anything else.
func lookupErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr(msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
