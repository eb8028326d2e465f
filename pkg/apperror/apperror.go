package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	ValidationFailed      Kind = "validation_failed"
	NotFound              Kind = "not_found"
	ConstraintViolation   Kind = "constraint_violation"
	TokenInvalidOrExpired Kind = "token_invalid_or_expired"
	Unauthorized          Kind = "unauthorized"
	Forbidden             Kind = "forbidden"
	Internal              Kind = "internal"
)

// Error is an operational error with an optional field-level breakdown.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperror.New(NotFound, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: ValidationFailed, Message: "invalid input data", Fields: fields}
}

func FieldError(field, msg string) *Error {
	return Validation(map[string]string{field: msg})
}

// KindOf reports the Kind of err, or Internal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Operational reports whether the error is expected and safe to show to the caller.
func Operational(err error) bool {
	return KindOf(err) != Internal
}

// HTTPStatus maps a Kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case ValidationFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case ConstraintViolation:
		return http.StatusConflict
	case TokenInvalidOrExpired:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
