package common

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound        = errors.New("requested resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden access")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateKey    = errors.New("duplicate key") // unique index violation
	ErrLockNotAcquired = errors.New("failed to acquire lock")
)

// AppError pairs an error kind with the message shown to API clients.
type AppError struct {
	Kind    error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// NewError builds an AppError of the given kind.
func NewError(kind error, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func NotFound(message string) error     { return NewError(ErrNotFound, message) }
func BadRequest(message string) error   { return NewError(ErrBadRequest, message) }
func Unauthorized(message string) error { return NewError(ErrUnauthorized, message) }
func Forbidden(message string) error    { return NewError(ErrForbidden, message) }

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrDuplicateKey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// MessageFromError returns the client-facing text of err. Errors that carry no
// such text (driver failures, bugs) yield fallback.
func MessageFromError(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var msgErr interface{ UserMessage() string }
	if errors.As(err, &msgErr) {
		return msgErr.UserMessage()
	}
	return fallback
}
