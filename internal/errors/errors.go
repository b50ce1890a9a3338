package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Custom error types for the discount code share service

// ErrShareNotFound is returned when a share token or id doesn't resolve
var ErrShareNotFound = errors.New("share not found")

// ErrCodeNotFound is returned when a discount code id doesn't resolve
var ErrCodeNotFound = errors.New("discount code not found")

// ErrUserNotFound is returned when a user doesn't exist in the database
var ErrUserNotFound = errors.New("user not found")

// ErrNotShareable is returned when a discount code is used or expired at share creation time
var ErrNotShareable = errors.New("discount code is not shareable")

// ErrForbidden is returned when the caller does not own the target share
var ErrForbidden = errors.New("forbidden")

// ErrInvalidExpiry is returned when an explicit share expiry is in the past or too far ahead
var ErrInvalidExpiry = errors.New("invalid share expiry")

// ErrInvalidInput is returned when user-supplied fields fail validation
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidCredentials is returned when a login attempt fails
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrTokenCollision is returned by the repository when an inserted token already exists
var ErrTokenCollision = errors.New("share token already exists")

// ErrTokenGenerationFailed is returned when we can't generate a unique token after the retry budget
var ErrTokenGenerationFailed = errors.New("failed to generate unique share token")

// ShareRejectedError is returned when the sharing policy refuses a discount code
type ShareRejectedError struct {
	CodeID uint
	Reason string
}

func (e ShareRejectedError) Error() string {
	return fmt.Sprintf("discount code %d cannot be shared: %s", e.CodeID, e.Reason)
}

func (e ShareRejectedError) Unwrap() error {
	return ErrNotShareable
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShareNotFound) ||
		errors.Is(err, ErrCodeNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// HTTPStatus returns the http response status code associated with err.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ErrNotShareable), errors.Is(err, ErrInvalidExpiry),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
