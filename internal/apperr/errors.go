// Package apperr holds the error taxonomy shared by stores, services and
// handlers. Callers wrap these with fmt.Errorf("...: %w", err) and test with
// errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound means a referenced user, topic or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint (user name) was violated.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials means the name/password pair did not match exactly one account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden means the acting identity does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized means the request carried no usable session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation means a request payload failed validation.
	ErrValidation = errors.New("validation failed")
)

// HTTPStatus maps an error from the taxonomy to the status code surfaced to
// clients. Anything unknown is an internal error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
