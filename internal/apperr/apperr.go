package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error categories of the messaging core. Callers wrap them with %w and
// dispatch with errors.Is.
var (
	ErrInvalidOperation     = errors.New("invalid operation")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPersistence          = errors.New("persistence failure")
)

func Invalidf(format string, v ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidOperation}, v...)...)
}

func Forbiddenf(format string, v ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, v...)...)
}

func NotFoundf(format string, v ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, v...)...)
}

func Persistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// HTTPStatus maps an error to the REST fallback's status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
