package commenergyapi

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("remote api: unauthorized")
	ErrNotFound      = errors.New("remote api: not found")
	ErrRateLimited   = errors.New("remote api: too many requests")
	ErrEmailNotFound = errors.New("Email not found")
	ErrNotConfigured = errors.New("remote api: API_BASE_URL is not set")
)

// APIError is a non-2xx answer not covered by a sentinel error.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: %s %s: status %d body: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsServerError reports whether err is a 5xx answer from the remote API.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}

// DeserializationError is returned when a response body does not match the
// expected schema.
type DeserializationError struct {
	Entity string
	Err    error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("remote api: decode %s: %v", e.Entity, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}
