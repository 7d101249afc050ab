package errs

import (
	"errors"
	"net/http"
)

func newHTTPError(status int, message string, override bool) *HTTPError {
	return &HTTPError{
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(status)),
		Message:  message,
		Status:   status,
		Override: override,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError with optional
// field-level errors.
func NewBadRequestError(message string, override bool, errors []FieldError) *HTTPError {
	e := newHTTPError(http.StatusBadRequest, message, override)
	e.Errors = errors
	return e
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusNotFound, message, override)
}

// NewConflictError creates a 409 Conflict HTTPError.
func NewConflictError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusConflict, message, override)
}

// NewServiceUnavailableError creates a 503 Service Unavailable HTTPError.
// The message is always the generic status text.
func NewServiceUnavailableError() *HTTPError {
	return newHTTPError(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), false)
}

// NewInternalServerError creates a 500 Internal Server Error HTTPError.
// The message is always the generic status text; the real cause belongs in
// the logs.
func NewInternalServerError() *HTTPError {
	return newHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false)
}

// ToHTTPError maps an error returned by the content service onto the HTTP
// error shape. An *HTTPError anywhere in the chain is returned unchanged.
func ToHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewNotFoundError("Resource not found", false)
	case errors.Is(err, ErrConflict):
		return NewConflictError("Resource already exists", false)
	case errors.Is(err, ErrInvalid):
		return NewBadRequestError(err.Error(), true, nil)
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrChannelClosed):
		return NewServiceUnavailableError()
	default:
		return NewInternalServerError()
	}
}
