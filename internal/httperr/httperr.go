// Package httperr defines the error taxonomy of the API and the JSON
// envelope every error is rendered with. Internal details never reach the
// client; handlers log them and return the nearest taxonomy kind.
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/logging"
)

type Kind int

const (
	Validation Kind = iota
	Unauthorized
	Forbidden
	Conflict
	NotFound
	RateLimited
	Internal
)

func (k Kind) status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a taxonomy error. Message is client-facing; Err is the wrapped
// cause and stays server-side.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Envelope is the uniform error body: {"status": 401, "message": "..."}.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Handler is the echo HTTPErrorHandler. Taxonomy errors render their own
// status and message; echo.HTTPError passes through; anything else becomes
// an opaque 500.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var appErr *Error
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status = appErr.Kind.status()
		message = appErr.Message
		if appErr.Kind == Internal && appErr.Err != nil {
			logging.FromContext(c.Request().Context()).Error("internal error", "error", appErr.Err, "path", c.Path())
			message = "internal server error"
		}
	case errors.As(err, &echoErr):
		status = echoErr.Code
		if m, ok := echoErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	default:
		logging.FromContext(c.Request().Context()).Error("unhandled error", "error", err, "path", c.Path())
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, Envelope{Status: status, Message: message})
}
