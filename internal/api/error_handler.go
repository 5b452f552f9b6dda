package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs transient errors internally.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation: http.StatusBadRequest,
	domain.KindNotFound:   http.StatusNotFound,
	domain.KindConflict:   http.StatusConflict,
	domain.KindAuth:       http.StatusUnauthorized,
	domain.KindForbidden:  http.StatusForbidden,
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	if de := domain.AsError(err); de != nil {
		if status, ok := kindStatus[de.Kind]; ok {
			return status, errorResponse{Error: de.Message, Code: de.Code}
		}
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("operation failed")
		return http.StatusInternalServerError, errorResponse{Error: de.Message, Code: de.Code}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: domain.CodeInternal}
}
