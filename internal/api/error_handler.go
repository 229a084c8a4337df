package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/devhub/community-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// messageTable maps each domain sentinel to its stable user-facing message.
// Responses never carry raw internal error strings.
var messageTable = map[error]string{
	domain.ErrEmailAlreadyExists:    "Email is already registered",
	domain.ErrUsernameAlreadyExists: "Username is already taken",
	domain.ErrInvalidCredentials:    "Invalid email or password",
	domain.ErrEmailNotVerified:      "Please verify your email address before proceeding",
	domain.ErrOTPInvalid:            "Invalid OTP code",
	domain.ErrOTPExpired:            "OTP code has expired",
	domain.ErrPasswordResetExpired:  "Password reset link has expired",
	domain.ErrTokenMissing:          "Authentication token is required",
	domain.ErrTokenInvalid:          "Invalid authentication token",
	domain.ErrTokenExpired:          "Your session has expired. Please log in again",
	domain.ErrUnauthorized:          "You are not authorized to perform this action",
	domain.ErrAccountNotFound:       "Account not found",
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	if status, ok := statusFor(err); ok {
		return status, messageFor(err)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// statusFor classifies domain sentinels: duplicates conflict, credential and
// code failures are bad requests, token failures are unauthorized.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists),
		errors.Is(err, domain.ErrUsernameAlreadyExists):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrEmailNotVerified),
		errors.Is(err, domain.ErrOTPInvalid),
		errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrPasswordResetExpired):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrTokenMissing),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, true
	}
	return 0, false
}

func messageFor(err error) string {
	for sentinel, msg := range messageTable {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}
