package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/devhub/community-api/internal/core/domain"
)

func render(t *testing.T, err error) (int, string) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := NewHTTPErrorHandler(zerolog.Nop())
	handler(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error envelope: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, body.Error
}

func TestErrorHandler_DomainSentinels(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{domain.ErrEmailAlreadyExists, http.StatusConflict, "Email is already registered"},
		{domain.ErrUsernameAlreadyExists, http.StatusConflict, "Username is already taken"},
		{domain.ErrInvalidCredentials, http.StatusBadRequest, "Invalid email or password"},
		{domain.ErrEmailNotVerified, http.StatusBadRequest, "Please verify your email address before proceeding"},
		{domain.ErrOTPInvalid, http.StatusBadRequest, "Invalid OTP code"},
		{domain.ErrOTPExpired, http.StatusBadRequest, "OTP code has expired"},
		{domain.ErrPasswordResetExpired, http.StatusBadRequest, "Password reset link has expired"},
		{domain.ErrTokenMissing, http.StatusUnauthorized, "Authentication token is required"},
		{domain.ErrTokenInvalid, http.StatusUnauthorized, "Invalid authentication token"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "Your session has expired. Please log in again"},
		{domain.ErrUnauthorized, http.StatusUnauthorized, "You are not authorized to perform this action"},
		{domain.ErrAccountNotFound, http.StatusNotFound, "Account not found"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, msg := render(t, tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if msg != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, msg)
			}
		})
	}
}

func TestErrorHandler_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("rotate refresh token: %w", domain.ErrTokenInvalid)
	status, msg := render(t, wrapped)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if msg != "Invalid authentication token" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestErrorHandler_EchoHTTPErrorPassthrough(t *testing.T) {
	status, msg := render(t, echo.NewHTTPError(http.StatusBadRequest, "email is required"))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if msg != "email is required" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestErrorHandler_UnexpectedErrorIsOpaque(t *testing.T) {
	status, msg := render(t, errors.New("mongo: connection refused to 10.0.0.3:27017"))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if msg != "internal server error" {
		t.Fatalf("unexpected message %q", msg)
	}
	if strings.Contains(msg, "mongo") {
		t.Fatalf("internal detail leaked: %q", msg)
	}
}
