package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devhub/community-api/internal/core/domain"
	"github.com/devhub/community-api/internal/core/ports"
	"github.com/devhub/community-api/internal/pkg/token"
)

// stubIdentity is a canned ports.IdentityService for handler tests.
type stubIdentity struct {
	account *domain.Account
	result  *ports.AuthResult
	pair    *ports.TokenPair
	claims  *token.Claims
	err     error
}

func (s *stubIdentity) Signup(context.Context, string, string, string) (*domain.Account, error) {
	return s.account, s.err
}
func (s *stubIdentity) VerifyEmail(context.Context, string, string) error { return s.err }
func (s *stubIdentity) Login(context.Context, string, string) (*ports.AuthResult, error) {
	return s.result, s.err
}
func (s *stubIdentity) Refresh(context.Context, string) (*ports.TokenPair, error) {
	return s.pair, s.err
}
func (s *stubIdentity) Logout(context.Context, string) error              { return s.err }
func (s *stubIdentity) ForgotPassword(context.Context, string) error      { return s.err }
func (s *stubIdentity) ResetPassword(context.Context, string, string) error {
	return s.err
}
func (s *stubIdentity) OAuthLogin(context.Context, domain.OAuthProfile) (*ports.AuthResult, error) {
	return s.result, s.err
}
func (s *stubIdentity) VerifyAccessToken(string) (*token.Claims, error) {
	return s.claims, s.err
}
func (s *stubIdentity) Account(context.Context, string) (*domain.Account, error) {
	return s.account, s.err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSignupHandler_Created(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{account: &domain.Account{
		ID:       "acc-1",
		Email:    "alice@example.com",
		Username: "alice",
	}})

	c, rec := postJSON(e, "/auth/signup", `{"email":"alice@example.com","password":"pw123456","username":"alice"}`)
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp struct {
		Message string `json:"message"`
		Data    struct {
			Account domain.Summary `json:"account"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Message != msgSignupSuccess {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.Data.Account.ID != "acc-1" {
		t.Fatalf("unexpected account payload: %+v", resp.Data.Account)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response must not carry password material: %s", rec.Body.String())
	}
}

func TestSignupHandler_InvalidPayload(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{})

	c, _ := postJSON(e, "/auth/signup", `{"email":"not-an-email","password":"pw123456","username":"alice"}`)
	err := h.Signup(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 validation error, got %v", err)
	}
}

func TestSignupHandler_DuplicatePropagates(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{err: domain.ErrEmailAlreadyExists})

	c, _ := postJSON(e, "/auth/signup", `{"email":"alice@example.com","password":"pw123456","username":"alice"}`)
	if err := h.Signup(c); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLoginHandler_ReturnsTokenPair(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{result: &ports.AuthResult{
		Account:      domain.Summary{ID: "acc-1", Email: "alice@example.com", Username: "alice"},
		AccessToken:  "access",
		RefreshToken: "refresh",
	}})

	c, rec := postJSON(e, "/auth/login", `{"email":"alice@example.com","password":"pw123456"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"access_token":"access"`) || !strings.Contains(body, `"refresh_token":"refresh"`) {
		t.Fatalf("token pair missing from response: %s", body)
	}
}

func TestRefreshHandler_MissingToken(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{})

	c, _ := postJSON(e, "/auth/refresh-token", `{}`)
	err := h.Refresh(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing refresh token, got %v", err)
	}
}

func TestLogoutHandler_MissingToken(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{})

	c, _ := postJSON(e, "/auth/logout", `{}`)
	err := h.Logout(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing refresh token, got %v", err)
	}
}

func TestVerifyTokenHandler(t *testing.T) {
	e := newEcho()
	issued := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	h := NewAuthHandler(&stubIdentity{claims: &token.Claims{
		AccountID: "acc-1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(24 * time.Hour),
	}})

	req := httptest.NewRequest(http.MethodPost, "/auth/verify-token", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"account_id":"acc-1"`) {
		t.Fatalf("claims missing from response: %s", rec.Body.String())
	}
}

func TestVerifyTokenHandler_MissingHeader(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/auth/verify-token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.VerifyToken(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing header, got %v", err)
	}
}

func TestSessionHandler_Anonymous(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubIdentity{})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Session(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"authenticated":false`) {
		t.Fatalf("expected anonymous session, got %s", rec.Body.String())
	}
}
