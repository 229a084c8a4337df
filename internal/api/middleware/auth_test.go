package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/devhub/community-api/internal/core/domain"
	"github.com/devhub/community-api/internal/pkg/token"
)

type stubVerifier struct {
	claims *token.Claims
	err    error
	seen   string
}

func (s *stubVerifier) VerifyAccessToken(raw string) (*token.Claims, error) {
	s.seen = raw
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func newTestContext(authHeader string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestAuth_ValidToken(t *testing.T) {
	verifier := &stubVerifier{claims: &token.Claims{AccountID: "acc-1"}}
	c := newTestContext("Bearer signed-token")

	called := false
	handler := Auth(verifier)(func(c echo.Context) error {
		called = true
		if c.Get(CtxAccountID) != "acc-1" {
			t.Fatalf("account id not attached")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if verifier.seen != "signed-token" {
		t.Fatalf("verifier saw %q", verifier.seen)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	verifier := &stubVerifier{claims: &token.Claims{AccountID: "acc-1"}}
	c := newTestContext("")

	handler := Auth(verifier)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	verifier := &stubVerifier{claims: &token.Claims{AccountID: "acc-1"}}
	c := newTestContext("Token abc")

	handler := Auth(verifier)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestAuth_ExpiredAndInvalidAreDistinct(t *testing.T) {
	for _, want := range []error{domain.ErrTokenExpired, domain.ErrTokenInvalid} {
		verifier := &stubVerifier{err: want}
		c := newTestContext("Bearer stale")

		handler := Auth(verifier)(func(c echo.Context) error {
			t.Fatalf("should not reach next")
			return nil
		})

		if err := handler(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestOptionalAuth_InvalidTokenProceedsAnonymous(t *testing.T) {
	verifier := &stubVerifier{err: domain.ErrTokenInvalid}
	c := newTestContext("Bearer garbage")

	called := false
	handler := OptionalAuth(verifier)(func(c echo.Context) error {
		called = true
		if c.Get(CtxAccountID) != nil {
			t.Fatalf("no identity should be attached")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("optional guard must swallow token failures, got %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestOptionalAuth_ValidTokenAttachesIdentity(t *testing.T) {
	verifier := &stubVerifier{claims: &token.Claims{AccountID: "acc-9"}}
	c := newTestContext("Bearer good")

	handler := OptionalAuth(verifier)(func(c echo.Context) error {
		if c.Get(CtxAccountID) != "acc-9" {
			t.Fatalf("identity not attached")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestOptionalAuth_NoHeaderProceeds(t *testing.T) {
	verifier := &stubVerifier{claims: &token.Claims{AccountID: "acc-1"}}
	c := newTestContext("")

	called := false
	handler := OptionalAuth(verifier)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil || !called {
		t.Fatalf("anonymous request must proceed, err=%v called=%v", err, called)
	}
}
