package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devhub/community-api/internal/core/domain"
	"github.com/devhub/community-api/internal/pkg/token"
)

// Context keys set by the guards.
const (
	CtxAccountID = "account_id"
	CtxClaims    = "token_claims"
)

// AccessVerifier validates a raw access token. Implemented by the identity
// service.
type AccessVerifier interface {
	VerifyAccessToken(raw string) (*token.Claims, error)
}

// Auth is the mandatory access guard: it extracts the bearer token, verifies
// it, and attaches the decoded identity to the request context. Missing,
// expired, and tampered tokens surface as distinct domain errors, all mapped
// to 401 by the central error handler.
func Auth(verifier AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return domain.ErrTokenMissing
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				return err
			}

			c.Set(CtxAccountID, claims.AccountID)
			c.Set(CtxClaims, claims)
			return next(c)
		}
	}
}

// OptionalAuth attaches an identity when a valid bearer token accompanies
// the request, and otherwise lets the request through anonymous. Token
// failures are swallowed, never propagated.
func OptionalAuth(verifier AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if claims, err := verifier.VerifyAccessToken(raw); err == nil {
					c.Set(CtxAccountID, claims.AccountID)
					c.Set(CtxClaims, claims)
				}
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
