// Package token holds the two token primitives of the identity engine: a
// symmetric JWT signer for short-lived access tokens, and crypto/rand-backed
// generators for opaque refresh/reset tokens and numeric one-time codes.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devhub/community-api/internal/core/domain"
)

const DefaultAccessTokenTTL = 24 * time.Hour

// Claims is the decoded content of a verified access token.
type Claims struct {
	AccountID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer issues and verifies HS256 access tokens. Verification is pure
// computation; no I/O, safe for concurrent use.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the signer's clock. Intended for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// Issue signs a token for accountID valid for the configured TTL.
func (s *Signer) Issue(accountID string) (string, error) {
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates raw, distinguishing an expired token
// (domain.ErrTokenExpired) from a tampered or malformed one
// (domain.ErrTokenInvalid).
func (s *Signer) Verify(raw string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	tkn, err := jwt.ParseWithClaims(raw, &rc, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if !tkn.Valid || rc.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims := &Claims{AccountID: rc.Subject}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}
