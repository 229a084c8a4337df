package ports

import (
	"context"

	"github.com/devhub/community-api/internal/core/domain"
	"github.com/devhub/community-api/internal/pkg/token"
)

// AuthResult bundles the account summary with a freshly issued token pair.
type AuthResult struct {
	Account      domain.Summary `json:"account"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

// TokenPair is returned by refresh, where no account summary is exposed.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IdentityService orchestrates the account and token lifecycle: signup with
// email verification, credential login, refresh-token rotation, logout,
// password reset, and OAuth login.
type IdentityService interface {
	Signup(ctx context.Context, email, password, username string) (*domain.Account, error)
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	OAuthLogin(ctx context.Context, profile domain.OAuthProfile) (*AuthResult, error)
	VerifyAccessToken(raw string) (*token.Claims, error)
	Account(ctx context.Context, id string) (*domain.Account, error)
}
