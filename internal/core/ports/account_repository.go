package ports

import (
	"context"
	"time"

	"github.com/devhub/community-api/internal/core/domain"
)

// AccountRepository is the persistence port for the Account aggregate.
//
// Every method that conditions on a token value must be atomic at the store
// level (single-document compare-and-update): refresh rotation, logout, and
// reset confirmation all race against each other on the same account and
// must resolve deterministically.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)

	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// FindByEmailOrUsername returns the first account matching either value,
	// or domain.ErrAccountNotFound. Used for the signup duplicate preflight.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.Account, error)
	FindByOAuthProviderID(ctx context.Context, providerID string) (*domain.Account, error)

	// MarkEmailVerified sets is_email_verified and clears the pending
	// verification code in one update.
	MarkEmailVerified(ctx context.Context, id string) error

	// SetRefreshToken overwrites the account's refresh token slot,
	// invalidating whatever token was there before.
	SetRefreshToken(ctx context.Context, id, token string) error

	// RotateRefreshToken atomically replaces oldToken with newToken on the
	// account currently holding oldToken. Returns domain.ErrTokenInvalid when
	// no account holds oldToken (already rotated, logged out, or never issued).
	RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*domain.Account, error)

	// ClearRefreshToken removes token from whichever account holds it.
	// Returns domain.ErrTokenInvalid when no account holds it.
	ClearRefreshToken(ctx context.Context, token string) error

	// SetPasswordResetToken stores a pending reset token and its expiry,
	// superseding any previous pending reset.
	SetPasswordResetToken(ctx context.Context, id, token string, expiresAt time.Time) error

	// ConfirmPasswordReset atomically swaps in the new password hash on the
	// account whose reset token equals token and whose expiry is after now,
	// clearing both reset fields. Returns domain.ErrPasswordResetExpired when
	// no account matches (wrong token or expired).
	ConfirmPasswordReset(ctx context.Context, token string, now time.Time, newHash string) (*domain.Account, error)
}
