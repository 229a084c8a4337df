package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/devhub/community-api/internal/core/domain"
	"github.com/devhub/community-api/internal/core/ports"
	"github.com/devhub/community-api/internal/pkg/token"
)

const (
	otpTTL   = 5 * time.Minute
	resetTTL = time.Hour

	// mailTimeout bounds the synchronous hand-off to the mailer so a slow
	// provider cannot hold the request open indefinitely.
	mailTimeout = 10 * time.Second
)

// IdentityService implements the account and token lifecycle on top of the
// account repository, the token signer, and the outbound mailer.
type IdentityService struct {
	repo   ports.AccountRepository
	signer *token.Signer
	mailer ports.Mailer
	logger zerolog.Logger
	now    func() time.Time
}

func NewIdentityService(repo ports.AccountRepository, signer *token.Signer, mailer ports.Mailer, logger zerolog.Logger) *IdentityService {
	return &IdentityService{
		repo:   repo,
		signer: signer,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// Signup creates an unverified account and mails its verification code.
// The account is not rolled back when mail delivery fails; the caller sees
// the delivery error but the row stays, matching the store-first flow.
func (s *IdentityService) Signup(ctx context.Context, email, password, username string) (*domain.Account, error) {
	existing, err := s.repo.FindByEmailOrUsername(ctx, email, username)
	switch {
	case err == nil:
		if existing.Email == email {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, domain.ErrUsernameAlreadyExists
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := token.NewOTP()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := &domain.Account{
		Email:                 email,
		Username:              username,
		PasswordHash:          string(hash),
		IsEmailVerified:       false,
		EmailVerificationCode: code,
		OTPExpiresAt:          now.Add(otpTTL),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", created.ID).Str("username", username).Msg("account created, verification pending")

	mailCtx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := s.mailer.SendVerificationCode(mailCtx, email, code); err != nil {
		s.logger.Error().Err(err).Str("account_id", created.ID).Msg("verification email failed")
		return nil, fmt.Errorf("send verification email: %w", err)
	}

	return created, nil
}

// VerifyEmail checks the candidate code against the pending one and marks
// the account verified. Unknown emails report invalid credentials so the
// endpoint cannot be used to probe for accounts. A repeat verification after
// the code was cleared fails with ErrOTPInvalid.
func (s *IdentityService) VerifyEmail(ctx context.Context, email, code string) error {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	if account.EmailVerificationCode == "" || account.EmailVerificationCode != code {
		return domain.ErrOTPInvalid
	}
	if !account.OTPExpiresAt.IsZero() && s.now().After(account.OTPExpiresAt) {
		return domain.ErrOTPExpired
	}

	if err := s.repo.MarkEmailVerified(ctx, account.ID); err != nil {
		return err
	}

	s.logger.Info().Str("account_id", account.ID).Msg("email verified")
	return nil
}

// Login authenticates the credentials and issues a fresh token pair. The
// verified-state check runs before the password comparison, so an unverified
// account reports ErrEmailNotVerified even with a wrong password.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, account)
}

// Refresh exchanges a refresh token for a new token pair, rotating the
// stored value atomically so the presented token works exactly once.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	next, err := token.NewOpaque(token.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.RotateRefreshToken(ctx, refreshToken, next)
	if err != nil {
		return nil, err
	}

	access, err := s.signer.Issue(account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("account_id", account.ID).Msg("refresh token rotated")
	return &ports.TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Logout permanently invalidates the presented refresh token.
func (s *IdentityService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrTokenMissing
	}
	return s.repo.ClearRefreshToken(ctx, refreshToken)
}

// ForgotPassword starts a time-boxed reset: a fresh opaque token is stored
// with a one-hour expiry and mailed as a link. A pending reset is superseded.
func (s *IdentityService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	reset, err := token.NewOpaque(token.ResetTokenBytes)
	if err != nil {
		return err
	}

	expiresAt := s.now().UTC().Add(resetTTL)
	if err := s.repo.SetPasswordResetToken(ctx, account.ID, reset, expiresAt); err != nil {
		return err
	}

	s.logger.Info().Str("account_id", account.ID).Msg("password reset requested")

	mailCtx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := s.mailer.SendPasswordResetLink(mailCtx, email, reset); err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("reset email failed")
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword confirms a pending reset. Wrong and expired tokens are
// indistinguishable: the conditional update matches neither.
func (s *IdentityService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.ConfirmPasswordReset(ctx, resetToken, s.now().UTC(), string(hash))
	if err != nil {
		return err
	}

	s.logger.Info().Str("account_id", account.ID).Msg("password reset completed")
	return nil
}

// OAuthLogin signs in (or first creates) the account bound to the provider
// subject. Provider emails are trusted as verified; the created account gets
// a random unusable password-hash value so password login can never succeed.
// When the provider subject is new but the email already has a local account,
// the unique email index rejects the insert and ErrEmailAlreadyExists is
// surfaced instead of silently linking.
func (s *IdentityService) OAuthLogin(ctx context.Context, profile domain.OAuthProfile) (*ports.AuthResult, error) {
	account, err := s.repo.FindByOAuthProviderID(ctx, profile.ProviderID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		account, err = s.createOAuthAccount(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, account)
}

func (s *IdentityService) createOAuthAccount(ctx context.Context, profile domain.OAuthProfile) (*domain.Account, error) {
	unusable, err := token.NewOpaque(token.ResetTokenBytes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	account := &domain.Account{
		Email:           profile.Email,
		Username:        profile.Username,
		PasswordHash:    unusable, // not a bcrypt hash: comparison always fails
		IsEmailVerified: true,
		OAuthProviderID: profile.ProviderID,
		OAuthUsername:   profile.Username,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", created.ID).Str("provider_id", profile.ProviderID).Msg("oauth account created")
	return created, nil
}

// VerifyAccessToken validates a bearer token. Pure computation, no I/O.
func (s *IdentityService) VerifyAccessToken(raw string) (*token.Claims, error) {
	return s.signer.Verify(raw)
}

// Account loads an account by id.
func (s *IdentityService) Account(ctx context.Context, id string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *IdentityService) issueTokens(ctx context.Context, account *domain.Account) (*ports.AuthResult, error) {
	access, err := s.signer.Issue(account.ID)
	if err != nil {
		return nil, err
	}

	refresh, err := token.NewOpaque(token.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}

	// Overwrites any previous refresh token: one active session per account.
	if err := s.repo.SetRefreshToken(ctx, account.ID, refresh); err != nil {
		return nil, err
	}

	return &ports.AuthResult{
		Account:      account.Summarize(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
