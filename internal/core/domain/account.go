package domain

import "time"

// Account is the single identity aggregate. It is owned exclusively by the
// account store; every credential and token the platform trusts hangs off it.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`

	IsEmailVerified       bool      `json:"is_email_verified"`
	EmailVerificationCode string    `json:"-"`
	OTPExpiresAt          time.Time `json:"-"`

	PasswordResetToken     string    `json:"-"`
	PasswordResetExpiresAt time.Time `json:"-"`

	// RefreshToken is the single currently-valid refresh token. Overwritten
	// on every login/refresh, cleared on logout: one session per account.
	RefreshToken string `json:"-"`

	OAuthProviderID string `json:"oauth_provider_id,omitempty"`
	OAuthUsername   string `json:"oauth_username,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the safe projection of an Account returned to clients.
// The password hash and every pending token stay server-side.
type Summary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Summarize returns the client-facing projection of the account.
func (a *Account) Summarize() Summary {
	return Summary{ID: a.ID, Email: a.Email, Username: a.Username}
}

// OAuthProfile is the externally verified identity delivered by an OAuth
// provider callback. The provider is trusted to have verified the email.
type OAuthProfile struct {
	ProviderID string
	Username   string
	Email      string
}
