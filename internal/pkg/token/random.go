package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// RefreshTokenBytes is the entropy of an opaque refresh token (80 hex chars).
	RefreshTokenBytes = 40
	// ResetTokenBytes is the entropy of a password-reset token (64 hex chars).
	ResetTokenBytes = 32
)

// NewOpaque returns n cryptographically random bytes hex-encoded. Opaque
// tokens carry no claims; the account store tracks their meaning.
func NewOpaque(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("opaque token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// otpRange draws codes uniformly from [100000, 999999].
var otpRange = big.NewInt(900000)

// NewOTP returns a 6-digit numeric one-time code with no leading zero.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		return "", fmt.Errorf("otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
