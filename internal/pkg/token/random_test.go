package token

import (
	"encoding/hex"
	"strconv"
	"testing"
)

func TestNewOpaque(t *testing.T) {
	for _, n := range []int{RefreshTokenBytes, ResetTokenBytes} {
		tok, err := NewOpaque(n)
		if err != nil {
			t.Fatalf("NewOpaque(%d) failed: %v", n, err)
		}
		if len(tok) != 2*n {
			t.Fatalf("expected %d hex chars, got %d", 2*n, len(tok))
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("token is not valid hex: %v", err)
		}
	}
}

func TestNewOpaque_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		tok, err := NewOpaque(RefreshTokenBytes)
		if err != nil {
			t.Fatalf("NewOpaque failed: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate opaque token after %d draws", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewOTP_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		otp, err := NewOTP()
		if err != nil {
			t.Fatalf("NewOTP failed: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("expected 6 digits, got %q", otp)
		}
		n, err := strconv.Atoi(otp)
		if err != nil {
			t.Fatalf("OTP is not numeric: %q", otp)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("OTP out of range: %d", n)
		}
	}
}
