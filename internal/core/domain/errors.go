package domain

import "errors"

// Sentinel errors raised by the identity service and the account store.
// The HTTP layer maps each to a status code and a fixed user-facing
// message; internal text never reaches a response.
var (
	ErrEmailAlreadyExists    = errors.New("email already registered")
	ErrUsernameAlreadyExists = errors.New("username already taken")

	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password" so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")

	ErrOTPInvalid = errors.New("invalid verification code")
	ErrOTPExpired = errors.New("verification code expired")

	// ErrPasswordResetExpired covers both an unknown and an expired reset
	// token; the lookup query cannot tell them apart.
	ErrPasswordResetExpired = errors.New("password reset expired")

	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")

	ErrUnauthorized    = errors.New("unauthorized")
	ErrAccountNotFound = errors.New("account not found")
)
