package ports

import "context"

// Mailer is the outbound email port. Implementations may deliver inline or
// hand the message to an asynchronous dispatcher; the service only needs
// fire-and-confirm semantics.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPasswordResetLink(ctx context.Context, email, resetToken string) error
}
