// Package mailer delivers transactional identity emails through Mailgun.
package mailer

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

// Mailgun sends verification and password-reset emails. It satisfies the
// identity service's Mailer port.
type Mailgun struct {
	domain    string
	apiKey    string
	sender    string
	clientURL string
}

func NewMailgun(domain, apiKey, sender, clientURL string) *Mailgun {
	return &Mailgun{domain: domain, apiKey: apiKey, sender: sender, clientURL: clientURL}
}

// SendVerificationCode mails the 6-digit signup code.
func (m *Mailgun) SendVerificationCode(ctx context.Context, email, code string) error {
	html := fmt.Sprintf(`<h1>Welcome to DevHub!</h1>
<p>Your verification code is: <strong>%s</strong></p>
<p>This code will expire in 5 minutes.</p>`, code)

	text := fmt.Sprintf("Your DevHub verification code is %s. It expires in 5 minutes.", code)
	return m.send(ctx, email, "Verify your DevHub account", text, html)
}

// SendPasswordResetLink mails the time-boxed reset link.
func (m *Mailgun) SendPasswordResetLink(ctx context.Context, email, resetToken string) error {
	resetURL := fmt.Sprintf("%s/reset-password/%s", m.clientURL, resetToken)
	html := fmt.Sprintf(`<h1>Password Reset Request</h1>
<p>Click the link below to reset your password:</p>
<a href="%s">Reset Password</a>
<p>This link will expire in 1 hour.</p>`, resetURL)

	text := fmt.Sprintf("Reset your DevHub password: %s (expires in 1 hour)", resetURL)
	return m.send(ctx, email, "Reset your DevHub password", text, html)
}

func (m *Mailgun) send(ctx context.Context, to, subject, text, html string) error {
	client := mg.NewMailgun(m.domain, m.apiKey)
	msg := client.NewMessage(m.sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, _, err := client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
