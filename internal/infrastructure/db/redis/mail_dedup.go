package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const mailDedupTTL = time.Hour

// MailDedup suppresses duplicate outbound emails across dispatcher retries.
// Key format: mail:<kind>:<recipient>:<credential>
type MailDedup struct {
	client *redis.Client
}

// NewMailDedup creates a MailDedup wrapping the given Redis client.
func NewMailDedup(client *redis.Client) *MailDedup {
	return &MailDedup{client: client}
}

// AlreadySent reports whether this exact email was already delivered.
func (d *MailDedup) AlreadySent(ctx context.Context, kind, recipient, credential string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(kind, recipient, credential)).Result()
	if err != nil {
		return false, fmt.Errorf("mail dedup check: %w", err)
	}
	return n > 0, nil
}

// MarkSent records a delivery (expires after mailDedupTTL, which outlives
// both the OTP and the reset-token windows).
func (d *MailDedup) MarkSent(ctx context.Context, kind, recipient, credential string) error {
	return d.client.Set(ctx, d.key(kind, recipient, credential), "1", mailDedupTTL).Err()
}

func (d *MailDedup) key(kind, recipient, credential string) string {
	return fmt.Sprintf("mail:%s:%s:%s", kind, recipient, credential)
}
