package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTooManyAttempts is returned while a username is locked out.
var ErrTooManyAttempts = errors.New("too many failed login attempts, try again later")

// LoginThrottle counts failed logins per username in Redis and locks the
// username out once the limit is reached.
type LoginThrottle struct {
	client  *redis.Client
	limit   int
	lockout time.Duration
}

// NewLoginThrottle creates a throttle. A nil client or a limit of zero
// disables it.
func NewLoginThrottle(client *redis.Client, limit int, lockout time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, limit: limit, lockout: lockout}
}

func (lt *LoginThrottle) enabled() bool {
	return lt != nil && lt.client != nil && lt.limit > 0
}

func loginKey(username string) string {
	return fmt.Sprintf("ratelimit:login:%s", username)
}

// Check returns ErrTooManyAttempts if username is locked out.
func (lt *LoginThrottle) Check(ctx context.Context, username string) error {
	if !lt.enabled() {
		return nil
	}

	count, err := lt.client.Get(ctx, loginKey(username)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("check login rate limit: %w", err)
	}
	if int(count) >= lt.limit {
		return ErrTooManyAttempts
	}
	return nil
}

// RecordFailure increments the failed login counter for username.
func (lt *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if !lt.enabled() {
		return nil
	}

	pipe := lt.client.Pipeline()
	pipe.Incr(ctx, loginKey(username))
	pipe.Expire(ctx, loginKey(username), lt.lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	return nil
}

// Clear resets the counter after a successful login.
func (lt *LoginThrottle) Clear(ctx context.Context, username string) error {
	if !lt.enabled() {
		return nil
	}
	return lt.client.Del(ctx, loginKey(username)).Err()
}
