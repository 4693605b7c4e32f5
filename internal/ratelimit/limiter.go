// Package ratelimit implements Redis-backed request limits for the auth endpoints.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the limits. Zero values disable the corresponding check.
type Config struct {
	IPLimit       int
	IPWindow      time.Duration
	EmailCooldown time.Duration

	LoginMaxAttempts  int
	LoginWindow       time.Duration
	LoginLockDuration time.Duration
}

// incrWindowScript increments a fixed-window counter and makes sure it
// expires. A counter found without a TTL gets one, so no key outlives its window.
var incrWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local window = tonumber(ARGV[1])
if window > 0 and redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], window)
end
return n
`)

// Limiter tracks per-IP request counts, per-email cooldowns and login lockouts
type Limiter struct {
	client *redis.Client
	cfg    Config
}

func NewLimiter(client *redis.Client, cfg Config) *Limiter {
	return &Limiter{client: client, cfg: cfg}
}

func ipKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

// emails are hashed so addresses do not appear in key listings
func emailCooldownKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("ratelimit:email_cooldown:%s", hex.EncodeToString(sum[:]))
}

func loginAttemptsKey(ip string) string {
	return fmt.Sprintf("login_attempts:%s", ip)
}

func loginLockKey(ip string) string {
	return fmt.Sprintf("login_lock:%s", ip)
}

// CheckIPRateLimitWithPurpose reports whether ip has used up its window for purpose
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	if l.cfg.IPLimit <= 0 {
		return false, nil
	}

	count, err := l.client.Get(ctx, ipKey(purpose, ip)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read IP counter: %w", err)
	}
	return count >= l.cfg.IPLimit, nil
}

// RecordIPRequestWithPurpose counts one request. The window starts with the first one.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	if l.cfg.IPLimit <= 0 {
		return nil
	}
	_, err := l.incrWindow(ctx, ipKey(purpose, ip), l.cfg.IPWindow)
	return err
}

// CheckEmailCooldown reports whether a request for email was made too recently
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	if l.cfg.EmailCooldown <= 0 {
		return false, nil
	}

	n, err := l.client.Exists(ctx, emailCooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

// SetEmailCooldown starts the cooldown for email
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if l.cfg.EmailCooldown <= 0 {
		return nil
	}

	if err := l.client.Set(ctx, emailCooldownKey(email), "1", l.cfg.EmailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}

// LoginLockRemaining returns how long ip stays locked, zero when it is not
func (l *Limiter) LoginLockRemaining(ctx context.Context, ip string) (time.Duration, error) {
	if l.cfg.LoginMaxAttempts <= 0 {
		return 0, nil
	}

	ttl, err := l.client.TTL(ctx, loginLockKey(ip)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read login lock: %w", err)
	}
	// -2: no key, -1: no expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordLoginFailure counts a failed login and locks ip once the limit is hit.
// It returns the lock duration when this failure triggered a lock.
func (l *Limiter) RecordLoginFailure(ctx context.Context, ip string) (time.Duration, error) {
	if l.cfg.LoginMaxAttempts <= 0 {
		return 0, nil
	}

	key := loginAttemptsKey(ip)
	count, err := l.incrWindow(ctx, key, l.cfg.LoginWindow)
	if err != nil {
		return 0, err
	}
	if count < int64(l.cfg.LoginMaxAttempts) {
		return 0, nil
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, loginLockKey(ip), "1", l.cfg.LoginLockDuration)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to lock login: %w", err)
	}
	return l.cfg.LoginLockDuration, nil
}

// ResetLoginFailures clears the failure counter after a successful login
func (l *Limiter) ResetLoginFailures(ctx context.Context, ip string) error {
	if err := l.client.Del(ctx, loginAttemptsKey(ip)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

func (l *Limiter) incrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := incrWindowScript.Run(ctx, l.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return n, nil
}

// ClientIP returns the request's IP without port. chi's RealIP middleware
// has already applied X-Forwarded-For / X-Real-IP to RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
