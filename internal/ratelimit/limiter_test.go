package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, cfg), mr
}

func TestLimiter_IPWindow(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{IPLimit: 3, IPWindow: 15 * time.Minute})

	for i := 0; i < 3; i++ {
		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "forgot_password")
		require.NoError(t, err)
		assert.False(t, exceeded, "request %d", i)
		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "forgot_password"))
	}

	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "forgot_password")
	require.NoError(t, err)
	assert.True(t, exceeded)

	// other purposes and IPs are independent
	exceeded, _ = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	assert.False(t, exceeded)
	exceeded, _ = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.2", "forgot_password")
	assert.False(t, exceeded)

	mr.FastForward(16 * time.Minute)
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "forgot_password")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestLimiter_EmailCooldown(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{EmailCooldown: 2 * time.Minute})

	on, err := l.CheckEmailCooldown(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, l.SetEmailCooldown(ctx, "a@example.com"))

	on, _ = l.CheckEmailCooldown(ctx, " A@Example.com ")
	assert.True(t, on)

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "a@example.com")
	}

	mr.FastForward(3 * time.Minute)
	on, _ = l.CheckEmailCooldown(ctx, "a@example.com")
	assert.False(t, on)
}

func TestLimiter_LoginLockout(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{
		LoginMaxAttempts:  5,
		LoginWindow:       15 * time.Minute,
		LoginLockDuration: 10 * time.Minute,
	})
	ip := "192.0.2.7"

	for i := 0; i < 4; i++ {
		lock, err := l.RecordLoginFailure(ctx, ip)
		require.NoError(t, err)
		assert.Zero(t, lock)
	}

	remaining, err := l.LoginLockRemaining(ctx, ip)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	lock, err := l.RecordLoginFailure(ctx, ip)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, lock)

	remaining, err = l.LoginLockRemaining(ctx, ip)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, remaining)

	mr.FastForward(11 * time.Minute)
	remaining, _ = l.LoginLockRemaining(ctx, ip)
	assert.Zero(t, remaining)
}

func TestLimiter_ResetLoginFailures(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{LoginMaxAttempts: 2, LoginWindow: time.Minute, LoginLockDuration: time.Minute})

	_, _ = l.RecordLoginFailure(ctx, "ip")
	require.NoError(t, l.ResetLoginFailures(ctx, "ip"))

	lock, err := l.RecordLoginFailure(ctx, "ip")
	require.NoError(t, err)
	assert.Zero(t, lock)
}

func TestLimiter_Disabled(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{})

	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "ip", "x"))
	require.NoError(t, l.SetEmailCooldown(ctx, "e"))
	lock, err := l.RecordLoginFailure(ctx, "ip")
	require.NoError(t, err)
	assert.Zero(t, lock)
	assert.Empty(t, mr.Keys())
}

func TestLimiter_RedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, Config{IPLimit: 1, IPWindow: time.Minute})
	mr.Close()

	_, err := l.CheckIPRateLimitWithPurpose(context.Background(), "ip", "x")
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(r))

	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestLimiter_CountersAlwaysExpire(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{
		IPLimit:          3,
		IPWindow:         15 * time.Minute,
		LoginMaxAttempts: 5,
		LoginWindow:      15 * time.Minute,
	})

	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "forgot_password"))
	assert.Equal(t, 15*time.Minute, mr.TTL(ipKey("forgot_password", "10.0.0.1")))

	// a counter stranded without a TTL is repaired on the next hit
	key := ipKey("forgot_password", "10.0.0.9")
	require.NoError(t, mr.Set(key, "3"))
	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.9", "forgot_password"))
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	mr.FastForward(16 * time.Minute)
	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.9", "forgot_password")
	require.NoError(t, err)
	assert.False(t, exceeded)

	_, err = l.RecordLoginFailure(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, mr.TTL(loginAttemptsKey("10.0.0.1")))
}
