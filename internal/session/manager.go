// Package session maintains cookie-identified login sessions.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// Session value keys
const (
	KeyUserID       = "user_id"
	KeyIssuedAt     = "issued_at"
	KeyLastActivity = "last_activity"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")
)

// Options configure cookie attributes and expiry policy
type Options struct {
	Name        string
	Secret      []byte
	Secure      bool
	MaxLifetime time.Duration
	IdleTimeout time.Duration
}

type userRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

type regenerator interface {
	Regenerate(ctx context.Context, session *sessions.Session) error
}

// Manager establishes, checks and ends login sessions on top of a sessions.Store
type Manager struct {
	store       sessions.Store
	name        string
	maxLifetime time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager wraps an existing store
func NewManager(store sessions.Store, opts Options) *Manager {
	name := opts.Name
	if name == "" {
		name = "sid"
	}
	return &Manager{
		store:       store,
		name:        name,
		maxLifetime: opts.MaxLifetime,
		idleTimeout: opts.IdleTimeout,
		now:         time.Now,
	}
}

// CookieOptions builds the cookie attributes shared by both stores
func CookieOptions(opts Options) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxLifetime.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewRedisManager stores session values in Redis
func NewRedisManager(client *redis.Client, opts Options) *Manager {
	store := NewRedisStore(client, CookieOptions(opts), opts.Secret)
	return NewManager(store, opts)
}

// NewCookieManager keeps session values in an encrypted cookie.
// Sessions cannot be revoked server-side with this store.
func NewCookieManager(opts Options) *Manager {
	blockKey := sha256.Sum256(opts.Secret)
	store := sessions.NewCookieStore(opts.Secret, blockKey[:])
	store.Options = CookieOptions(opts)
	store.MaxAge(store.Options.MaxAge)
	return NewManager(store, opts)
}

// Login starts a new session for the user, replacing any existing one.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil && sess == nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if rg, ok := m.store.(regenerator); ok && !sess.IsNew {
		if err := rg.Regenerate(r.Context(), sess); err != nil {
			return err
		}
	}

	clear(sess.Values)
	now := m.now().Unix()
	sess.Values[KeyUserID] = userID.String()
	sess.Values[KeyIssuedAt] = now
	sess.Values[KeyLastActivity] = now

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Authenticate checks the request's session against the absolute and idle
// limits and refreshes its last activity. Expired sessions are destroyed.
func (m *Manager) Authenticate(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		if isDecodeError(err) {
			return uuid.Nil, ErrNoSession
		}
		return uuid.Nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess.IsNew {
		return uuid.Nil, ErrNoSession
	}

	raw, _ := sess.Values[KeyUserID].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}

	now := m.now()
	issuedAt := readUnix(sess.Values[KeyIssuedAt])
	lastActivity := readUnix(sess.Values[KeyLastActivity])

	if m.maxLifetime > 0 && now.Sub(issuedAt) > m.maxLifetime {
		_ = m.destroy(w, r, sess)
		return uuid.Nil, ErrSessionExpired
	}
	if m.idleTimeout > 0 && now.Sub(lastActivity) > m.idleTimeout {
		_ = m.destroy(w, r, sess)
		return uuid.Nil, ErrSessionExpired
	}

	sess.Values[KeyLastActivity] = now.Unix()
	if err := sess.Save(r, w); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save session: %w", err)
	}
	return userID, nil
}

// Logout ends the request's session if there is one.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil && sess == nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	return m.destroy(w, r, sess)
}

// RevokeUser ends every session of the user. No-op for cookie sessions.
func (m *Manager) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	if rv, ok := m.store.(userRevoker); ok {
		return rv.RevokeUser(ctx, userID)
	}
	return nil
}

func (m *Manager) destroy(w http.ResponseWriter, r *http.Request, sess *sessions.Session) error {
	clear(sess.Values)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func isDecodeError(err error) bool {
	var scErr securecookie.Error
	return errors.As(err, &scErr) && scErr.IsDecode()
}

// readUnix accepts the numeric forms values take after a store round trip
func readUnix(v any) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
