package session

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a gorilla sessions.Store keeping session values in Redis.
// The cookie carries only the signed session id.
type RedisStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	Options *sessions.Options
}

// NewRedisStore signs ids with the given key pairs (hash key, optional block key, ...).
func NewRedisStore(client *redis.Client, opts *sessions.Options, keyPairs ...[]byte) *RedisStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
	return &RedisStore{client: client, codecs: codecs, Options: opts}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func userSessionsKey(userID string) string {
	return fmt.Sprintf("user_sessions:%s", userID)
}

// Get returns the request-cached session, loading it on first use.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie or returns a fresh one.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		// Tampered or rotated-key cookie: start over
		return session, nil
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save persists values and writes the id cookie. MaxAge < 0 deletes the session.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.delete(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		id, err := newSessionID()
		if err != nil {
			return err
		}
		session.ID = id
	}

	if err := s.save(ctx, session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Regenerate drops the stored record and clears the id so the next Save
// issues a new one. Used on login against session fixation.
func (s *RedisStore) Regenerate(ctx context.Context, session *sessions.Session) error {
	if session.ID == "" {
		return nil
	}
	if err := s.delete(ctx, session.ID); err != nil {
		return err
	}
	session.ID = ""
	session.IsNew = true
	return nil
}

// RevokeUser deletes every session recorded for the user
func (s *RedisStore) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	setKey := userSessionsKey(userID.String())

	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, setKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

func (s *RedisStore) ttl(session *sessions.Session) time.Duration {
	if session.Options.MaxAge > 0 {
		return time.Duration(session.Options.MaxAge) * time.Second
	}
	// Browser-session cookies still need a server-side bound
	return 24 * time.Hour
}

func (s *RedisStore) save(ctx context.Context, session *sessions.Session) error {
	values := make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		ks, ok := k.(string)
		if !ok {
			return fmt.Errorf("session key %v is not a string", k)
		}
		values[ks] = v
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode session values: %w", err)
	}

	ttl := s.ttl(session)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)

	if uid, ok := values[KeyUserID].(string); ok && uid != "" {
		setKey := userSessionsKey(uid)
		pipe.SAdd(ctx, setKey, session.ID)
		pipe.Expire(ctx, setKey, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string, session *sessions.Session) (bool, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}

	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return false, fmt.Errorf("failed to decode session values: %w", err)
	}
	for k, v := range values {
		session.Values[k] = v
	}
	return true, nil
}

func (s *RedisStore) delete(ctx context.Context, id string) error {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to load session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	if len(data) > 0 {
		var values map[string]any
		if json.Unmarshal(data, &values) == nil {
			if uid, ok := values[KeyUserID].(string); ok && uid != "" {
				pipe.SRem(ctx, userSessionsKey(uid), id)
			}
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return strings.TrimRight(base32.StdEncoding.EncodeToString(b), "="), nil
}

var _ sessions.Store = (*RedisStore)(nil)
