package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/httputil"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/session"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Middleware guards routes that need a logged-in user
type Middleware struct {
	sessions *session.Manager
	users    user.Repository
}

func NewMiddleware(sessions *session.Manager, users user.Repository) *Middleware {
	return &Middleware{sessions: sessions, users: users}
}

// RequireSession validates the session cookie, enforces its lifetime and
// loads the user into the request context.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		userID, err := m.sessions.Authenticate(w, r)
		switch {
		case errors.Is(err, session.ErrNoSession):
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		case errors.Is(err, session.ErrSessionExpired):
			httputil.RespondErrorWithCode(w, "session has expired", httputil.CodeSessionExpired, http.StatusUnauthorized)
			return
		case err != nil:
			logger.Error("failed to authenticate session", "error", err)
			httputil.RespondInternalError(w)
			return
		}

		u, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				if err := m.sessions.Logout(w, r); err != nil {
					logger.Warn("failed to clear orphaned session", "error", err)
				}
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}
			logger.Error("failed to load session user", "user_id", userID, "error", err)
			httputil.RespondInternalError(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext extracts the session user from the request context
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok
}
