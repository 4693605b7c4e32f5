package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/password"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordRequired   = password.ErrRequired
	ErrPasswordTooShort   = password.ErrTooShort
	ErrPasswordTooLong    = password.ErrTooLong
	ErrPasswordReuse      = errors.New("cannot reuse current password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// notifyTimeout bounds a detached reset notification
const notifyTimeout = 30 * time.Second

// ServiceConfig holds the password and reset policy
type ServiceConfig struct {
	MinPasswordLength int
	// RequireResetToken makes ResetPassword demand a valid, unused token
	RequireResetToken bool
}

// Service handles authentication business logic
type Service struct {
	users       user.Repository
	hasher      password.Hasher
	resetTokens *ResetTokenService
	resetStore  ResetTokenStore
	notifier    Notifier
	sessions    SessionRevoker
	logger      *logging.Logger
	cfg         ServiceConfig

	notifications sync.WaitGroup
}

func NewService(
	users user.Repository,
	hasher password.Hasher,
	resetTokens *ResetTokenService,
	resetStore ResetTokenStore,
	notifier Notifier,
	sessions SessionRevoker,
	logger *logging.Logger,
	cfg ServiceConfig,
) *Service {
	if cfg.MinPasswordLength < 1 {
		cfg.MinPasswordLength = 1
	}
	return &Service{
		users:       users,
		hasher:      hasher,
		resetTokens: resetTokens,
		resetStore:  resetStore,
		notifier:    notifier,
		sessions:    sessions,
		logger:      logger,
		cfg:         cfg,
	}
}

// MinPasswordLength is the shortest accepted new password, in characters
func (s *Service) MinPasswordLength() int {
	return s.cfg.MinPasswordLength
}

// Authenticate verifies an email/password pair.
// Returns user.ErrNotFound for unknown emails and ErrInvalidCredentials for a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, plain string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || plain == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := s.hasher.Verify(plain, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// RequestPasswordReset acknowledges a reset request for a known user, issues
// a reset token and hands it to the notifier in the background.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token := s.resetTokens.Issue(u.ID, u.Email)
	if err := s.resetStore.Store(ctx, u.ID, token, s.resetTokens.TTL()); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.notifyAsync(u.Email, token)
	return nil
}

func (s *Service) notifyAsync(to, token string) {
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), s.logger), notifyTimeout)
		defer cancel()

		if err := s.notifier.SendPasswordReset(ctx, to, token, s.resetTokens.TTL()); err != nil {
			s.logger.Warn("failed to send password reset notification", "email", to, "error", err)
		}
	}()
}

// WaitForNotifications blocks until in-flight reset notifications finish
func (s *Service) WaitForNotifications() {
	s.notifications.Wait()
}

// ResetPassword replaces the user's password. The user is looked up before
// the new password is checked. The new password must differ from the
// current one; the store is not touched when it does not.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword, token string) error {
	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if s.cfg.RequireResetToken {
		if err := s.checkResetToken(ctx, u, token); err != nil {
			return err
		}
	}

	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	same, err := s.hasher.Verify(newPassword, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to compare password: %w", err)
	}
	if same {
		return ErrPasswordReuse
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, u.ID, passwordHash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	if s.cfg.RequireResetToken {
		if err := s.resetStore.Delete(ctx, token); err != nil {
			s.logger.Warn("failed to delete password reset token", "user_id", u.ID, "error", err)
		}
	}

	if err := s.sessions.RevokeUser(ctx, u.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", "user_id", u.ID, "error", err)
	}

	s.logger.Info("password reset", "user_id", u.ID)
	return nil
}

func (s *Service) checkResetToken(ctx context.Context, u *user.User, token string) error {
	claims, err := s.resetTokens.Verify(token)
	if err != nil || claims.UserID != u.ID {
		return ErrInvalidResetToken
	}

	storedFor, err := s.resetStore.UserID(ctx, token)
	if err != nil {
		if errors.Is(err, ErrPasswordResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if storedFor != u.ID {
		return ErrInvalidResetToken
	}
	return nil
}

func (s *Service) validatePassword(p string) error {
	return password.Validate(p, s.cfg.MinPasswordLength)
}
