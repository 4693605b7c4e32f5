package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

const resetPurpose = "password_reset"

var ErrInvalidToken = errors.New("invalid token")

// ResetClaims are the claims carried by a password reset token
type ResetClaims struct {
	UserID    uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ResetTokenService issues and verifies PASETO v4.local reset tokens
// (symmetric encryption with XChaCha20-Poly1305)
type ResetTokenService struct {
	symmetricKey paseto.V4SymmetricKey
	ttl          time.Duration
	now          func() time.Time
}

func NewResetTokenService(symmetricKey []byte, ttl time.Duration) (*ResetTokenService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &ResetTokenService{symmetricKey: key, ttl: ttl, now: time.Now}, nil
}

// TTL is how long issued tokens stay valid
func (s *ResetTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a reset token bound to the user
func (s *ResetTokenService) Issue(userID uuid.UUID, email string) string {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	token.SetSubject(userID.String())
	token.SetString("email", email)
	token.SetString("purpose", resetPurpose)

	return token.V4Encrypt(s.symmetricKey, nil)
}

// Verify decrypts the token and checks expiry and purpose
func (s *ResetTokenService) Verify(tokenStr string) (*ResetClaims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if purpose, err := token.GetString("purpose"); err != nil || purpose != resetPurpose {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil || !s.now().Before(expiresAt) {
		return nil, ErrInvalidToken
	}

	sub, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &ResetClaims{
		UserID:    userID,
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
