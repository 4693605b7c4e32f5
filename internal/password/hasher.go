// Package password hashes and verifies user passwords.
package password

import (
	"errors"
	"strings"
)

// ErrUnknownHashFormat is returned when a stored hash matches no supported scheme.
var ErrUnknownHashFormat = errors.New("password: unknown hash format")

// Hasher creates and checks one-way password hashes.
type Hasher interface {
	// Hash returns a salted hash of the password.
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A mismatch is (false, nil);
	// an error means the hash itself could not be used.
	Verify(password, hash string) (bool, error)
}

// MultiHasher hashes with its primary scheme and verifies any supported one,
// so switching AUTH_HASHER does not lock out existing users.
type MultiHasher struct {
	primary Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

// NewMultiHasher returns a hasher that writes with primary.
func NewMultiHasher(primary Hasher) *MultiHasher {
	m := &MultiHasher{primary: primary}

	switch h := primary.(type) {
	case *BcryptHasher:
		m.bcrypt = h
		m.argon2 = NewArgon2Hasher(nil)
	case *Argon2Hasher:
		m.argon2 = h
		m.bcrypt = NewBcryptHasher(DefaultBcryptCost)
	default:
		m.bcrypt = NewBcryptHasher(DefaultBcryptCost)
		m.argon2 = NewArgon2Hasher(nil)
	}
	return m
}

// New picks a hasher by name ("bcrypt" or "argon2id").
func New(name string, bcryptCost int) (*MultiHasher, error) {
	switch strings.ToLower(name) {
	case "", "bcrypt":
		return NewMultiHasher(NewBcryptHasher(bcryptCost)), nil
	case "argon2id":
		return NewMultiHasher(NewArgon2Hasher(nil)), nil
	default:
		return nil, errors.New("password: unsupported hasher " + name)
	}
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Verify(password, hash string) (bool, error) {
	switch {
	case IsBcryptHash(hash):
		return m.bcrypt.Verify(password, hash)
	case strings.HasPrefix(hash, argon2Prefix):
		return m.argon2.Verify(password, hash)
	default:
		return false, ErrUnknownHashFormat
	}
}

var _ Hasher = (*MultiHasher)(nil)
