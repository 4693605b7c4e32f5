package password

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrRequired = errors.New("password is required")
	ErrTooShort = errors.New("password is too short")
	ErrTooLong  = errors.New("password must be at most 72 bytes")
)

// Validate applies the password policy: at least minLength characters and
// no more than MaxBcryptInput bytes.
func Validate(p string, minLength int) error {
	if p == "" {
		return ErrRequired
	}
	if utf8.RuneCountInString(p) < minLength {
		return ErrTooShort
	}
	if len(p) > MaxBcryptInput {
		return ErrTooLong
	}
	return nil
}
