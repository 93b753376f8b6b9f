package services

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

var (
	// ErrPasswordMismatch is returned by Compare when the password is wrong.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrPasswordTooLong is returned by Hash for input bcrypt cannot take.
	ErrPasswordTooLong = errors.New("password is longer than 72 bytes")
)

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}

// decoyHash lazily builds a hash that is compared against when no account
// matches a login, so both paths spend the same hashing time.
type decoyHash struct {
	once sync.Once
	hash string
}

func (d *decoyHash) get(h PasswordHasher) string {
	d.once.Do(func() {
		d.hash, _ = h.Hash("decoy-password-Aa1!")
	})
	return d.hash
}
